package app

import (
	"context"
	"errors"
	"fmt"

	"pzworkshop/internal/reconcile"
	"pzworkshop/internal/ui"

	"github.com/spf13/pflag"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// RefreshCommand re-syncs tracked collections against their live workshop
// pages. Only IDs a collection itself added can be removed by its refresh.
type RefreshCommand struct {
	configPath    string
	collection    string
	all           bool
	yes           bool
	skipAmbiguous bool
	noCache       bool
}

func (c *RefreshCommand) Name() string { return "refresh" }

func (c *RefreshCommand) Desc() string {
	return "与线上合集页面同步，增删合集引入的条目"
}

func NewRefreshCommand() *RefreshCommand { return &RefreshCommand{} }

func (c *RefreshCommand) Init(f *pflag.FlagSet) {
	f.StringVar(&c.configPath, "config", "", "配置文件路径")
	f.StringVar(&c.collection, "collection", "", "要刷新的合集 URL")
	f.BoolVar(&c.all, "all", false, "刷新全部已添加的合集")
	f.BoolVar(&c.yes, "yes", false, "多个 Mod ID 时自动选择第一个，不再询问")
	f.BoolVar(&c.skipAmbiguous, "skip-ambiguous", false, "多个 Mod ID 时直接跳过该条目")
	f.BoolVar(&c.noCache, "no-cache", false, "跳过页面缓存，强制重新抓取")
}

func (c *RefreshCommand) PreRun(ctx context.Context) error {
	if c.collection == "" && !c.all {
		return errors.New("refresh requires --collection or --all")
	}
	if c.collection != "" && c.all {
		return errors.New("--collection and --all are mutually exclusive")
	}
	logutil.GetLogger(ctx).Info("starting refresh",
		zap.String("collection", c.collection),
		zap.Bool("all", c.all),
	)
	return nil
}

func (c *RefreshCommand) Run(ctx context.Context) error {
	cfg, err := loadConfig(c.configPath)
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	scraper, err := newScraper(ctx, cfg, c.noCache)
	if err != nil {
		return err
	}
	resolver := knownItemResolver{inner: pickResolver(c.yes, c.skipAmbiguous), st: st}
	rec := reconcile.New(st)

	targets := []string{c.collection}
	if c.all {
		targets = st.CollectionURLs()
		if len(targets) == 0 {
			fmt.Println(ui.Dim.Render("no collections to refresh"))
			return nil
		}
	}

	for _, url := range targets {
		prev, ok := st.Collection(url)
		if !ok {
			return fmt.Errorf("refresh %s: %w", url, reconcile.ErrUnknownCollection)
		}

		page, err := scraper.FetchCollection(ctx, url)
		if err != nil {
			return err
		}
		if page == nil {
			// The page no longer parses as a collection. Leave the record
			// alone rather than removing everything it added.
			logutil.GetLogger(ctx).Warn("page is not a collection anymore, skipping",
				zap.String("url", url))
			fmt.Println(ui.Red.Render(fmt.Sprintf("! not a collection page, skipped: %s", url)))
			continue
		}

		children, err := collectChildren(ctx, scraper, resolver, page.Children)
		if err != nil {
			return err
		}
		result, err := rec.RefreshCollection(ctx, url, children)
		if err != nil {
			return err
		}

		fmt.Println(ui.Green.Render(fmt.Sprintf("~ %q: %d added, %d removed, %d unchanged, %d skipped",
			prev.Title, len(result.AddedIDs), len(result.RemovedIDs), len(result.UnchangedIDs), len(result.SkippedIDs))))
	}

	return nil
}

func (c *RefreshCommand) PostRun(ctx context.Context) error { return nil }

func init() {
	RegisterRunner("refresh", func() IRunner { return NewRefreshCommand() })
}
