package app

import (
	"context"
	"errors"
	"fmt"

	"pzworkshop/internal/reconcile"
	"pzworkshop/internal/resolve"
	"pzworkshop/internal/scrape"
	"pzworkshop/internal/store"
	"pzworkshop/internal/ui"

	"github.com/spf13/pflag"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// AddCommand adds workshop URLs to the server lists. Collection URLs import
// every child; plain item URLs are added standalone, optionally pulling in
// their required items.
type AddCommand struct {
	configPath    string
	urlList       string
	yes           bool
	skipAmbiguous bool
	noCache       bool
	withDeps      bool

	urls []string
}

func (c *AddCommand) Name() string { return "add" }

func (c *AddCommand) Desc() string {
	return "添加创意工坊条目或合集到服务器列表"
}

func NewAddCommand() *AddCommand { return &AddCommand{} }

func (c *AddCommand) Init(f *pflag.FlagSet) {
	f.StringVar(&c.configPath, "config", "", "配置文件路径")
	f.StringVar(&c.urlList, "url", "", "逗号分隔的创意工坊 URL 列表")
	f.BoolVar(&c.yes, "yes", false, "多个 Mod ID 时自动选择第一个，不再询问")
	f.BoolVar(&c.skipAmbiguous, "skip-ambiguous", false, "多个 Mod ID 时直接跳过该条目")
	f.BoolVar(&c.noCache, "no-cache", false, "跳过页面缓存，强制重新抓取")
	f.BoolVar(&c.withDeps, "deps", true, "自动添加页面声明的依赖条目")
}

func (c *AddCommand) PreRun(ctx context.Context) error {
	c.urls = splitCommaList(c.urlList)
	if len(c.urls) == 0 {
		return errors.New("add requires --url")
	}
	if c.yes && c.skipAmbiguous {
		return errors.New("--yes and --skip-ambiguous are mutually exclusive")
	}

	logutil.GetLogger(ctx).Info("starting add",
		zap.Strings("urls", c.urls),
		zap.Bool("deps", c.withDeps),
	)
	return nil
}

func (c *AddCommand) Run(ctx context.Context) error {
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
	resolver := pickResolver(c.yes, c.skipAmbiguous)
	rec := reconcile.New(st)

	for _, target := range c.urls {
		if _, ok := st.Collection(target); ok {
			fmt.Println(ui.Yellow.Render(fmt.Sprintf("= collection already added, use refresh: %s", target)))
			continue
		}
		id := scrape.ParseWorkshopID(target)
		if id == "" {
			fmt.Println(ui.Red.Render(fmt.Sprintf("! no workshop id in url: %s", target)))
			continue
		}
		if st.WorkshopIDs.Contains(id) {
			fmt.Println(ui.Yellow.Render(fmt.Sprintf("= already listed: %s", target)))
			continue
		}

		page, err := scraper.FetchCollection(ctx, target)
		if err != nil {
			return err
		}
		if page != nil {
			if err := c.addCollection(ctx, rec, scraper, resolver, page); err != nil {
				return err
			}
			continue
		}
		if err := c.addItem(ctx, rec, st, scraper, resolver, id); err != nil {
			return err
		}
	}

	return nil
}

func (c *AddCommand) PostRun(ctx context.Context) error { return nil }

func (c *AddCommand) addCollection(ctx context.Context, rec *reconcile.Reconciler, scraper *scrape.Scraper, resolver resolve.ModIDResolver, page *scrape.CollectionPage) error {
	logutil.GetLogger(ctx).Info("importing collection",
		zap.String("url", page.URL),
		zap.String("title", page.Title),
		zap.Int("children", len(page.Children)),
	)

	children, err := collectChildren(ctx, scraper, resolver, page.Children)
	if err != nil {
		return err
	}
	result, err := rec.ImportCollection(ctx, page.URL, page.Title, children)
	if err != nil {
		return err
	}

	fmt.Println(ui.Green.Render(fmt.Sprintf("+ collection %q: %d added, %d already listed, %d skipped (+%d mod ids)",
		page.Title, len(result.AddedIDs), len(result.DuplicateIDs), len(result.SkippedIDs), result.ModIDsAdded)))
	return nil
}

func (c *AddCommand) addItem(ctx context.Context, rec *reconcile.Reconciler, st *store.Store, scraper *scrape.Scraper, resolver resolve.ModIDResolver, id string) error {
	children, err := collectChildren(ctx, scraper, resolver, []string{id})
	if err != nil {
		return err
	}

	if c.withDeps && !children[0].Skipped {
		deps, err := c.collectDeps(ctx, st, scraper, resolver, children[0])
		if err != nil {
			return err
		}
		children = append(children, deps...)
	}

	result, err := rec.AddItems(ctx, children)
	if err != nil {
		return err
	}

	item := children[0].Item
	switch {
	case children[0].Skipped:
		fmt.Println(ui.Yellow.Render(fmt.Sprintf("= skipped %q (mod id unresolved)", item.Title)))
	case len(result.AddedIDs) > 0:
		fmt.Println(ui.Green.Render(fmt.Sprintf("+ %s [%s] (+%d mod ids, %d deps)",
			item.Title, item.Build, result.ModIDsAdded, len(result.AddedIDs)-1)))
	default:
		fmt.Println(ui.Yellow.Render(fmt.Sprintf("= already listed: %s", item.Title)))
	}
	return nil
}

// collectDeps scrapes the required items declared on the page. Dependencies
// without any mod ID are skipped; they are usually framework pages that ship
// nothing loadable.
func (c *AddCommand) collectDeps(ctx context.Context, st *store.Store, scraper *scrape.Scraper, resolver resolve.ModIDResolver, parent reconcile.Child) ([]reconcile.Child, error) {
	pending := make([]string, 0, len(parent.Item.Requires))
	for _, req := range parent.Item.Requires {
		if req == parent.ID || st.WorkshopIDs.Contains(req) {
			continue
		}
		pending = append(pending, req)
	}
	if len(pending) == 0 {
		return nil, nil
	}

	deps, err := collectChildren(ctx, scraper, resolver, pending)
	if err != nil {
		return nil, err
	}
	for i := range deps {
		if !deps[i].Skipped && len(deps[i].ModIDs) == 0 {
			deps[i].Skipped = true
			logutil.GetLogger(ctx).Warn("dependency has no mod id, skipping",
				zap.String("id", deps[i].ID),
				zap.String("title", deps[i].Item.Title),
			)
		}
	}
	return deps, nil
}

func init() {
	RegisterRunner("add", func() IRunner { return NewAddCommand() })
}
