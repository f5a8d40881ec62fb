package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pzworkshop/internal/config"
	"pzworkshop/internal/db"
	"pzworkshop/internal/model"
	"pzworkshop/internal/reconcile"
	"pzworkshop/internal/resolve"
	"pzworkshop/internal/scrape"
	"pzworkshop/internal/store"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

func loadConfig(explicit string) (*config.Config, error) {
	if explicit != "" {
		return config.Load(explicit)
	}
	return config.LoadDefault()
}

func openStore(cfg *config.Config) (*store.Store, error) {
	return store.Load(cfg.DataDir)
}

// newScraper wires the page fetcher with the sqlite page cache unless caching
// is disabled for this run.
func newScraper(ctx context.Context, cfg *config.Config, noCache bool) (*scrape.Scraper, error) {
	fetcher := scrape.NewHTTPFetcher(
		time.Duration(cfg.Scrape.TimeoutSeconds)*time.Second,
		cfg.Scrape.UserAgent,
	)
	if noCache {
		return scrape.New(fetcher, nil), nil
	}

	if db.Default() == nil {
		handle, err := db.Open(cfg.CachePath())
		if err != nil {
			return nil, err
		}
		if err := db.EnsureSchema(ctx, handle); err != nil {
			return nil, fmt.Errorf("init cache schema: %w", err)
		}
		db.SetDefault(handle)
	}

	ttl := time.Duration(cfg.Scrape.CacheTTLHours) * time.Hour
	return scrape.New(fetcher, db.NewPageCacheDAO(ttl)), nil
}

// knownItemResolver bypasses the mod ID choice for items already in the
// workshop list. Their stored choice stays authoritative, so refreshes only
// prompt for children that are new upstream.
type knownItemResolver struct {
	inner resolve.ModIDResolver
	st    *store.Store
}

func (r knownItemResolver) Resolve(ctx context.Context, item model.WorkshopItem, options []string) ([]string, bool, error) {
	if r.st.WorkshopIDs.Contains(item.ID) {
		return options, true, nil
	}
	return r.inner.Resolve(ctx, item, options)
}

func pickResolver(yes, skipAmbiguous bool) resolve.ModIDResolver {
	switch {
	case yes:
		return resolve.FirstResolver{}
	case skipAmbiguous:
		return resolve.SkipResolver{}
	default:
		return resolve.TerminalResolver{}
	}
}

// collectChildren scrapes each workshop ID and settles its mod ID choice.
// Items exposing several mod IDs go through the resolver; an unresolved
// choice marks the child skipped so the reconciler leaves it out entirely.
func collectChildren(ctx context.Context, scraper *scrape.Scraper, resolver resolve.ModIDResolver, ids []string) ([]reconcile.Child, error) {
	children := make([]reconcile.Child, 0, len(ids))
	for _, id := range ids {
		item, err := scraper.ScrapeItem(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("scrape item %s: %w", id, err)
		}
		child := reconcile.Child{ID: id, Item: item}
		if len(item.ModIDs) > 1 {
			chosen, ok, err := resolver.Resolve(ctx, item, item.ModIDs)
			if err != nil {
				return nil, err
			}
			if !ok {
				child.Skipped = true
				logutil.GetLogger(ctx).Warn("mod id unresolved, skipping item",
					zap.String("id", id),
					zap.String("title", item.Title),
				)
				children = append(children, child)
				continue
			}
			child.Item.ModIDs = chosen
		}
		child.ModIDs = child.Item.ModIDs
		children = append(children, child)
	}
	return children, nil
}

func splitCommaList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
