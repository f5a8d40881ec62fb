package scrape

import (
	"context"
	"fmt"
	"html"

	"pzworkshop/internal/model"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// PageKind is the validated classification of a fetched Workshop page.
type PageKind int

const (
	// KindSingleItem is a plain Workshop item page.
	KindSingleItem PageKind = iota
	// KindRequiredItem is an item page carrying a "Required items" section.
	// Such pages are always standalone items, even when they also match
	// collection markers.
	KindRequiredItem
	// KindCollection is a collection page listing child items.
	KindCollection
)

// Cache stores scraped item metadata so repeat lookups skip the network.
type Cache interface {
	Lookup(ctx context.Context, id string) (model.WorkshopItem, bool, error)
	Store(ctx context.Context, item model.WorkshopItem) error
}

// CollectionPage is the parsed result of fetching a collection URL.
type CollectionPage struct {
	ID       string
	Title    string
	URL      string
	Children []string
}

// Scraper fetches and parses Workshop pages into fixed shapes. It performs
// no mutations of its own; callers hand its output to the reconciler.
type Scraper struct {
	fetcher Fetcher
	cache   Cache
}

// New builds a scraper. cache may be nil to always hit the network.
func New(fetcher Fetcher, cache Cache) *Scraper {
	return &Scraper{fetcher: fetcher, cache: cache}
}

// Classify decides what kind of page the HTML represents. A page matching
// both the required-items and collection heuristics classifies as a
// standalone required item.
func Classify(page string) PageKind {
	required := hasRequiredSection(page)
	collection := hasCollectionMarkers(html.UnescapeString(page))
	switch {
	case required:
		return KindRequiredItem
	case collection:
		return KindCollection
	default:
		return KindSingleItem
	}
}

// ScrapeItem fetches and parses metadata for a single Workshop ID, serving
// from the cache when possible.
func (s *Scraper) ScrapeItem(ctx context.Context, id string) (model.WorkshopItem, error) {
	if s.cache != nil {
		if item, ok, err := s.cache.Lookup(ctx, id); err != nil {
			logutil.GetLogger(ctx).Warn("scrape cache lookup failed", zap.String("id", id), zap.Error(err))
		} else if ok {
			return item, nil
		}
	}

	pageURL := model.ItemURL(id)
	page, err := s.fetcher.FetchPage(ctx, pageURL)
	if err != nil {
		return model.WorkshopItem{}, err
	}
	item := parseItem(id, pageURL, page)

	if s.cache != nil {
		if err := s.cache.Store(ctx, item); err != nil {
			logutil.GetLogger(ctx).Warn("scrape cache store failed", zap.String("id", id), zap.Error(err))
		}
	}
	return item, nil
}

// FetchCollection fetches url and, when it classifies as a collection,
// returns its title and child IDs. It returns (nil, nil) for non-collection
// pages so callers can fall back to single-item handling.
func (s *Scraper) FetchCollection(ctx context.Context, url string) (*CollectionPage, error) {
	id := ParseWorkshopID(url)
	if id == "" {
		return nil, fmt.Errorf("no workshop id in url %s", url)
	}
	page, err := s.fetcher.FetchPage(ctx, url)
	if err != nil {
		return nil, err
	}

	kind := Classify(page)
	if kind == KindRequiredItem && hasCollectionMarkers(html.UnescapeString(page)) {
		logutil.GetLogger(ctx).Warn("page matches both item and collection heuristics, treating as item",
			zap.String("url", url))
	}
	if kind != KindCollection {
		return nil, nil
	}

	children := ParseCollectionChildren(page, id)
	if len(children) == 0 {
		return nil, nil
	}
	title := ParseTitle(page)
	if title == "" {
		title = "Collection " + id
	}
	return &CollectionPage{ID: id, Title: title, URL: url, Children: children}, nil
}

func parseItem(id, pageURL, page string) model.WorkshopItem {
	title := ParseTitle(page)
	if title == "" {
		title = "(unknown)"
	}
	tags := ParseTags(page)
	build := ParseBuild(page, title, tags)
	if build == "" {
		build = "(unknown)"
	}
	mapFolders := ParseMapFolders(page)
	return model.WorkshopItem{
		ID:         id,
		Title:      title,
		Build:      build,
		URL:        pageURL,
		ModIDs:     ParseModIDs(page),
		Tags:       tags,
		Requires:   ParseRequiredIDs(page),
		MapFolders: mapFolders,
		IsMap:      len(mapFolders) > 0 || containsTag(tags, "Map"),
	}
}

func containsTag(tags []string, want string) bool {
	for _, t := range tags {
		if t == want {
			return true
		}
	}
	return false
}
