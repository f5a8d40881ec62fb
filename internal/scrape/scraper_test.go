package scrape

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"pzworkshop/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	pages   map[string]string
	fetched int
}

func (f *fakeFetcher) FetchPage(_ context.Context, url string) (string, error) {
	f.fetched++
	page, ok := f.pages[url]
	if !ok {
		return "", fmt.Errorf("no page for %s", url)
	}
	return page, nil
}

type fakeCache struct {
	items  map[string]model.WorkshopItem
	failed bool
}

func newFakeCache() *fakeCache {
	return &fakeCache{items: map[string]model.WorkshopItem{}}
}

func (c *fakeCache) Lookup(_ context.Context, id string) (model.WorkshopItem, bool, error) {
	if c.failed {
		return model.WorkshopItem{}, false, errors.New("cache down")
	}
	item, ok := c.items[id]
	return item, ok, nil
}

func (c *fakeCache) Store(_ context.Context, item model.WorkshopItem) error {
	if c.failed {
		return errors.New("cache down")
	}
	c.items[item.ID] = item
	return nil
}

const itemPage = `<html><head><title>Steam Workshop :: Better Sorting</title></head><body>
<div class="workshopItemTitle">Better Sorting</div>
<a>Build 41</a><a>Items</a>
<div class="workshopItemDescription">Workshop ID: 2392709985<br>Mod ID: BetterSorting</div>
</body></html>`

const mapPage = `<html><body>
<div class="workshopItemTitle">Raven Creek</div>
<a>Build 41</a><a>Map</a>
<div class="workshopItemDescription">Mod ID: RavenCreek<br>Map Folder: Raven Creek</div>
</body></html>`

const collectionPage = `<html><body>
<div class="workshopItemTitle">Server Pack</div>
<div class="workshopCollection">Subscribe to all ITEMS (2)
<a href="https://steamcommunity.com/sharedfiles/filedetails/?id=111">one</a>
<a href="https://steamcommunity.com/sharedfiles/filedetails/?id=222">two</a>
</div></body></html>`

func TestScrapeItemParsesMetadata(t *testing.T) {
	t.Parallel()

	id := "2392709985"
	fetcher := &fakeFetcher{pages: map[string]string{model.ItemURL(id): itemPage}}
	s := New(fetcher, nil)

	item, err := s.ScrapeItem(context.Background(), id)
	require.NoError(t, err)

	assert.Equal(t, "Better Sorting", item.Title)
	assert.Equal(t, "41", item.Build)
	assert.Equal(t, []string{"BetterSorting"}, item.ModIDs)
	assert.Equal(t, []string{"Build 41", "Items"}, item.Tags)
	assert.False(t, item.IsMap)
}

func TestScrapeItemDetectsMaps(t *testing.T) {
	t.Parallel()

	id := "2196102849"
	fetcher := &fakeFetcher{pages: map[string]string{model.ItemURL(id): mapPage}}
	s := New(fetcher, nil)

	item, err := s.ScrapeItem(context.Background(), id)
	require.NoError(t, err)

	assert.True(t, item.IsMap)
	assert.Equal(t, []string{"Raven Creek"}, item.MapFolders)
}

func TestScrapeItemUsesCache(t *testing.T) {
	t.Parallel()

	id := "2392709985"
	fetcher := &fakeFetcher{pages: map[string]string{model.ItemURL(id): itemPage}}
	cache := newFakeCache()
	s := New(fetcher, cache)

	first, err := s.ScrapeItem(context.Background(), id)
	require.NoError(t, err)
	second, err := s.ScrapeItem(context.Background(), id)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, fetcher.fetched, "second lookup must come from the cache")
}

func TestScrapeItemSurvivesCacheFailure(t *testing.T) {
	t.Parallel()

	id := "2392709985"
	fetcher := &fakeFetcher{pages: map[string]string{model.ItemURL(id): itemPage}}
	cache := newFakeCache()
	cache.failed = true
	s := New(fetcher, cache)

	item, err := s.ScrapeItem(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Better Sorting", item.Title)
}

func TestFetchCollection(t *testing.T) {
	t.Parallel()

	url := "https://steamcommunity.com/sharedfiles/filedetails/?id=900"
	fetcher := &fakeFetcher{pages: map[string]string{url: collectionPage}}
	s := New(fetcher, nil)

	page, err := s.FetchCollection(context.Background(), url)
	require.NoError(t, err)
	require.NotNil(t, page)

	assert.Equal(t, "900", page.ID)
	assert.Equal(t, "Server Pack", page.Title)
	assert.Equal(t, []string{"111", "222"}, page.Children)
}

func TestFetchCollectionNilForItemPages(t *testing.T) {
	t.Parallel()

	url := "https://steamcommunity.com/sharedfiles/filedetails/?id=2392709985"
	fetcher := &fakeFetcher{pages: map[string]string{url: itemPage}}
	s := New(fetcher, nil)

	page, err := s.FetchCollection(context.Background(), url)
	require.NoError(t, err)
	assert.Nil(t, page)
}

func TestFetchCollectionRejectsURLWithoutID(t *testing.T) {
	t.Parallel()

	s := New(&fakeFetcher{}, nil)
	_, err := s.FetchCollection(context.Background(), "https://example.com/")
	assert.Error(t, err)
}
