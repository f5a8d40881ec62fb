package app

import (
	"context"
	"errors"
	"testing"

	"pzworkshop/internal/model"
	"pzworkshop/internal/resolve"
	"pzworkshop/internal/scrape"
	"pzworkshop/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitCommaList(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"a", "b"}, splitCommaList(" a ,, b ,"))
	assert.Empty(t, splitCommaList(""))
	assert.Empty(t, splitCommaList(" , "))
}

func TestPickResolver(t *testing.T) {
	t.Parallel()

	assert.IsType(t, resolve.FirstResolver{}, pickResolver(true, false))
	assert.IsType(t, resolve.SkipResolver{}, pickResolver(false, true))
	assert.IsType(t, resolve.TerminalResolver{}, pickResolver(false, false))
}

type listFetcher struct {
	pages map[string]string
}

func (f *listFetcher) FetchPage(_ context.Context, url string) (string, error) {
	return f.pages[url], nil
}

func TestCollectChildrenResolvesAmbiguousModIDs(t *testing.T) {
	t.Parallel()

	single := `<div class="workshopItemTitle">Single</div><div class="workshopItemDescription">Mod ID: OnlyOne</div>`
	multi := `<div class="workshopItemTitle">Multi</div><div class="workshopItemDescription">Mod IDs: First, Second</div>`
	fetcher := &listFetcher{pages: map[string]string{
		model.ItemURL("1"): single,
		model.ItemURL("2"): multi,
	}}
	scraper := scrape.New(fetcher, nil)

	children, err := collectChildren(context.Background(), scraper, resolve.FirstResolver{}, []string{"1", "2"})
	require.NoError(t, err)
	require.Len(t, children, 2)

	assert.Equal(t, []string{"OnlyOne"}, children[0].ModIDs)
	assert.False(t, children[0].Skipped)
	assert.Equal(t, []string{"First"}, children[1].ModIDs, "--yes takes the first mod id")
	assert.Equal(t, []string{"First"}, children[1].Item.ModIDs, "metadata records the chosen id only")
}

func TestCollectChildrenSkipsUnresolved(t *testing.T) {
	t.Parallel()

	multi := `<div class="workshopItemTitle">Multi</div><div class="workshopItemDescription">Mod IDs: First, Second</div>`
	fetcher := &listFetcher{pages: map[string]string{model.ItemURL("2"): multi}}
	scraper := scrape.New(fetcher, nil)

	children, err := collectChildren(context.Background(), scraper, resolve.SkipResolver{}, []string{"2"})
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.True(t, children[0].Skipped)
}

type refusingResolver struct{}

func (refusingResolver) Resolve(context.Context, model.WorkshopItem, []string) ([]string, bool, error) {
	return nil, false, errors.New("must not be consulted")
}

func TestKnownItemResolverBypassesListedIDs(t *testing.T) {
	t.Parallel()

	st := store.New(t.TempDir())
	st.InsertItem(model.WorkshopItem{ID: "2", Title: "Multi", ModIDs: []string{"First"}}, []string{"First"})

	r := knownItemResolver{inner: refusingResolver{}, st: st}

	chosen, ok, err := r.Resolve(context.Background(), model.WorkshopItem{ID: "2"}, []string{"First", "Second"})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"First", "Second"}, chosen)

	// Unlisted ids still go through the real resolver.
	_, _, err = r.Resolve(context.Background(), model.WorkshopItem{ID: "9"}, []string{"A", "B"})
	assert.Error(t, err)
}
