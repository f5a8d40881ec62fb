package store

import (
	"os"
	"path/filepath"
	"testing"

	"pzworkshop/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testItem(id, title string, mods ...string) model.WorkshopItem {
	return model.WorkshopItem{
		ID:         id,
		Title:      title,
		Build:      "41",
		URL:        model.ItemURL(id),
		ModIDs:     mods,
		Tags:       []string{"Build 41"},
		Requires:   []string{},
		MapFolders: []string{},
	}
}

func TestStoreSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s := New(dir)
	s.InsertItem(testItem("111", "First", "FirstMod"), []string{"FirstMod"})
	s.InsertItem(testItem("222", "Second", "SecondMod", "SecondAlt"), []string{"SecondMod"})
	s.SetCollection(model.Collection{
		Title: "My Collection",
		URL:   "https://steamcommunity.com/sharedfiles/filedetails/?id=999",
		Items: []string{"111", "222"},
		Added: []string{"222"},
	})
	s.Settings["last_dir"] = "/srv/pz"
	require.NoError(t, s.Save())

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"111", "222"}, loaded.WorkshopIDs.IDs())
	assert.Equal(t, []string{"FirstMod", "SecondMod"}, loaded.ModIDs.IDs())
	assert.Equal(t, "First", loaded.Meta["111"].Title)

	rec, ok := loaded.Collection("https://steamcommunity.com/sharedfiles/filedetails/?id=999")
	require.True(t, ok)
	assert.Equal(t, "My Collection", rec.Title)
	assert.Equal(t, []string{"222"}, rec.Added)
	assert.Equal(t, "/srv/pz", loaded.Settings["last_dir"])
}

func TestStoreLoadMissingDir(t *testing.T) {
	t.Parallel()

	s, err := Load(filepath.Join(t.TempDir(), "nothing-here"))
	require.NoError(t, err)
	assert.Equal(t, 0, s.WorkshopIDs.Len())
	assert.Empty(t, s.Collections)
}

func TestStoreLoadCorruptJSONFallsBackToEmpty(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, MetaFile), []byte("{not json"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, CollectionsFile), []byte("[broken"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, WorkshopIDsFile), []byte("123;456\n"), 0o644))

	s, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"123", "456"}, s.WorkshopIDs.IDs())
	assert.Empty(t, s.Meta)
	assert.Empty(t, s.Collections)
}

func TestStoreLoadNormalizesMeta(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	raw := `{
  "333": {"mods": ["RavenCreek"], "map_folders": ["Raven Creek"]},
  "444": {"title": "Plain Mod", "version": "41.78", "mods": ["Plain"]}
}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, MetaFile), []byte(raw), 0o644))

	s, err := Load(dir)
	require.NoError(t, err)

	mapItem := s.Meta["333"]
	assert.Equal(t, "(unknown)", mapItem.Title)
	assert.Equal(t, "(unknown)", mapItem.Build)
	assert.Equal(t, model.ItemURL("333"), mapItem.URL)
	assert.True(t, mapItem.IsMap, "map folders imply a map when is_map is absent")

	modItem := s.Meta["444"]
	assert.Equal(t, "Plain Mod", modItem.Title)
	assert.False(t, modItem.IsMap)
}

func TestInsertAndRemoveItemKeepListsInSync(t *testing.T) {
	t.Parallel()

	s := New(t.TempDir())
	inserted, mods := s.InsertItem(testItem("111", "First", "SharedMod", "OwnMod"), []string{"SharedMod", "OwnMod"})
	assert.True(t, inserted)
	assert.Equal(t, 2, mods)

	// Second item reuses SharedMod; only the new mod id counts.
	_, mods = s.InsertItem(testItem("222", "Second", "SharedMod"), []string{"SharedMod"})
	assert.Equal(t, 0, mods)

	assert.True(t, s.RemoveItem("111"))
	assert.False(t, s.WorkshopIDs.Contains("111"))
	assert.False(t, s.ModIDs.Contains("OwnMod"))
	// SharedMod was recorded on item 111's metadata, so it goes too. The
	// remaining item's refresh restores it on the next sync.
	_, ok := s.Meta["111"]
	assert.False(t, ok)

	assert.False(t, s.RemoveItem("111"), "second removal is a no-op")
}

func TestTouchMetaPreservesChosenModIDs(t *testing.T) {
	t.Parallel()

	s := New(t.TempDir())
	s.InsertItem(testItem("111", "First", "ChosenMod"), []string{"ChosenMod"})

	fresh := testItem("111", "First (updated)", "ChosenMod", "NewVariant")
	s.TouchMeta(fresh)

	got := s.Meta["111"]
	assert.Equal(t, "First (updated)", got.Title)
	assert.Equal(t, []string{"ChosenMod"}, got.ModIDs)

	// Unlisted ids are ignored entirely.
	s.TouchMeta(testItem("999", "Ghost"))
	_, ok := s.Meta["999"]
	assert.False(t, ok)
}

func TestOtherCollectionAdded(t *testing.T) {
	t.Parallel()

	s := New(t.TempDir())
	s.SetCollection(model.Collection{Title: "A", URL: "url-a", Items: []string{"1", "2"}, Added: []string{"1"}})
	s.SetCollection(model.Collection{Title: "B", URL: "url-b", Items: []string{"1"}, Added: []string{"1"}})

	assert.True(t, s.OtherCollectionAdded("1", "url-a"))
	assert.True(t, s.OtherCollectionAdded("1", "url-b"))
	assert.False(t, s.OtherCollectionAdded("2", "url-a"), "membership without added provenance does not count")
	assert.False(t, s.OtherCollectionAdded("3", "url-a"))
}

func TestCloneSharesNothing(t *testing.T) {
	t.Parallel()

	s := New(t.TempDir())
	s.InsertItem(testItem("111", "First", "FirstMod"), []string{"FirstMod"})
	s.SetCollection(model.Collection{Title: "A", URL: "url-a", Items: []string{"111"}, Added: []string{"111"}})

	c := s.Clone()
	c.RemoveItem("111")
	c.DeleteCollection("url-a")

	assert.True(t, s.WorkshopIDs.Contains("111"))
	_, ok := s.Collection("url-a")
	assert.True(t, ok)
}
