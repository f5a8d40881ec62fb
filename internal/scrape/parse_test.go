package scrape

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseWorkshopID(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "2392709985", ParseWorkshopID("https://steamcommunity.com/sharedfiles/filedetails/?id=2392709985"))
	assert.Equal(t, "123", ParseWorkshopID("https://steamcommunity.com/workshop/filedetails/?l=english&id=123"))
	assert.Equal(t, "", ParseWorkshopID("https://steamcommunity.com/sharedfiles/filedetails/?id=abc"))
	assert.Equal(t, "", ParseWorkshopID("https://example.com/nothing"))
}

func TestParseModIDsSingle(t *testing.T) {
	t.Parallel()

	page := `<div class="workshopItemDescription">Workshop ID: 2392709985<br>Mod ID: BetterSorting</div>`
	assert.Equal(t, []string{"BetterSorting"}, ParseModIDs(page))
}

func TestParseModIDsMultipleSeparators(t *testing.T) {
	t.Parallel()

	page := "Mod IDs: Alpha, Beta; Gamma"
	assert.Equal(t, []string{"Alpha", "Beta", "Gamma"}, ParseModIDs(page))
}

func TestParseModIDsCutsAtAdjacentKeywords(t *testing.T) {
	t.Parallel()

	page := "Mod ID: RavenCreek Map Folder: Raven Creek"
	assert.Equal(t, []string{"RavenCreek"}, ParseModIDs(page))

	page = "Mod ID: Alpha Workshop ID: 123"
	assert.Equal(t, []string{"Alpha"}, ParseModIDs(page))
}

func TestParseModIDsDedupesCaseInsensitively(t *testing.T) {
	t.Parallel()

	page := "Mod ID: Alpha<br>ModID: alpha"
	assert.Equal(t, []string{"Alpha"}, ParseModIDs(page))
}

func TestParseModIDsStripsMarkup(t *testing.T) {
	t.Parallel()

	page := `Mod ID: <b>Alpha</b>&amp;more`
	// The entity decodes to '&', an invalid mod id char, so only Alpha stays.
	assert.Equal(t, []string{"Alpha"}, ParseModIDs(page))
}

func TestParseTitle(t *testing.T) {
	t.Parallel()

	page := `<html><head><title>Steam Workshop :: Better Sorting :: Steam Community</title></head>
<body><div class="workshopItemTitle">Better   Sorting</div></body></html>`
	assert.Equal(t, "Better Sorting", ParseTitle(page))

	fallback := `<html><head><title>Autotsar Trailers :: Steam Community</title></head><body></body></html>`
	assert.Equal(t, "Autotsar Trailers", ParseTitle(fallback))

	assert.Equal(t, "", ParseTitle("<html></html>"))
}

func TestParseTagsFiltersToAllowedSet(t *testing.T) {
	t.Parallel()

	page := `<a>Build 41</a><a>Weapons</a><span>Some random anchor text</span><a>build 41</a><a>weapons</a>`
	tags := ParseTags(page)
	assert.Equal(t, []string{"Build 41", "Weapons"}, tags)
}

func TestParseBuildPrefersNewestTag(t *testing.T) {
	t.Parallel()

	build := ParseBuild("", "Some Mod", []string{"Build 40", "Build 41"})
	assert.Equal(t, "41", build)
}

func TestParseBuildFromDescription(t *testing.T) {
	t.Parallel()

	page := `<div class="workshopItemDescription">Works on Build 41.78 and later.</div>`
	assert.Equal(t, "41.78", ParseBuild(page, "Some Mod", nil))
}

func TestParseBuildFromTitle(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "41.78", ParseBuild("", "Cool Mod [41.78]", nil))
	assert.Equal(t, "42", ParseBuild("", "Cool Mod B42", nil))
	assert.Equal(t, "", ParseBuild("", "Cool Mod", nil))
}

func TestParseMapFolders(t *testing.T) {
	t.Parallel()

	page := `<div class="workshopItemDescription">Map Folder: Raven Creek, RC Extra<br>Map Folder: Raven Creek</div>`
	assert.Equal(t, []string{"Raven Creek", "RC Extra"}, ParseMapFolders(page))
}

func TestParseRequiredIDsWindowsAroundMarker(t *testing.T) {
	t.Parallel()

	page := `<div class="requiredItems">Required items:
<a href="https://steamcommunity.com/sharedfiles/filedetails/?id=111">dep one</a>
<a href="https://steamcommunity.com/sharedfiles/filedetails/?id=222">dep two</a>
</div>`
	assert.Equal(t, []string{"111", "222"}, ParseRequiredIDs(page))
}

func TestParseRequiredIDsEmptyWithoutLinks(t *testing.T) {
	t.Parallel()

	assert.Empty(t, ParseRequiredIDs("<html>no deps here</html>"))
}

func TestLinkedIDsRequireExactFiledetailsPath(t *testing.T) {
	t.Parallel()

	page := `Required items:
<a href="https://steamcommunity.com/sharedfiles/fildetails/?id=333">typo path</a>
<a href="https://steamcommunity.com/sharedfiles/filedetails/?id=444">real path</a>`
	assert.Equal(t, []string{"444"}, ParseRequiredIDs(page))
}

func TestParseCollectionChildren(t *testing.T) {
	t.Parallel()

	page := `<div class="workshopCollection">
<div class="collectionItem" data-publishedfileid="100"></div>
<a href="https://steamcommunity.com/sharedfiles/filedetails/?id=200">child</a>
<a href="https://steamcommunity.com/sharedfiles/filedetails/?id=900">parent self link</a>
ITEMS (2)
</div>`
	children := ParseCollectionChildren(page, "900")
	assert.Equal(t, []string{"200", "100"}, children)
}

func TestParseCollectionChildrenRequiredSectionWins(t *testing.T) {
	t.Parallel()

	page := `<div class="workshopCollection">Required items:
<a href="https://steamcommunity.com/sharedfiles/filedetails/?id=100">dep</a></div>`
	assert.Nil(t, ParseCollectionChildren(page, "900"))
}

func TestParseCollectionChildrenPlainItemPage(t *testing.T) {
	t.Parallel()

	page := `<div class="workshopItemTitle">Just an item</div>
<a href="https://steamcommunity.com/sharedfiles/filedetails/?id=100">related</a>`
	assert.Nil(t, ParseCollectionChildren(page, "900"))
}

func TestClassify(t *testing.T) {
	t.Parallel()

	collection := `<div class="workshopCollection">Subscribe to all ITEMS (3)</div>`
	assert.Equal(t, KindCollection, Classify(collection))

	item := `<div class="workshopItemTitle">Plain</div>`
	assert.Equal(t, KindSingleItem, Classify(item))

	// Pages with a required items section classify as items even when
	// collection markers are present.
	both := `<div class="workshopCollection">Required items: Subscribe to all</div>`
	assert.Equal(t, KindRequiredItem, Classify(both))
}
