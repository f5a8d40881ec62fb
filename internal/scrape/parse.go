package scrape

import (
	"html"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// allowedTags is the canonical tag set shown on Project Zomboid Workshop
// pages. Scraped tag candidates are filtered against it because the raw
// extraction pulls in arbitrary anchor/span text.
var allowedTags = []string{
	"Build 40", "Build 41", "Build 42", "Animals", "Audio", "Balance", "Building", "Clothing/Armor",
	"Farming", "Food", "Framework", "Hardmode", "Interface", "Items", "Language/Translation", "Literature",
	"Map", "Military", "Misc", "Models", "Multiplayer", "Pop Culture", "QoL", "Realistic", "Silly/Fun",
	"Skills", "Textures", "Traits", "Vehicles", "Weapons", "WIP",
}

var allowedTagsMap = func() map[string]string {
	m := make(map[string]string, len(allowedTags))
	for _, t := range allowedTags {
		m[strings.ToLower(t)] = t
	}
	return m
}()

var (
	reURLID         = regexp.MustCompile(`[?&]id=(\d+)`)
	reModIDLine     = regexp.MustCompile(`(?im)\bMod\s*IDs?\s*[:\-]\s*([^\r\n<]+)`)
	reModIDCompact  = regexp.MustCompile(`(?im)\bModID\s*[:\-]\s*([^\r\n<]+)`)
	reHTMLTag       = regexp.MustCompile(`<[^>]+>`)
	reModIDCutoff   = regexp.MustCompile(`(?i)\b(Workshop\s*ID|Required|Map|IDs?)\b`)
	reModIDSep      = regexp.MustCompile(`[,;|/\s]+`)
	reModIDValid    = regexp.MustCompile(`^[A-Za-z0-9_\-]+$`)
	reItemTitle     = regexp.MustCompile(`(?is)<div[^>]*class="workshopItemTitle"[^>]*>(.*?)</div>`)
	rePageTitle     = regexp.MustCompile(`(?is)<title>(.*?)</title>`)
	reTitleSuffix   = regexp.MustCompile(`\s*::\s*Steam Community\s*$`)
	reSpace         = regexp.MustCompile(`\s+`)
	reDescStart     = regexp.MustCompile(`(?is)<div[^>]*class="workshopItemDescription"[^>]*>`)
	reDescEnd       = regexp.MustCompile(`(?is)</div>`)
	reBuildTag      = regexp.MustCompile(`(?i)Build\s*(\d+(?:\.\d+)*)`)
	reBuildKnown    = regexp.MustCompile(`(?i)Build\s*(4[12](?:\.\d+){0,2})`)
	reBuildBare     = regexp.MustCompile(`\b(4[12](?:\.\d+){1,2})\b`)
	reBuildBracket  = regexp.MustCompile(`\[(4[12](?:\.\d+){1,2})\]`)
	reTagCandidates = regexp.MustCompile(`>\s*([^<>\r\n]+?)\s*<`)
	reMapFolder     = regexp.MustCompile(`(?im)Map\s*Folder\s*:\s*([^\r\n<]+)`)
	reFileLink      = regexp.MustCompile(`(?i)sharedfiles/filedetails/\?id=(\d+)`)
	rePublishedAttr = regexp.MustCompile(`(?i)data-publishedfileid="(\d+)"`)
	rePublishedJSON = regexp.MustCompile(`(?i)publishedfileid"?\s*[:=]\s*"?(\d+)"?`)
	reRequiredHint  = regexp.MustCompile(`(?i)Required\s+(items|mods?)`)
)

// ParseWorkshopID extracts the numeric Workshop ID from a page URL.
func ParseWorkshopID(rawurl string) string {
	if u, err := url.Parse(rawurl); err == nil {
		if id := u.Query().Get("id"); id != "" && isDigits(id) {
			return id
		}
	}
	if m := reURLID.FindStringSubmatch(rawurl); m != nil {
		return m[1]
	}
	return ""
}

// ParseModIDs finds Mod ID declarations in the page description. Multiple
// IDs on one line split on common separators; ordering is preserved and
// duplicates collapse case-insensitively.
func ParseModIDs(page string) []string {
	// Tags become line breaks so IDs wrapped in markup keep their own line.
	text := reHTMLTag.ReplaceAllString(html.UnescapeString(page), "\n")

	var found []string
	for _, re := range []*regexp.Regexp{reModIDLine, reModIDCompact} {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			line := strings.TrimSpace(m[1])
			// Trim trailing keywords so adjacent description content is not
			// mistaken for more IDs.
			if loc := reModIDCutoff.FindStringIndex(line); loc != nil {
				line = line[:loc[0]]
			}
			for _, part := range reModIDSep.Split(strings.TrimSpace(line), -1) {
				part = strings.TrimSpace(part)
				if part != "" && reModIDValid.MatchString(part) {
					found = append(found, part)
				}
			}
		}
	}
	return dedupeFold(found)
}

// ParseTitle extracts the item title, falling back to the page <title>.
func ParseTitle(page string) string {
	if m := reItemTitle.FindStringSubmatch(page); m != nil {
		title := reHTMLTag.ReplaceAllString(m[1], " ")
		return strings.TrimSpace(reSpace.ReplaceAllString(html.UnescapeString(title), " "))
	}
	if m := rePageTitle.FindStringSubmatch(page); m != nil {
		title := reTitleSuffix.ReplaceAllString(strings.TrimSpace(m[1]), "")
		return strings.TrimSpace(reSpace.ReplaceAllString(html.UnescapeString(title), " "))
	}
	return ""
}

// ParseTags collects the page's tags filtered to the canonical allowed set.
func ParseTags(page string) []string {
	text := html.UnescapeString(page)
	seen := make(map[string]struct{})
	var out []string
	for _, m := range reTagCandidates.FindAllStringSubmatch(text, -1) {
		candidate := reSpace.ReplaceAllString(strings.TrimSpace(m[1]), " ")
		if len(candidate) > 40 {
			continue
		}
		key := strings.ToLower(candidate)
		canonical, ok := allowedTagsMap[key]
		if !ok {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, canonical)
	}
	return out
}

// ParseBuild derives the game build an item targets: the newest build tag
// wins, then the description, then the title.
func ParseBuild(page, title string, tags []string) string {
	if b := buildFromTags(tags); b != "" {
		return b
	}
	if b := buildFromDescription(page); b != "" {
		return b
	}
	return buildFromTitle(title)
}

func buildFromTags(tags []string) string {
	type versioned struct {
		parts []int
		text  string
	}
	var found []versioned
	for _, t := range tags {
		m := reBuildTag.FindStringSubmatch(t)
		if m == nil {
			continue
		}
		var parts []int
		for _, p := range strings.Split(m[1], ".") {
			n, _ := strconv.Atoi(p)
			parts = append(parts, n)
		}
		found = append(found, versioned{parts: parts, text: m[1]})
	}
	if len(found) == 0 {
		return ""
	}
	sort.Slice(found, func(i, j int) bool {
		return lessVersion(found[i].parts, found[j].parts)
	})
	return found[len(found)-1].text
}

func buildFromDescription(page string) string {
	text := html.UnescapeString(page)
	desc := extractBetween(text, reDescStart, reDescEnd)
	if desc == "" {
		desc = text
	}
	desc = reSpace.ReplaceAllString(reHTMLTag.ReplaceAllString(desc, " "), " ")
	for _, re := range []*regexp.Regexp{reBuildKnown, reBuildBare, reBuildBracket} {
		if m := re.FindStringSubmatch(desc); m != nil {
			return m[1]
		}
	}
	if m := reBuildTag.FindStringSubmatch(desc); m != nil {
		return m[1]
	}
	return ""
}

var (
	reTitleBuildBracket = regexp.MustCompile(`(?i)\[(?:Build\s*)?(B?\s*\d+(?:[./]\d+)*)\]`)
	reTitleBuildToken   = regexp.MustCompile(`(?i)\bB\s*(\d+(?:[./]\d+)*)\b`)
)

func buildFromTitle(title string) string {
	if title == "" {
		return ""
	}
	if m := reTitleBuildBracket.FindStringSubmatch(title); m != nil {
		return reSpace.ReplaceAllString(m[1], "")
	}
	if m := reTitleBuildToken.FindStringSubmatch(title); m != nil {
		return reSpace.ReplaceAllString(m[1], "")
	}
	if m := reBuildTag.FindStringSubmatch(title); m != nil {
		return m[1]
	}
	return ""
}

// ParseMapFolders extracts "Map Folder:" declarations from the description.
func ParseMapFolders(page string) []string {
	text := html.UnescapeString(page)
	desc := extractBetween(text, reDescStart, reDescEnd)
	if desc == "" {
		desc = text
	}
	var folders []string
	for _, m := range reMapFolder.FindAllStringSubmatch(desc, -1) {
		cleaned := strings.TrimSpace(reHTMLTag.ReplaceAllString(m[1], " "))
		for _, part := range strings.Split(cleaned, ",") {
			if part = strings.TrimSpace(part); part != "" {
				folders = append(folders, part)
			}
		}
	}
	return dedupeFold(folders)
}

// ParseRequiredIDs extracts the Workshop IDs linked from a page's
// "Required items" section. Links near the marker are preferred; when the
// marker yields nothing the whole page is scanned.
func ParseRequiredIDs(page string) []string {
	text := html.UnescapeString(page)
	var ids []string
	for _, loc := range reRequiredHint.FindAllStringIndex(text, -1) {
		start := loc[0] - 200
		if start < 0 {
			start = 0
		}
		end := start + 4000
		if end > len(text) {
			end = len(text)
		}
		ids = append(ids, extractLinkedIDs(text[start:end])...)
	}
	if len(ids) == 0 {
		ids = extractLinkedIDs(text)
	}
	return dedupe(ids)
}

// ParseCollectionChildren extracts child item IDs from a collection page.
// It returns nil when the page does not look like a collection, including
// any page carrying a "Required items" section, which is always treated as
// a standalone item.
func ParseCollectionChildren(page, parentID string) []string {
	text := html.UnescapeString(page)
	if reRequiredHint.MatchString(text) {
		return nil
	}
	if !hasCollectionMarkers(text) {
		return nil
	}

	var ids []string
	ids = append(ids, extractLinkedIDs(text)...)
	for _, m := range rePublishedAttr.FindAllStringSubmatch(text, -1) {
		ids = append(ids, m[1])
	}
	for _, m := range rePublishedJSON.FindAllStringSubmatch(text, -1) {
		ids = append(ids, m[1])
	}

	seen := map[string]struct{}{}
	if parentID != "" {
		seen[parentID] = struct{}{}
	}
	var out []string
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

var (
	reCollectionClass = regexp.MustCompile(`(?i)workshopCollection|collectionChildren|collectionItems|workshopItemCollection|collectionHeader`)
	reCollectionVerbs = regexp.MustCompile(`(?i)Subscribe\s+to\s+all|Unsubscribe\s+from\s+all|Save\s+to\s+Collection`)
	reCollectionItems = regexp.MustCompile(`(?i)ITEMS\s*\(\d+\)`)
	reCollectionQuery = regexp.MustCompile(`(?i)section=collections`)
)

func hasCollectionMarkers(text string) bool {
	return reCollectionClass.MatchString(text) ||
		reCollectionVerbs.MatchString(text) ||
		reCollectionItems.MatchString(text) ||
		reCollectionQuery.MatchString(text)
}

func hasRequiredSection(text string) bool {
	return reRequiredHint.MatchString(html.UnescapeString(text))
}

func extractLinkedIDs(text string) []string {
	var ids []string
	for _, m := range reFileLink.FindAllStringSubmatch(text, -1) {
		ids = append(ids, m[1])
	}
	return ids
}

func extractBetween(text string, start, end *regexp.Regexp) string {
	s := start.FindStringIndex(text)
	if s == nil {
		return ""
	}
	rest := text[s[1]:]
	e := end.FindStringIndex(rest)
	if e == nil {
		return ""
	}
	return rest[:e[0]]
}

func lessVersion(a, b []int) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	var out []string
	for _, v := range in {
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func dedupeFold(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	var out []string
	for _, v := range in {
		key := strings.ToLower(v)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}
