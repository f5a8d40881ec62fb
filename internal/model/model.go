package model

import "fmt"

const filedetailsURL = "https://steamcommunity.com/sharedfiles/filedetails/?id=%s"

// ItemURL builds the canonical Workshop page URL for an item ID.
func ItemURL(id string) string {
	return fmt.Sprintf(filedetailsURL, id)
}

// WorkshopItem is the cached metadata record for a single Workshop page.
type WorkshopItem struct {
	ID         string   `json:"-"`
	Title      string   `json:"title"`
	Build      string   `json:"version"`
	URL        string   `json:"url"`
	ModIDs     []string `json:"mods"`
	Tags       []string `json:"tags"`
	Requires   []string `json:"requires"`
	MapFolders []string `json:"map_folders"`
	IsMap      bool     `json:"is_map"`
}

// Collection tracks a Workshop collection and the provenance of its children.
// Items holds every child ID known to belong to the collection; Added holds
// only the children this collection itself inserted into the ID lists. Added
// is always a subset of Items.
type Collection struct {
	Title string   `json:"title"`
	URL   string   `json:"url"`
	Items []string `json:"items"`
	Added []string `json:"added"`
}

// HasAdded reports whether the collection recorded id as one it inserted.
func (c Collection) HasAdded(id string) bool {
	for _, v := range c.Added {
		if v == id {
			return true
		}
	}
	return false
}

// HasItem reports whether id is a known child of the collection.
func (c Collection) HasItem(id string) bool {
	for _, v := range c.Items {
		if v == id {
			return true
		}
	}
	return false
}

// ImportResult summarises an ImportCollection call.
type ImportResult struct {
	AddedIDs     []string `json:"added"`
	DuplicateIDs []string `json:"duplicates"`
	SkippedIDs   []string `json:"skipped"`
	ModIDsAdded  int      `json:"mod_ids_added"`
}

// RefreshResult summarises a RefreshCollection call.
type RefreshResult struct {
	AddedIDs     []string `json:"added"`
	RemovedIDs   []string `json:"removed"`
	UnchangedIDs []string `json:"unchanged"`
	SkippedIDs   []string `json:"skipped"`
}

// DeleteResult summarises a DeleteCollection call.
type DeleteResult struct {
	RemovedIDs []string `json:"removed"`
	KeptIDs    []string `json:"kept"`
}
