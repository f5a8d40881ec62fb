package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"pzworkshop/internal/model"
)

// File names inside the data directory. These match the layout the tool has
// always used, so existing data directories keep working.
const (
	WorkshopIDsFile = "WorkshopIDs.txt"
	ModIDsFile      = "ModIDs.txt"
	MetaFile        = "WorkshopMeta.json"
	CollectionsFile = "Collections.json"
	SettingsFile    = "Settings.json"
)

const unknownValue = "(unknown)"

// Store aggregates the persisted state of the tool: the two ID lists, the
// metadata cache, the collection records and user settings. Mutations are
// applied to a working copy (Clone), persisted with Save and swapped back in
// with Replace, so a failed write never leaves partial state visible.
type Store struct {
	dir string

	WorkshopIDs *IDList
	ModIDs      *IDList
	Meta        map[string]model.WorkshopItem
	Collections map[string]model.Collection
	Settings    map[string]any
}

// New returns an empty store rooted at dir.
func New(dir string) *Store {
	return &Store{
		dir:         dir,
		WorkshopIDs: NewIDList(),
		ModIDs:      NewIDList(),
		Meta:        make(map[string]model.WorkshopItem),
		Collections: make(map[string]model.Collection),
		Settings:    make(map[string]any),
	}
}

// Load reads all state files from dir. Missing files yield empty state;
// malformed metadata or collection files are treated as empty rather than
// fatal, matching how the tool has always recovered from hand-edited files.
func Load(dir string) (*Store, error) {
	s := New(dir)

	ws, err := readListFile(filepath.Join(dir, WorkshopIDsFile))
	if err != nil {
		return nil, err
	}
	s.WorkshopIDs = ws

	mods, err := readListFile(filepath.Join(dir, ModIDsFile))
	if err != nil {
		return nil, err
	}
	s.ModIDs = mods

	if err := s.loadMeta(); err != nil {
		return nil, err
	}
	if err := s.loadCollections(); err != nil {
		return nil, err
	}
	if err := s.loadSettings(); err != nil {
		return nil, err
	}
	return s, nil
}

// Dir returns the data directory the store persists to.
func (s *Store) Dir() string { return s.dir }

// Clone returns a deep copy of the store sharing nothing with the original.
func (s *Store) Clone() *Store {
	c := New(s.dir)
	c.WorkshopIDs = s.WorkshopIDs.Clone()
	c.ModIDs = s.ModIDs.Clone()
	for k, v := range s.Meta {
		c.Meta[k] = cloneItem(v)
	}
	for k, v := range s.Collections {
		c.Collections[k] = cloneCollection(v)
	}
	for k, v := range s.Settings {
		c.Settings[k] = v
	}
	return c
}

// Replace swaps the store's state for that of work. Call only after a
// successful Save on work.
func (s *Store) Replace(work *Store) {
	s.WorkshopIDs = work.WorkshopIDs
	s.ModIDs = work.ModIDs
	s.Meta = work.Meta
	s.Collections = work.Collections
	s.Settings = work.Settings
}

// InsertItem inserts a workshop item and its chosen mod IDs into the ID lists
// and records its metadata. It returns whether the workshop ID was new and
// how many mod IDs were added.
func (s *Store) InsertItem(item model.WorkshopItem, modIDs []string) (bool, int) {
	inserted := s.WorkshopIDs.Insert(item.ID)
	added := 0
	for _, mid := range modIDs {
		if s.ModIDs.Insert(mid) {
			added++
		}
	}
	s.Meta[item.ID] = cloneItem(item)
	return inserted, added
}

// RemoveItem removes a workshop ID, the mod IDs its metadata recorded, and
// the metadata entry itself. It returns false when the ID was not listed.
func (s *Store) RemoveItem(id string) bool {
	removed := s.WorkshopIDs.Remove(id)
	if item, ok := s.Meta[id]; ok {
		for _, mid := range item.ModIDs {
			s.ModIDs.Remove(mid)
		}
		delete(s.Meta, id)
	}
	return removed
}

// TouchMeta refreshes the stored metadata for an already listed workshop ID.
// The recorded mod IDs are preserved so the mod ID list stays consistent with
// what was chosen when the item was inserted.
func (s *Store) TouchMeta(item model.WorkshopItem) {
	if !s.WorkshopIDs.Contains(item.ID) {
		return
	}
	if prev, ok := s.Meta[item.ID]; ok {
		item.ModIDs = append([]string(nil), prev.ModIDs...)
	}
	s.Meta[item.ID] = cloneItem(item)
}

// Collection looks up a collection record by URL.
func (s *Store) Collection(url string) (model.Collection, bool) {
	c, ok := s.Collections[url]
	return c, ok
}

// SetCollection stores or replaces a collection record keyed by its URL.
func (s *Store) SetCollection(c model.Collection) {
	s.Collections[c.URL] = cloneCollection(c)
}

// DeleteCollection drops the record for url, reporting whether it existed.
func (s *Store) DeleteCollection(url string) bool {
	if _, ok := s.Collections[url]; !ok {
		return false
	}
	delete(s.Collections, url)
	return true
}

// OtherCollectionAdded reports whether any collection other than exceptURL
// recorded id in its Added set. Such IDs must survive removals driven by
// exceptURL's refresh or delete.
func (s *Store) OtherCollectionAdded(id, exceptURL string) bool {
	for url, c := range s.Collections {
		if url == exceptURL {
			continue
		}
		if c.HasAdded(id) {
			return true
		}
	}
	return false
}

// CollectionURLs returns the stored collection URLs in stable order.
func (s *Store) CollectionURLs() []string {
	urls := make([]string, 0, len(s.Collections))
	for url := range s.Collections {
		urls = append(urls, url)
	}
	sort.Strings(urls)
	return urls
}

// Save persists all state files. Each file is written to a temporary sibling
// and renamed into place, so readers never observe a torn file.
func (s *Store) Save() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("ensure data dir %s: %w", s.dir, err)
	}
	if err := writeListFile(filepath.Join(s.dir, WorkshopIDsFile), s.WorkshopIDs); err != nil {
		return err
	}
	if err := writeListFile(filepath.Join(s.dir, ModIDsFile), s.ModIDs); err != nil {
		return err
	}
	if err := writeJSONFile(filepath.Join(s.dir, MetaFile), s.Meta); err != nil {
		return err
	}
	if err := writeJSONFile(filepath.Join(s.dir, CollectionsFile), s.Collections); err != nil {
		return err
	}
	return writeJSONFile(filepath.Join(s.dir, SettingsFile), s.Settings)
}

func readListFile(path string) (*IDList, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewIDList(), nil
		}
		return nil, fmt.Errorf("read id list %s: %w", path, err)
	}
	return ParseLine(string(data)), nil
}

func writeListFile(path string, list *IDList) error {
	line := list.EncodeLine()
	if line != "" {
		line += "\n"
	}
	return writeFileAtomic(path, []byte(line))
}

func writeJSONFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	return writeFileAtomic(path, append(data, '\n'))
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

// rawItem mirrors the metadata JSON shape with optional fields kept nullable
// so defaults can be derived the same way older files expect.
type rawItem struct {
	Title      string   `json:"title"`
	Build      string   `json:"version"`
	URL        string   `json:"url"`
	ModIDs     []string `json:"mods"`
	Tags       []string `json:"tags"`
	Requires   []string `json:"requires"`
	MapFolders []string `json:"map_folders"`
	IsMap      *bool    `json:"is_map"`
}

func (s *Store) loadMeta() error {
	path := filepath.Join(s.dir, MetaFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read metadata %s: %w", path, err)
	}
	var raw map[string]rawItem
	if err := json.Unmarshal(data, &raw); err != nil {
		// Corrupt cache is rebuilt on the next refresh.
		s.Meta = make(map[string]model.WorkshopItem)
		return nil
	}
	for id, r := range raw {
		s.Meta[id] = normalizeItem(id, r)
	}
	return nil
}

func normalizeItem(id string, r rawItem) model.WorkshopItem {
	item := model.WorkshopItem{
		ID:         id,
		Title:      r.Title,
		Build:      r.Build,
		URL:        r.URL,
		ModIDs:     emptyIfNil(r.ModIDs),
		Tags:       emptyIfNil(r.Tags),
		Requires:   emptyIfNil(r.Requires),
		MapFolders: emptyIfNil(r.MapFolders),
	}
	if item.Title == "" {
		item.Title = unknownValue
	}
	if item.Build == "" {
		item.Build = unknownValue
	}
	if item.URL == "" {
		item.URL = model.ItemURL(id)
	}
	if r.IsMap != nil {
		item.IsMap = *r.IsMap
	} else {
		item.IsMap = len(item.MapFolders) > 0 || containsFold(item.Tags, "Map")
	}
	return item
}

func (s *Store) loadCollections() error {
	path := filepath.Join(s.dir, CollectionsFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read collections %s: %w", path, err)
	}
	var raw map[string]model.Collection
	if err := json.Unmarshal(data, &raw); err != nil {
		s.Collections = make(map[string]model.Collection)
		return nil
	}
	for url, c := range raw {
		if c.URL == "" {
			c.URL = url
		}
		if c.Title == "" {
			c.Title = "Collection"
		}
		c.Items = emptyIfNil(c.Items)
		c.Added = emptyIfNil(c.Added)
		s.Collections[c.URL] = c
	}
	return nil
}

func (s *Store) loadSettings() error {
	path := filepath.Join(s.dir, SettingsFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read settings %s: %w", path, err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}
	s.Settings = raw
	return nil
}

func cloneItem(item model.WorkshopItem) model.WorkshopItem {
	out := item
	out.ModIDs = append([]string(nil), item.ModIDs...)
	out.Tags = append([]string(nil), item.Tags...)
	out.Requires = append([]string(nil), item.Requires...)
	out.MapFolders = append([]string(nil), item.MapFolders...)
	return out
}

func cloneCollection(c model.Collection) model.Collection {
	out := c
	out.Items = append([]string(nil), c.Items...)
	out.Added = append([]string(nil), c.Added...)
	return out
}

func emptyIfNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

func containsFold(list []string, want string) bool {
	for _, v := range list {
		if strings.EqualFold(v, want) {
			return true
		}
	}
	return false
}
