package reconcile

import (
	"context"
	"errors"
	"fmt"

	"pzworkshop/internal/model"
	"pzworkshop/internal/store"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

var (
	// ErrCollectionExists is returned when importing a collection whose URL
	// is already tracked; callers should refresh instead.
	ErrCollectionExists = errors.New("collection already added")
	// ErrUnknownCollection is returned when refreshing or deleting a
	// collection that is not tracked.
	ErrUnknownCollection = errors.New("collection not found")
)

// Child is one collection member as handed to the reconciler: scraped
// metadata plus the resolved mod ID choice. Skipped marks children whose
// mod ID prompt was left unresolved; they are left out of the collection
// record entirely.
type Child struct {
	ID      string
	Item    model.WorkshopItem
	ModIDs  []string
	Skipped bool
}

// Reconciler keeps collection records consistent with their live Workshop
// pages and keeps the ID lists consistent with those records, without ever
// removing an ID the reconciling collection did not itself add.
//
// Every operation mutates a working copy of the store, persists it, and only
// then swaps it in, so a failed write leaves the live state untouched.
type Reconciler struct {
	store *store.Store
}

// New builds a reconciler over the given store.
func New(s *store.Store) *Reconciler {
	return &Reconciler{store: s}
}

// ImportCollection records a new collection and inserts its children.
// Children already present in the ID list (manual adds or other collections)
// are recorded as members but not as added, so later refreshes and deletes
// will not remove them.
func (r *Reconciler) ImportCollection(ctx context.Context, url, title string, children []Child) (*model.ImportResult, error) {
	if _, ok := r.store.Collection(url); ok {
		return nil, fmt.Errorf("import %s: %w", url, ErrCollectionExists)
	}

	work := r.store.Clone()
	rec := model.Collection{Title: title, URL: url, Items: []string{}, Added: []string{}}
	result := &model.ImportResult{}

	for _, child := range children {
		if child.Skipped {
			result.SkippedIDs = append(result.SkippedIDs, child.ID)
			continue
		}
		if work.WorkshopIDs.Contains(child.ID) {
			rec.Items = appendUnique(rec.Items, child.ID)
			result.DuplicateIDs = append(result.DuplicateIDs, child.ID)
			continue
		}
		_, modsAdded := work.InsertItem(child.Item, child.ModIDs)
		rec.Items = appendUnique(rec.Items, child.ID)
		rec.Added = appendUnique(rec.Added, child.ID)
		result.AddedIDs = append(result.AddedIDs, child.ID)
		result.ModIDsAdded += modsAdded
	}

	work.SetCollection(rec)
	if err := work.Save(); err != nil {
		return nil, fmt.Errorf("persist import of %s: %w", url, err)
	}
	r.store.Replace(work)

	logutil.GetLogger(ctx).Info("collection imported",
		zap.String("url", url),
		zap.Int("added", len(result.AddedIDs)),
		zap.Int("duplicates", len(result.DuplicateIDs)),
		zap.Int("skipped", len(result.SkippedIDs)),
	)
	return result, nil
}

// AddItems inserts standalone workshop items that belong to no collection
// record. Already listed IDs are reported as duplicates and left untouched.
func (r *Reconciler) AddItems(ctx context.Context, children []Child) (*model.ImportResult, error) {
	work := r.store.Clone()
	result := &model.ImportResult{}
	touched := false

	for _, child := range children {
		if child.Skipped {
			result.SkippedIDs = append(result.SkippedIDs, child.ID)
			continue
		}
		if work.WorkshopIDs.Contains(child.ID) {
			work.TouchMeta(child.Item)
			touched = true
			result.DuplicateIDs = append(result.DuplicateIDs, child.ID)
			continue
		}
		_, modsAdded := work.InsertItem(child.Item, child.ModIDs)
		result.AddedIDs = append(result.AddedIDs, child.ID)
		result.ModIDsAdded += modsAdded
	}

	if len(result.AddedIDs) > 0 || touched {
		if err := work.Save(); err != nil {
			return nil, fmt.Errorf("persist add: %w", err)
		}
		r.store.Replace(work)
	}

	logutil.GetLogger(ctx).Info("items added",
		zap.Int("added", len(result.AddedIDs)),
		zap.Int("duplicates", len(result.DuplicateIDs)),
		zap.Int("skipped", len(result.SkippedIDs)),
	)
	return result, nil
}

// RemoveItems drops the given workshop IDs from the ID lists and metadata.
// Collection records keep the IDs as members but lose the added provenance,
// so later refreshes neither resurrect nor re-remove them.
func (r *Reconciler) RemoveItems(ctx context.Context, ids []string) (*model.DeleteResult, error) {
	work := r.store.Clone()
	result := &model.DeleteResult{}

	for _, id := range ids {
		if !work.RemoveItem(id) {
			result.KeptIDs = append(result.KeptIDs, id)
			continue
		}
		result.RemovedIDs = append(result.RemovedIDs, id)
		for _, url := range work.CollectionURLs() {
			rec, _ := work.Collection(url)
			if !rec.HasAdded(id) {
				continue
			}
			kept := make([]string, 0, len(rec.Added))
			for _, v := range rec.Added {
				if v != id {
					kept = append(kept, v)
				}
			}
			rec.Added = kept
			work.SetCollection(rec)
		}
	}

	if len(result.RemovedIDs) > 0 {
		if err := work.Save(); err != nil {
			return nil, fmt.Errorf("persist remove: %w", err)
		}
		r.store.Replace(work)
	}

	logutil.GetLogger(ctx).Info("items removed",
		zap.Int("removed", len(result.RemovedIDs)),
		zap.Int("missing", len(result.KeptIDs)),
	)
	return result, nil
}

// RefreshCollection re-syncs a tracked collection against its freshly
// scraped children. New children are handled as in ImportCollection.
// Children this collection added that disappeared upstream are removed from
// the ID lists and metadata, unless another collection's added set still
// owns them. Members the collection never added are left alone.
func (r *Reconciler) RefreshCollection(ctx context.Context, url string, current []Child) (*model.RefreshResult, error) {
	prev, ok := r.store.Collection(url)
	if !ok {
		return nil, fmt.Errorf("refresh %s: %w", url, ErrUnknownCollection)
	}

	work := r.store.Clone()
	rec := model.Collection{Title: prev.Title, URL: prev.URL, Items: []string{}, Added: []string{}}
	result := &model.RefreshResult{}
	seen := make(map[string]struct{}, len(current))

	for _, child := range current {
		if child.Skipped {
			// An unresolved prompt never destroys a known member: membership
			// and provenance carry forward as if the child were unchanged.
			if prev.HasItem(child.ID) {
				seen[child.ID] = struct{}{}
				rec.Items = appendUnique(rec.Items, child.ID)
				if prev.HasAdded(child.ID) {
					rec.Added = appendUnique(rec.Added, child.ID)
				}
			}
			result.SkippedIDs = append(result.SkippedIDs, child.ID)
			continue
		}
		seen[child.ID] = struct{}{}
		rec.Items = appendUnique(rec.Items, child.ID)

		switch {
		case prev.HasItem(child.ID):
			// Known member; carry provenance forward.
			if prev.HasAdded(child.ID) {
				rec.Added = appendUnique(rec.Added, child.ID)
			}
			work.TouchMeta(child.Item)
			result.UnchangedIDs = append(result.UnchangedIDs, child.ID)
		case work.WorkshopIDs.Contains(child.ID):
			// Newly appeared upstream but already listed from elsewhere.
			work.TouchMeta(child.Item)
			result.UnchangedIDs = append(result.UnchangedIDs, child.ID)
		default:
			_, _ = work.InsertItem(child.Item, child.ModIDs)
			rec.Added = appendUnique(rec.Added, child.ID)
			result.AddedIDs = append(result.AddedIDs, child.ID)
		}
	}

	// Children this collection inserted that vanished upstream.
	for _, id := range prev.Added {
		if _, still := seen[id]; still {
			continue
		}
		if work.OtherCollectionAdded(id, url) {
			// Shared ownership: the other collection keeps the ID alive.
			continue
		}
		if work.RemoveItem(id) {
			result.RemovedIDs = append(result.RemovedIDs, id)
		}
	}

	work.SetCollection(rec)
	if err := work.Save(); err != nil {
		return nil, fmt.Errorf("persist refresh of %s: %w", url, err)
	}
	r.store.Replace(work)

	logutil.GetLogger(ctx).Info("collection refreshed",
		zap.String("url", url),
		zap.Int("added", len(result.AddedIDs)),
		zap.Int("removed", len(result.RemovedIDs)),
		zap.Int("unchanged", len(result.UnchangedIDs)),
	)
	return result, nil
}

// DeleteCollection removes a tracked collection and every ID it added.
// Members it never added stay in the ID lists, as do IDs another
// collection's added set still owns.
func (r *Reconciler) DeleteCollection(ctx context.Context, url string) (*model.DeleteResult, error) {
	rec, ok := r.store.Collection(url)
	if !ok {
		return nil, fmt.Errorf("delete %s: %w", url, ErrUnknownCollection)
	}

	work := r.store.Clone()
	result := &model.DeleteResult{}

	for _, id := range rec.Added {
		if work.OtherCollectionAdded(id, url) {
			result.KeptIDs = append(result.KeptIDs, id)
			continue
		}
		if work.RemoveItem(id) {
			result.RemovedIDs = append(result.RemovedIDs, id)
		}
	}
	work.DeleteCollection(url)

	if err := work.Save(); err != nil {
		return nil, fmt.Errorf("persist delete of %s: %w", url, err)
	}
	r.store.Replace(work)

	logutil.GetLogger(ctx).Info("collection deleted",
		zap.String("url", url),
		zap.Int("removed", len(result.RemovedIDs)),
		zap.Int("kept", len(result.KeptIDs)),
	)
	return result, nil
}

func appendUnique(list []string, id string) []string {
	for _, v := range list {
		if v == id {
			return list
		}
	}
	return append(list, id)
}
