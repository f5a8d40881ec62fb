package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"pzworkshop/internal/model"

	"github.com/didi/gendry/builder"
)

const pageCacheTableName = "page_cache_tab"

// DatabaseGetter returns a database handle. Used to defer retrieval until first use.
type DatabaseGetter func() *sql.DB

// PageCacheDAO stores scraped Workshop item metadata with a fetch timestamp
// so repeated adds and refreshes within the TTL skip the network.
type PageCacheDAO struct {
	dbGetter DatabaseGetter
	ttl      time.Duration
	now      func() time.Time
}

// NewPageCacheDAO builds a DAO over the globally configured database.
func NewPageCacheDAO(ttl time.Duration) *PageCacheDAO {
	return &PageCacheDAO{
		dbGetter: Default,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Lookup returns the cached item when a fresh enough row exists.
func (dao *PageCacheDAO) Lookup(ctx context.Context, id string) (model.WorkshopItem, bool, error) {
	handle := dao.dbGetter()
	if handle == nil {
		return model.WorkshopItem{}, false, nil
	}

	const query = `SELECT fetched_at, payload FROM page_cache_tab WHERE workshop_id = ? LIMIT 1`
	rows, err := handle.QueryContext(ctx, query, id)
	if err != nil {
		return model.WorkshopItem{}, false, fmt.Errorf("query page cache: %w", err)
	}
	defer rows.Close()

	if rows.Next() {
		var fetchedAt int64
		var payload string
		if err := rows.Scan(&fetchedAt, &payload); err != nil {
			return model.WorkshopItem{}, false, fmt.Errorf("scan page cache: %w", err)
		}
		if dao.ttl > 0 && dao.now().Unix()-fetchedAt > int64(dao.ttl.Seconds()) {
			return model.WorkshopItem{}, false, nil
		}
		var item model.WorkshopItem
		if err := json.Unmarshal([]byte(payload), &item); err != nil {
			return model.WorkshopItem{}, false, fmt.Errorf("decode page cache payload: %w", err)
		}
		item.ID = id
		return item, true, nil
	}
	if err := rows.Err(); err != nil {
		return model.WorkshopItem{}, false, err
	}
	return model.WorkshopItem{}, false, nil
}

// Store inserts or refreshes the cached row for the item.
func (dao *PageCacheDAO) Store(ctx context.Context, item model.WorkshopItem) error {
	handle := dao.dbGetter()
	if handle == nil {
		return fmt.Errorf("page cache dao not initialised")
	}

	payload, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("encode page cache payload: %w", err)
	}

	now := dao.now().Unix()
	record := []map[string]interface{}{{
		"workshop_id": item.ID,
		"fetched_at":  now,
		"payload":     string(payload),
	}}
	insertSQL, insertArgs, err := builder.BuildInsert(pageCacheTableName, record)
	if err != nil {
		return err
	}
	if _, err := handle.ExecContext(ctx, insertSQL, insertArgs...); err != nil {
		if !isUniqueConstraintError(err) {
			return fmt.Errorf("insert page cache: %w", err)
		}
		updateSQL, updateArgs, err := builder.BuildUpdate(pageCacheTableName,
			map[string]interface{}{"workshop_id": item.ID},
			map[string]interface{}{
				"fetched_at": now,
				"payload":    string(payload),
			},
		)
		if err != nil {
			return err
		}
		if _, err := handle.ExecContext(ctx, updateSQL, updateArgs...); err != nil {
			return fmt.Errorf("update page cache: %w", err)
		}
	}
	return nil
}

// PurgeOlderThan deletes rows fetched before the cutoff, returning the
// number of rows removed.
func (dao *PageCacheDAO) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	handle := dao.dbGetter()
	if handle == nil {
		return 0, fmt.Errorf("page cache dao not initialised")
	}

	where := map[string]interface{}{"fetched_at <": cutoff.Unix()}
	deleteSQL, args, err := builder.BuildDelete(pageCacheTableName, where)
	if err != nil {
		return 0, err
	}
	res, err := handle.ExecContext(ctx, deleteSQL, args...)
	if err != nil {
		return 0, fmt.Errorf("purge page cache: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return affected, nil
}

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
