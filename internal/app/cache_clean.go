package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pzworkshop/internal/db"
	"pzworkshop/internal/ui"

	"github.com/spf13/pflag"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// CacheCleanCommand purges stale rows from the page cache database.
type CacheCleanCommand struct {
	configPath string
	olderThan  int
}

func (c *CacheCleanCommand) Name() string { return "cache-clean" }

func (c *CacheCleanCommand) Desc() string {
	return "清理页面缓存中过期的条目"
}

func NewCacheCleanCommand() *CacheCleanCommand { return &CacheCleanCommand{} }

func (c *CacheCleanCommand) Init(f *pflag.FlagSet) {
	f.StringVar(&c.configPath, "config", "", "配置文件路径")
	f.IntVar(&c.olderThan, "older-than", 0, "清理早于 N 小时的缓存，0 表示使用配置中的 TTL")
}

func (c *CacheCleanCommand) PreRun(ctx context.Context) error {
	if c.olderThan < 0 {
		return errors.New("--older-than must not be negative")
	}
	return nil
}

func (c *CacheCleanCommand) Run(ctx context.Context) error {
	cfg, err := loadConfig(c.configPath)
	if err != nil {
		return err
	}

	hours := c.olderThan
	if hours == 0 {
		hours = cfg.Scrape.CacheTTLHours
	}
	if hours <= 0 {
		return errors.New("no ttl configured, pass --older-than")
	}

	if db.Default() == nil {
		handle, err := db.Open(cfg.CachePath())
		if err != nil {
			return err
		}
		if err := db.EnsureSchema(ctx, handle); err != nil {
			return fmt.Errorf("init cache schema: %w", err)
		}
		db.SetDefault(handle)
	}

	cutoff := time.Now().Add(-time.Duration(hours) * time.Hour)
	dao := db.NewPageCacheDAO(0)
	purged, err := dao.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		return err
	}

	fmt.Println(ui.Green.Render(fmt.Sprintf("purged %d cached pages", purged)))
	logutil.GetLogger(ctx).Info("cache clean completed",
		zap.Int64("purged", purged),
		zap.Int("older_than_hours", hours),
	)
	return nil
}

func (c *CacheCleanCommand) PostRun(ctx context.Context) error { return nil }

func init() {
	RegisterRunner("cache-clean", func() IRunner { return NewCacheCleanCommand() })
}
