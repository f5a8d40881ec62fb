package app

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"

	"pzworkshop/internal/storage"
	"pzworkshop/internal/store"
	"pzworkshop/internal/ui"

	"github.com/spf13/pflag"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// PullCommand downloads published state files into the data directory.
type PullCommand struct {
	configPath string
	prefix     string
}

func (c *PullCommand) Name() string { return "pull" }

func (c *PullCommand) Desc() string {
	return "从对象存储拉取服务器列表状态"
}

func NewPullCommand() *PullCommand { return &PullCommand{} }

func (c *PullCommand) Init(f *pflag.FlagSet) {
	f.StringVar(&c.configPath, "config", "", "配置文件路径")
	f.StringVar(&c.prefix, "prefix", "", "对象存储 key 前缀")
}

func (c *PullCommand) PreRun(ctx context.Context) error { return nil }

func (c *PullCommand) Run(ctx context.Context) error {
	cfg, err := loadConfig(c.configPath)
	if err != nil {
		return err
	}
	if cfg.S3.Bucket == "" {
		return errors.New("pull requires config.s3.bucket")
	}

	client := storage.DefaultClient()
	if client == nil {
		client, err = storage.NewS3Client(ctx, cfg.S3)
		if err != nil {
			return err
		}
		storage.SetDefaultClient(client)
	}

	for _, name := range stateFiles {
		key := path.Join(c.prefix, name)
		dest := filepath.Join(cfg.DataDir, name)
		if err := client.DownloadToFile(ctx, key, dest); err != nil {
			return err
		}
		fmt.Println(ui.Green.Render("v " + key))
	}

	// Loading validates the pulled files parse; malformed json falls back to
	// empty state rather than failing here.
	st, err := store.Load(cfg.DataDir)
	if err != nil {
		return err
	}

	logutil.GetLogger(ctx).Info("pull completed",
		zap.Int("workshop_ids", st.WorkshopIDs.Len()),
		zap.Int("mod_ids", st.ModIDs.Len()),
		zap.Int("collections", len(st.Collections)),
	)
	return nil
}

func (c *PullCommand) PostRun(ctx context.Context) error { return nil }

func init() {
	RegisterRunner("pull", func() IRunner { return NewPullCommand() })
}
