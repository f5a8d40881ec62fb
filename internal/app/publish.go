package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"pzworkshop/internal/storage"
	"pzworkshop/internal/store"
	"pzworkshop/internal/ui"

	"github.com/spf13/pflag"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// stateFiles are the data directory files shared between machines by the
// publish and pull commands.
var stateFiles = []string{
	store.WorkshopIDsFile,
	store.ModIDsFile,
	store.MetaFile,
	store.CollectionsFile,
	store.SettingsFile,
}

// PublishCommand uploads the data directory state to object storage so other
// machines can pull the same server list.
type PublishCommand struct {
	configPath string
	prefix     string
}

func (c *PublishCommand) Name() string { return "publish" }

func (c *PublishCommand) Desc() string {
	return "将服务器列表状态上传到对象存储"
}

func NewPublishCommand() *PublishCommand { return &PublishCommand{} }

func (c *PublishCommand) Init(f *pflag.FlagSet) {
	f.StringVar(&c.configPath, "config", "", "配置文件路径")
	f.StringVar(&c.prefix, "prefix", "", "对象存储 key 前缀")
}

func (c *PublishCommand) PreRun(ctx context.Context) error { return nil }

func (c *PublishCommand) Run(ctx context.Context) error {
	cfg, err := loadConfig(c.configPath)
	if err != nil {
		return err
	}
	if cfg.S3.Bucket == "" {
		return errors.New("publish requires config.s3.bucket")
	}

	client := storage.DefaultClient()
	if client == nil {
		client, err = storage.NewS3Client(ctx, cfg.S3)
		if err != nil {
			return err
		}
		storage.SetDefaultClient(client)
	}

	logger := logutil.GetLogger(ctx)
	uploaded := 0
	for _, name := range stateFiles {
		local := filepath.Join(cfg.DataDir, name)
		if _, err := os.Stat(local); errors.Is(err, os.ErrNotExist) {
			logger.Debug("state file missing, not uploaded", zap.String("file", name))
			continue
		} else if err != nil {
			return fmt.Errorf("stat state file %s: %w", local, err)
		}
		key := path.Join(c.prefix, name)
		if err := client.UploadFile(ctx, key, local, ""); err != nil {
			return err
		}
		uploaded++
		fmt.Println(ui.Green.Render("^ " + key))
	}

	logger.Info("publish completed",
		zap.Int("uploaded", uploaded),
		zap.String("bucket", cfg.S3.Bucket),
	)
	return nil
}

func (c *PublishCommand) PostRun(ctx context.Context) error { return nil }

func init() {
	RegisterRunner("publish", func() IRunner { return NewPublishCommand() })
}
