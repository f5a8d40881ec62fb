package app

import (
	"context"
	"errors"
	"fmt"

	"pzworkshop/internal/reconcile"
	"pzworkshop/internal/ui"

	"github.com/spf13/pflag"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// RemoveCommand removes single workshop IDs from the lists or deletes a whole
// collection. Deleting a collection only removes IDs it added itself; members
// that were already listed before the import stay listed.
type RemoveCommand struct {
	configPath string
	idList     string
	collection string

	ids []string
}

func (c *RemoveCommand) Name() string { return "remove" }

func (c *RemoveCommand) Desc() string {
	return "从服务器列表移除条目或删除整个合集"
}

func NewRemoveCommand() *RemoveCommand { return &RemoveCommand{} }

func (c *RemoveCommand) Init(f *pflag.FlagSet) {
	f.StringVar(&c.configPath, "config", "", "配置文件路径")
	f.StringVar(&c.idList, "id", "", "逗号分隔的创意工坊 ID 列表")
	f.StringVar(&c.collection, "collection", "", "要删除的合集 URL")
}

func (c *RemoveCommand) PreRun(ctx context.Context) error {
	c.ids = splitCommaList(c.idList)
	if len(c.ids) == 0 && c.collection == "" {
		return errors.New("remove requires --id or --collection")
	}
	if len(c.ids) > 0 && c.collection != "" {
		return errors.New("--id and --collection are mutually exclusive")
	}
	logutil.GetLogger(ctx).Info("starting remove",
		zap.Strings("ids", c.ids),
		zap.String("collection", c.collection),
	)
	return nil
}

func (c *RemoveCommand) Run(ctx context.Context) error {
	cfg, err := loadConfig(c.configPath)
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	rec := reconcile.New(st)

	if c.collection != "" {
		record, ok := st.Collection(c.collection)
		if !ok {
			return fmt.Errorf("delete %s: %w", c.collection, reconcile.ErrUnknownCollection)
		}
		result, err := rec.DeleteCollection(ctx, c.collection)
		if err != nil {
			return err
		}
		fmt.Println(ui.Green.Render(fmt.Sprintf("- collection %q: %d removed, %d kept (added elsewhere)",
			record.Title, len(result.RemovedIDs), len(result.KeptIDs))))
		return nil
	}

	result, err := rec.RemoveItems(ctx, c.ids)
	if err != nil {
		return err
	}
	for _, id := range result.RemovedIDs {
		fmt.Println(ui.Green.Render("- " + id))
	}
	for _, id := range result.KeptIDs {
		fmt.Println(ui.Yellow.Render("= not listed: " + id))
	}
	return nil
}

func (c *RemoveCommand) PostRun(ctx context.Context) error { return nil }

func init() {
	RegisterRunner("remove", func() IRunner { return NewRemoveCommand() })
}
