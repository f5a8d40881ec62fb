package app

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"pzworkshop/internal/model"
	"pzworkshop/internal/store"
	"pzworkshop/internal/ui"

	"github.com/mozillazg/go-pinyin"
	"github.com/spf13/pflag"
)

// ListCommand prints the tracked workshop items, maps or collections.
type ListCommand struct {
	configPath string
	kind       string
	filter     string
	sortBy     string
	oneline    bool
}

func (c *ListCommand) Name() string { return "list" }

func (c *ListCommand) Desc() string {
	return "列出已添加的模组、地图或合集"
}

func NewListCommand() *ListCommand { return &ListCommand{} }

func (c *ListCommand) Init(f *pflag.FlagSet) {
	f.StringVar(&c.configPath, "config", "", "配置文件路径")
	f.StringVar(&c.kind, "kind", "all", "过滤类型: mods|maps|collections|all")
	f.StringVar(&c.filter, "filter", "", "按标题或 Mod ID 过滤（子串匹配）")
	f.StringVar(&c.sortBy, "sort", "", "排序方式: order|name|build，默认取 Settings 中的 sort")
	f.BoolVar(&c.oneline, "oneline", false, "输出服务器配置格式的 WorkshopItems/Mods 行")
}

func (c *ListCommand) PreRun(ctx context.Context) error {
	switch c.kind {
	case "mods", "maps", "collections", "all":
	default:
		return fmt.Errorf("unknown kind %q", c.kind)
	}
	switch c.sortBy {
	case "", "order", "name", "build":
	default:
		return fmt.Errorf("unknown sort %q", c.sortBy)
	}
	return nil
}

func (c *ListCommand) Run(ctx context.Context) error {
	cfg, err := loadConfig(c.configPath)
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}

	if c.sortBy == "" {
		c.sortBy = "order"
		if v, ok := st.Settings["sort"].(string); ok {
			switch v {
			case "order", "name", "build":
				c.sortBy = v
			}
		}
	}

	if c.oneline {
		fmt.Printf("WorkshopItems=%s\n", st.WorkshopIDs.EncodeLine())
		fmt.Printf("Mods=%s\n", st.ModIDs.EncodeLine())
		return nil
	}

	if c.kind == "collections" || c.kind == "all" {
		c.printCollections(st)
	}
	if c.kind != "collections" {
		c.printItems(st)
	}
	return nil
}

func (c *ListCommand) PostRun(ctx context.Context) error { return nil }

func (c *ListCommand) printCollections(st *store.Store) {
	urls := st.CollectionURLs()
	if len(urls) == 0 && c.kind == "collections" {
		fmt.Println(ui.Dim.Render("no collections"))
		return
	}
	for _, url := range urls {
		rec, _ := st.Collection(url)
		if !c.match(rec.Title, nil, "") {
			continue
		}
		fmt.Println(ui.Cyan.Render(fmt.Sprintf("[collection] %s (%d items, %d added)", rec.Title, len(rec.Items), len(rec.Added))))
		fmt.Println(ui.Dim.Render("             " + rec.URL))
	}
}

func (c *ListCommand) printItems(st *store.Store) {
	items := c.selectItems(st)
	c.sortItems(items, st)

	for _, item := range items {
		marker := " "
		if item.IsMap {
			marker = "M"
		}
		line := fmt.Sprintf("%s %s  %s [%s]", marker, item.ID, item.Title, item.Build)
		if len(item.ModIDs) > 0 {
			line += ui.Dim.Render("  mods: " + strings.Join(item.ModIDs, ", "))
		}
		fmt.Println(ui.White.Render(line))
	}
	if len(items) == 0 && c.kind != "collections" {
		fmt.Println(ui.Dim.Render("no items"))
	}
}

func (c *ListCommand) selectItems(st *store.Store) []model.WorkshopItem {
	var out []model.WorkshopItem
	for _, id := range st.WorkshopIDs.IDs() {
		item, ok := st.Meta[id]
		if !ok {
			// Listed by hand without metadata; still worth showing.
			item = model.WorkshopItem{ID: id, Title: "(unknown)", Build: "(unknown)", URL: model.ItemURL(id)}
		}
		if c.kind == "mods" && item.IsMap {
			continue
		}
		if c.kind == "maps" && !item.IsMap {
			continue
		}
		if !c.match(item.Title, item.ModIDs, item.ID) {
			continue
		}
		out = append(out, item)
	}
	return out
}

func (c *ListCommand) sortItems(items []model.WorkshopItem, st *store.Store) {
	switch c.sortBy {
	case "name":
		sort.SliceStable(items, func(i, j int) bool {
			return nameSortKey(items[i].Title) < nameSortKey(items[j].Title)
		})
	case "build":
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].Build < items[j].Build
		})
	default:
		// IDs() already reflects insertion order.
	}
}

func (c *ListCommand) match(title string, modIDs []string, id string) bool {
	if c.filter == "" {
		return true
	}
	needle := strings.ToLower(c.filter)
	if strings.Contains(strings.ToLower(title), needle) {
		return true
	}
	if strings.Contains(strings.ToLower(id), needle) {
		return true
	}
	for _, mid := range modIDs {
		if strings.Contains(strings.ToLower(mid), needle) {
			return true
		}
	}
	return false
}

// nameSortKey lowers the title and converts Han characters to pinyin so
// Chinese mod names sort alongside latin ones.
func nameSortKey(title string) string {
	args := pinyin.NewArgs()
	var b strings.Builder
	for _, r := range title {
		if py := pinyin.SinglePinyin(r, args); len(py) > 0 {
			b.WriteString(py[0])
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

func init() {
	RegisterRunner("list", func() IRunner { return NewListCommand() })
}
