package resolve

import (
	"context"
	"fmt"

	"pzworkshop/internal/model"

	"github.com/charmbracelet/huh"
)

// skipValue marks the "add none" option in the terminal prompt.
const skipValue = "__skip__"

// ModIDResolver picks which mod ID(s) to use when a Workshop item exposes
// several. Returning ok=false skips the item entirely: it is added neither
// to the ID lists nor to any collection record.
type ModIDResolver interface {
	Resolve(ctx context.Context, item model.WorkshopItem, options []string) (chosen []string, ok bool, err error)
}

// TerminalResolver prompts the user with an interactive select.
type TerminalResolver struct{}

// Resolve shows a select listing every mod ID plus a skip entry.
func (TerminalResolver) Resolve(_ context.Context, item model.WorkshopItem, options []string) ([]string, bool, error) {
	opts := make([]huh.Option[string], 0, len(options)+1)
	for _, o := range options {
		opts = append(opts, huh.NewOption(o, o))
	}
	opts = append(opts, huh.NewOption("(skip this item)", skipValue))

	var choice string
	form := huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().
			Title(fmt.Sprintf("Multiple Mod IDs found for %q", item.Title)).
			Description("Select the Mod ID to add to the server list.").
			Options(opts...).
			Value(&choice),
	))
	if err := form.Run(); err != nil {
		return nil, false, fmt.Errorf("mod id prompt: %w", err)
	}
	if choice == "" || choice == skipValue {
		return nil, false, nil
	}
	return []string{choice}, true, nil
}

// FirstResolver always picks the first mod ID. Used by --yes runs where no
// terminal interaction is wanted.
type FirstResolver struct{}

func (FirstResolver) Resolve(_ context.Context, _ model.WorkshopItem, options []string) ([]string, bool, error) {
	if len(options) == 0 {
		return nil, false, nil
	}
	return []string{options[0]}, true, nil
}

// SkipResolver never resolves, so every ambiguous item is skipped.
type SkipResolver struct{}

func (SkipResolver) Resolve(context.Context, model.WorkshopItem, []string) ([]string, bool, error) {
	return nil, false, nil
}
