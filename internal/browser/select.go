package browser

import (
	"context"
	"fmt"
	"strings"

	"github.com/playwright-community/playwright-go"

	"github.com/kuitang/lcm-e2e/internal/obs"
)

// Option is one <option> of a select control as rendered.
type Option struct {
	Value    string
	Label    string
	HasValue bool
	Disabled bool
}

// Choice records how ChooseOption arrived at its answer.
type Choice int

const (
	ChoiceNone Choice = iota
	ChoiceMatched
	ChoiceFallback
)

func (c Choice) String() string {
	switch c {
	case ChoiceMatched:
		return "matched"
	case ChoiceFallback:
		return "fallback"
	default:
		return "none"
	}
}

// ChooseOption applies the fallback selection policy:
//
//  1. with a requested value, the first enabled option whose label contains it
//     (case-insensitive) and whose value is non-empty;
//  2. otherwise the second enabled option carrying a value attribute, since the
//     first is conventionally a placeholder;
//  3. or the only such option when there is exactly one.
//
// ChoiceNone means nothing selectable exists.
func ChooseOption(options []Option, requested string) (Option, Choice) {
	if want := strings.ToLower(strings.TrimSpace(requested)); want != "" {
		for _, opt := range options {
			if opt.Disabled || !opt.HasValue || opt.Value == "" {
				continue
			}
			if strings.Contains(strings.ToLower(opt.Label), want) {
				return opt, ChoiceMatched
			}
		}
	}

	available := make([]Option, 0, len(options))
	for _, opt := range options {
		if opt.HasValue && !opt.Disabled {
			available = append(available, opt)
		}
	}
	var pick Option
	switch {
	case len(available) > 1:
		pick = available[1]
	case len(available) == 1:
		pick = available[0]
	default:
		return Option{}, ChoiceNone
	}
	if pick.Value == "" {
		return Option{}, ChoiceNone
	}
	return pick, ChoiceFallback
}

const readOptionsJS = `el => Array.from(el.options || []).map(o => ({
	value: o.getAttribute("value"),
	label: (o.textContent || "").trim(),
	disabled: o.disabled,
}))`

// ReadOptions returns the options of a select control in document order.
func ReadOptions(sel playwright.Locator) ([]Option, error) {
	raw, err := sel.Evaluate(readOptionsJS, nil)
	if err != nil {
		return nil, err
	}
	return decodeOptions(raw)
}

func decodeOptions(raw any) ([]Option, error) {
	items, ok := raw.([]any)
	if !ok {
		if raw == nil {
			return nil, nil
		}
		return nil, fmt.Errorf("unexpected options payload %T", raw)
	}
	out := make([]Option, 0, len(items))
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("option %d: unexpected payload %T", i, item)
		}
		opt := Option{}
		if v, ok := m["value"].(string); ok {
			opt.Value = v
			opt.HasValue = true
		}
		opt.Label, _ = m["label"].(string)
		opt.Disabled, _ = m["disabled"].(bool)
		out = append(out, opt)
	}
	return out, nil
}

// SelectWithFallback picks an option on sel by the fallback policy. A select
// that is not visible is left alone. A requested value that matches nothing
// is logged at warn and the first available option is used instead.
func SelectWithFallback(ctx context.Context, sel playwright.Locator, requested, field string) (Option, Choice, error) {
	visible, err := sel.IsVisible()
	if err != nil {
		return Option{}, ChoiceNone, Interaction(ctx, nil, "check "+field+" visibility", err)
	}
	if !visible {
		return Option{}, ChoiceNone, nil
	}
	options, err := ReadOptions(sel)
	if err != nil {
		return Option{}, ChoiceNone, Interaction(ctx, nil, "read "+field+" options", err)
	}

	opt, choice := ChooseOption(options, requested)
	if requested != "" && choice != ChoiceMatched {
		obs.From(ctx).Warn("option not found, selecting first available",
			"field", field,
			"requested", requested,
			"fallback", opt.Label,
		)
	}
	if choice == ChoiceNone {
		return Option{}, ChoiceNone, nil
	}
	if _, err := sel.SelectOption(playwright.SelectOptionValues{Values: &[]string{opt.Value}}); err != nil {
		return Option{}, ChoiceNone, Interaction(ctx, nil, "select "+field+" option "+opt.Value, err)
	}
	return opt, choice, nil
}

// SelectFirstAvailable is SelectWithFallback without a requested value.
func SelectFirstAvailable(ctx context.Context, sel playwright.Locator, field string) (Option, error) {
	opt, _, err := SelectWithFallback(ctx, sel, "", field)
	return opt, err
}
