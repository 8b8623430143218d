package browser

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/kuitang/lcm-e2e/internal/errs"
)

// FieldLocator resolves one logical form field inside scope. ok is false when
// no candidate is currently visible; err is reserved for driver failures.
type FieldLocator interface {
	Locate(scope playwright.Locator) (loc playwright.Locator, ok bool, err error)
}

type cssLocator string

// CSS is a leaf strategy matching the first element for selector.
func CSS(selector string) FieldLocator {
	return cssLocator(selector)
}

func (c cssLocator) Locate(scope playwright.Locator) (playwright.Locator, bool, error) {
	return firstIfVisible(scope.Locator(string(c)))
}

func (c cssLocator) String() string { return string(c) }

type labelLocator struct {
	pattern *regexp.Regexp
}

// Label is a leaf strategy matching a control by its accessible label.
func Label(pattern *regexp.Regexp) FieldLocator {
	return labelLocator{pattern: pattern}
}

func (l labelLocator) Locate(scope playwright.Locator) (playwright.Locator, bool, error) {
	return firstIfVisible(scope.GetByLabel(l.pattern))
}

func (l labelLocator) String() string { return "label=" + l.pattern.String() }

func firstIfVisible(loc playwright.Locator) (playwright.Locator, bool, error) {
	first := loc.First()
	visible, err := first.IsVisible()
	if err != nil {
		return nil, false, err
	}
	if !visible {
		return nil, false, nil
	}
	return first, true, nil
}

type chain []FieldLocator

// FirstVisible tries each strategy in order and returns the first visible match.
func FirstVisible(strategies ...FieldLocator) FieldLocator {
	return chain(strategies)
}

// CSSChain is FirstVisible over CSS leaves.
func CSSChain(selectors ...string) FieldLocator {
	leaves := make(chain, 0, len(selectors))
	for _, s := range selectors {
		leaves = append(leaves, CSS(s))
	}
	return leaves
}

func (c chain) Locate(scope playwright.Locator) (playwright.Locator, bool, error) {
	for _, strategy := range c {
		loc, ok, err := strategy.Locate(scope)
		if err != nil {
			return nil, false, err
		}
		if ok {
			return loc, true, nil
		}
	}
	return nil, false, nil
}

func (c chain) String() string {
	parts := make([]string, 0, len(c))
	for _, strategy := range c {
		parts = append(parts, describe(strategy))
	}
	return strings.Join(parts, " | ")
}

func describe(f FieldLocator) string {
	if s, ok := f.(interface{ String() string }); ok {
		return s.String()
	}
	return "field"
}

const awaitPollInterval = 100 * time.Millisecond

// Await polls f until a candidate is visible or timeoutMS elapses. A field
// that never appears is an interaction failure.
func Await(ctx context.Context, scope playwright.Locator, f FieldLocator, timeoutMS float64) (playwright.Locator, error) {
	deadline := time.Now().Add(time.Duration(timeoutMS) * time.Millisecond)
	for {
		loc, ok, err := f.Locate(scope)
		if err != nil {
			return nil, Interaction(ctx, nil, "locate field", err)
		}
		if ok {
			return loc, nil
		}
		if time.Now().After(deadline) {
			return nil, errs.Wrap(errs.Interaction, "field never became visible: "+describe(f), playwright.ErrTimeout)
		}
		select {
		case <-ctx.Done():
			return nil, errs.Wrap(errs.Interaction, "locate field", ctx.Err())
		case <-time.After(awaitPollInterval):
		}
	}
}
