// Package pagination searches a paginated table for a row by text, page by
// page, with a bounded number of pages.
package pagination

import (
	"context"
	"fmt"

	"github.com/kuitang/lcm-e2e/internal/browser"
	"github.com/kuitang/lcm-e2e/internal/errs"
	"github.com/kuitang/lcm-e2e/internal/obs"
)

// Table is the view of a paginated table the scanner drives.
type Table interface {
	// WaitForRows waits briefly for rows to render. Its error is advisory.
	WaitForRows(ctx context.Context) error
	// Contains reports whether any row on the current page contains text.
	Contains(ctx context.Context, text string) (bool, error)
	// HasNext reports whether a next-page affordance exists and is enabled.
	HasNext(ctx context.Context) (bool, error)
	// Advance moves to the next page and waits for it to settle.
	Advance(ctx context.Context) error
}

// Result describes where a search ended.
type Result struct {
	Found bool
	// Page is the 1-indexed page the search stopped on.
	Page int
	// Advances counts next-page clicks.
	Advances int
}

func (r Result) String() string {
	if r.Found {
		return fmt.Sprintf("found on page %d after %d advances", r.Page, r.Advances)
	}
	return fmt.Sprintf("not found after %d pages", r.Page)
}

// Scanner searches a Table.
type Scanner struct {
	table Table
}

func NewScanner(table Table) *Scanner {
	return &Scanner{table: table}
}

// Search inspects at most maxPages pages. It returns as soon as a row
// matches, and stops early when the next affordance is missing or disabled.
// The last permitted page is never advanced past.
func (s *Scanner) Search(ctx context.Context, text string, maxPages int) (Result, error) {
	if maxPages <= 0 {
		return Result{}, errs.New(errs.InvalidArgument, fmt.Sprintf("maxPages must be positive, got %d", maxPages))
	}
	log := obs.From(ctx).With("search", text)

	res := Result{}
	for page := 1; page <= maxPages; page++ {
		res.Page = page
		browser.BestEffort(ctx, "table rows", s.table.WaitForRows(ctx))

		found, err := s.table.Contains(ctx, text)
		if err != nil {
			return res, err
		}
		if found {
			res.Found = true
			log.Debug("row found", "page", page, "advances", res.Advances)
			return res, nil
		}
		if page == maxPages {
			break
		}

		next, err := s.table.HasNext(ctx)
		if err != nil {
			return res, err
		}
		if !next {
			log.Debug("reached last page", "page", page)
			return res, nil
		}
		if err := s.table.Advance(ctx); err != nil {
			return res, err
		}
		res.Advances++
	}
	log.Info("page ceiling reached without a match", "max_pages", maxPages)
	return res, nil
}
