//go:build ruleguard

// Package gorules contains custom linting rules for golangci-lint via ruleguard.
package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

// WaitGroupGo detects goroutines tracked by hand on a WaitGroup; wg.Go
// (Go 1.25+) does the Add and Done bookkeeping.
func WaitGroupGo(m dsl.Matcher) {
	m.Match(`go func() { defer $wg.Done(); $*_ }()`).
		Where(m["wg"].Type.Is("*sync.WaitGroup")).
		Report("use $wg.Go(func() { ... }) instead of go func() { defer $wg.Done(); ... }()").
		Suggest("$wg.Go(func() { $*_ })")

	m.Match(`$wg.Add(1)`).
		Where(m["wg"].Type.Is("*sync.WaitGroup")).
		Report("consider $wg.Go(), which calls Add(1) itself")
}

// TestingContext flags context.Background() and context.TODO() in tests;
// t.Context() is canceled when the test ends.
func TestingContext(m dsl.Matcher) {
	m.Match(
		`$ctx := context.Background()`,
		`$ctx := context.TODO()`,
		`$fn(context.Background(), $*_)`,
		`$fn(context.TODO(), $*_)`,
	).
		Where(m.File().Name.Matches(`_test\.go$`)).
		Report("in tests, use t.Context() instead")
}

// SortStable flags sort.SliceStable; slices.SortStableFunc is typed and is
// what the legacy ordering code uses.
func SortStable(m dsl.Matcher) {
	m.Match(`sort.SliceStable($s, $_)`).
		Report("use slices.SortStableFunc($s, ...) instead of sort.SliceStable")
}
