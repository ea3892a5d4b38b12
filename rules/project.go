//go:build ruleguard

package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

// InternalErrors keeps error construction on the internal errors package so
// failures carry a component and category into telemetry.
func InternalErrors(m dsl.Matcher) {
	m.Import("errors")

	m.Match(`errors.New($msg)`).
		Where(m.File().PkgPath.Matches(`/internal/`) &&
			!m.File().PkgPath.Matches(`/internal/errors$`) &&
			m.File().Imports("errors")).
		Report("import github.com/tphakala/lcbimport/internal/errors and use errors.NewStd($msg) or the error builder")
}

// NoPrintInInternal flags direct printing from library packages; use the
// module logger instead. Command packages may print results.
func NoPrintInInternal(m dsl.Matcher) {
	m.Match(
		`fmt.Println($*_)`,
		`fmt.Printf($*_)`,
		`log.Printf($*_)`,
		`log.Println($*_)`,
	).
		Where(m.File().PkgPath.Matches(`/internal/`) && !m.File().Name.Matches(`_test\.go$`)).
		Report("use the package logger (GetLogger()) instead of printing")
}

// FormattedSQL flags SQL built with fmt.Sprintf; use placeholders or the
// query builder.
func FormattedSQL(m dsl.Matcher) {
	m.Match(
		`$db.Exec(fmt.Sprintf($*_), $*_)`,
		`$db.Raw(fmt.Sprintf($*_), $*_)`,
	).
		Where(m["db"].Type.Is("*gorm.DB")).
		Report("do not build SQL with fmt.Sprintf; use ? placeholders")
}

// ContextFreeQuery flags gorm calls on the handle passed into a function
// that has a context but does not bind it.
func ContextFreeQuery(m dsl.Matcher) {
	m.Match(`$db.Transaction($*_)`).
		Where(m["db"].Type.Is("*gorm.DB") && m["db"].Text.Matches(`^(c|s)\.db$`)).
		Report("bind the context first: $db.WithContext(ctx).Transaction(...)")
}
