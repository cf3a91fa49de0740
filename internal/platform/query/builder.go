// Package query composes tenant-scoped SELECT statements.
//
// Predicates are written with `?` placeholders and accumulated together with
// their bound values; positional `$n` parameters are assigned only when the
// statement is rendered, so callers never track parameter indexes. Values are
// never interpolated into the SQL text.
package query

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hnms/hnms/internal/platform/policy"
	"github.com/hnms/hnms/pkg/pagination"
)

var (
	// ErrPlaceholderMismatch is returned when a predicate's `?` count differs
	// from the number of values supplied with it.
	ErrPlaceholderMismatch = errors.New("query: placeholder count does not match argument count")

	// ErrScopeColumn is returned when a scope restricts a dimension the
	// builder has no column for. The statement is refused rather than
	// silently rendered without the restriction.
	ErrScopeColumn = errors.New("query: scope restricts a dimension with no configured column")
)

// ScopeColumns names the columns the isolation filter applies to. Doctor may
// be empty for entities that have no doctor dimension.
type ScopeColumns struct {
	Hospital string
	Doctor   string
}

type predicate struct {
	clause string
	args   []interface{}
}

// Builder accumulates the parts of a SELECT statement.
type Builder struct {
	from    string
	cols    string
	preds   []predicate
	orderBy string
	page    *pagination.Params
	err     error
}

// New creates a builder selecting cols from the given FROM expression, which
// may include joins.
func New(from, cols string) *Builder {
	return &Builder{from: from, cols: cols}
}

// Where adds a predicate. Each `?` in clause is bound to the next value in
// args, in order. Predicates are ANDed in the order they were added.
func (b *Builder) Where(clause string, args ...interface{}) *Builder {
	if b.err != nil {
		return b
	}
	if n := strings.Count(clause, "?"); n != len(args) {
		b.err = fmt.Errorf("%w: %q has %d placeholders, %d args", ErrPlaceholderMismatch, clause, n, len(args))
		return b
	}
	b.preds = append(b.preds, predicate{clause: clause, args: args})
	return b
}

// WhereIf adds the predicate only when cond holds. Optional request filters
// use this so absent filters produce no predicate at all.
func (b *Builder) WhereIf(cond bool, clause string, args ...interface{}) *Builder {
	if !cond {
		return b
	}
	return b.Where(clause, args...)
}

// Scope applies the isolation filter from a policy decision. A nil scope
// field adds nothing; a non-nil field with no matching column is an error.
func (b *Builder) Scope(s policy.Scope, cols ScopeColumns) *Builder {
	if s.Unrestricted() {
		return b
	}
	if s.HospitalID != nil {
		if cols.Hospital == "" {
			b.fail(fmt.Errorf("%w: hospital", ErrScopeColumn))
			return b
		}
		b.Where(cols.Hospital+" = ?", *s.HospitalID)
	}
	if s.DoctorID != nil {
		if cols.Doctor == "" {
			b.fail(fmt.Errorf("%w: doctor", ErrScopeColumn))
			return b
		}
		b.Where(cols.Doctor+" = ?", *s.DoctorID)
	}
	return b
}

// OrderBy sets the ORDER BY clause (without the "ORDER BY" keyword). It must
// be a constant chosen by the caller, never request input.
func (b *Builder) OrderBy(orderBy string) *Builder {
	b.orderBy = orderBy
	return b
}

// Paginate applies LIMIT/OFFSET to the select statement. Count statements
// ignore it.
func (b *Builder) Paginate(p pagination.Params) *Builder {
	b.page = &p
	return b
}

// Err returns the first build error, if any.
func (b *Builder) Err() error { return b.err }

func (b *Builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

// whereSQL renders the WHERE clause and its args, numbering placeholders
// from $1.
func (b *Builder) whereSQL() (string, []interface{}) {
	if len(b.preds) == 0 {
		return "", nil
	}
	var sb strings.Builder
	var args []interface{}
	sb.WriteString(" WHERE ")
	for i, p := range b.preds {
		if i > 0 {
			sb.WriteString(" AND ")
		}
		sb.WriteString(bind(p.clause, len(args)+1))
		args = append(args, p.args...)
	}
	return sb.String(), args
}

// bind replaces each `?` in clause with $start, $start+1, ...
func bind(clause string, start int) string {
	var sb strings.Builder
	n := start
	for _, r := range clause {
		if r == '?' {
			fmt.Fprintf(&sb, "$%d", n)
			n++
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// SelectSQL renders the data statement and its bound values.
func (b *Builder) SelectSQL() (string, []interface{}, error) {
	if b.err != nil {
		return "", nil, b.err
	}
	where, args := b.whereSQL()
	sql := fmt.Sprintf("SELECT %s FROM %s%s", b.cols, b.from, where)
	if b.orderBy != "" {
		sql += " ORDER BY " + b.orderBy
	}
	if b.page != nil {
		sql += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
		args = append(args, b.page.Limit, b.page.Offset())
	}
	return sql, args, nil
}

// CountSQL renders a COUNT(*) statement with exactly the same predicates and
// values as SelectSQL, without ordering or pagination.
func (b *Builder) CountSQL() (string, []interface{}, error) {
	if b.err != nil {
		return "", nil, b.err
	}
	where, args := b.whereSQL()
	return fmt.Sprintf("SELECT COUNT(*) FROM %s%s", b.from, where), args, nil
}

// Contains returns an ILIKE pattern matching term anywhere, with LIKE
// metacharacters in term escaped.
func Contains(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(term) + "%"
}

// DayRange returns [start of day, start of next day) in UTC for the calendar
// date of t.
func DayRange(t time.Time) (time.Time, time.Time) {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}

// WeekRange returns [start of day, start of day + 7 days) in UTC.
func WeekRange(t time.Time) (time.Time, time.Time) {
	start, _ := DayRange(t)
	return start, start.AddDate(0, 0, 7)
}

// ParseDate parses a YYYY-MM-DD date in UTC.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", s, time.UTC)
}
