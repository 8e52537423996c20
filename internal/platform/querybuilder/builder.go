// Package querybuilder renders the small set of Postgres statements the league
// repositories need, numbering $n placeholders across every clause.
package querybuilder

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	errNoTable   = errors.New("table is required")
	errNoColumns = errors.New("columns are required")
)

// binder collects positional arguments and hands out their placeholders.
type binder struct {
	args []any
}

func (b *binder) bind(v any) string {
	b.args = append(b.args, v)
	return "$" + strconv.Itoa(len(b.args))
}

type Condition interface {
	render(sb *strings.Builder, b *binder)
}

type conditionFunc func(sb *strings.Builder, b *binder)

func (f conditionFunc) render(sb *strings.Builder, b *binder) { f(sb, b) }

func Eq(column string, value any) Condition {
	return conditionFunc(func(sb *strings.Builder, b *binder) {
		sb.WriteString(column + " = " + b.bind(value))
	})
}

// In matches nothing when values is empty.
func In(column string, values []any) Condition {
	return conditionFunc(func(sb *strings.Builder, b *binder) {
		if len(values) == 0 {
			sb.WriteString("1=0")
			return
		}
		placeholders := make([]string, len(values))
		for i, v := range values {
			placeholders[i] = b.bind(v)
		}
		sb.WriteString(column + " IN (" + strings.Join(placeholders, ", ") + ")")
	})
}

func IsNull(column string) Condition {
	return conditionFunc(func(sb *strings.Builder, _ *binder) {
		sb.WriteString(column + " IS NULL")
	})
}

func writeWhere(sb *strings.Builder, b *binder, conditions []Condition) {
	for i, c := range conditions {
		if i == 0 {
			sb.WriteString(" WHERE ")
		} else {
			sb.WriteString(" AND ")
		}
		c.render(sb, b)
	}
}

type SelectBuilder struct {
	columns   []string
	table     string
	where     []Condition
	orderBy   []string
	limit     int
	forUpdate bool
}

func Select(columns ...string) *SelectBuilder {
	return &SelectBuilder{columns: columns}
}

func (s *SelectBuilder) From(table string) *SelectBuilder {
	s.table = table
	return s
}

func (s *SelectBuilder) Where(conditions ...Condition) *SelectBuilder {
	s.where = append(s.where, conditions...)
	return s
}

func (s *SelectBuilder) OrderBy(terms ...string) *SelectBuilder {
	s.orderBy = append(s.orderBy, terms...)
	return s
}

func (s *SelectBuilder) Limit(n int) *SelectBuilder {
	s.limit = n
	return s
}

// ForUpdate locks the selected rows until the surrounding transaction ends.
func (s *SelectBuilder) ForUpdate() *SelectBuilder {
	s.forUpdate = true
	return s
}

func (s *SelectBuilder) ToSQL() (string, []any, error) {
	if strings.TrimSpace(s.table) == "" {
		return "", nil, errNoTable
	}
	if len(s.columns) == 0 {
		return "", nil, errNoColumns
	}

	var (
		sb strings.Builder
		b  binder
	)
	sb.WriteString("SELECT " + strings.Join(s.columns, ", ") + " FROM " + s.table)
	writeWhere(&sb, &b, s.where)
	if len(s.orderBy) > 0 {
		sb.WriteString(" ORDER BY " + strings.Join(s.orderBy, ", "))
	}
	if s.limit > 0 {
		sb.WriteString(" LIMIT " + strconv.Itoa(s.limit))
	}
	if s.forUpdate {
		sb.WriteString(" FOR UPDATE")
	}
	return sb.String(), b.args, nil
}

type InsertBuilder struct {
	table      string
	columns    []string
	rows       [][]any
	onConflict string
}

func InsertInto(table string, columns ...string) *InsertBuilder {
	return &InsertBuilder{table: table, columns: columns}
}

func (i *InsertBuilder) Row(values ...any) *InsertBuilder {
	i.rows = append(i.rows, values)
	return i
}

// OnConflict sets the conflict target and action, e.g. "(id) DO NOTHING".
func (i *InsertBuilder) OnConflict(clause string) *InsertBuilder {
	i.onConflict = strings.TrimSpace(clause)
	return i
}

func (i *InsertBuilder) ToSQL() (string, []any, error) {
	if strings.TrimSpace(i.table) == "" {
		return "", nil, errNoTable
	}
	if len(i.columns) == 0 {
		return "", nil, errNoColumns
	}
	if len(i.rows) == 0 {
		return "", nil, errors.New("at least one row is required")
	}

	var (
		sb strings.Builder
		b  binder
	)
	sb.WriteString("INSERT INTO " + i.table + " (" + strings.Join(i.columns, ", ") + ") VALUES ")
	for n, row := range i.rows {
		if len(row) != len(i.columns) {
			return "", nil, fmt.Errorf("row %d has %d values for %d columns", n, len(row), len(i.columns))
		}
		if n > 0 {
			sb.WriteString(", ")
		}
		placeholders := make([]string, len(row))
		for c, v := range row {
			placeholders[c] = b.bind(v)
		}
		sb.WriteString("(" + strings.Join(placeholders, ", ") + ")")
	}
	if i.onConflict != "" {
		sb.WriteString(" ON CONFLICT " + i.onConflict)
	}
	return sb.String(), b.args, nil
}

type assignment struct {
	column string
	value  any
}

type UpdateBuilder struct {
	table string
	sets  []assignment
	where []Condition
}

func Update(table string) *UpdateBuilder {
	return &UpdateBuilder{table: table}
}

func (u *UpdateBuilder) Set(column string, value any) *UpdateBuilder {
	u.sets = append(u.sets, assignment{column: column, value: value})
	return u
}

func (u *UpdateBuilder) Where(conditions ...Condition) *UpdateBuilder {
	u.where = append(u.where, conditions...)
	return u
}

func (u *UpdateBuilder) ToSQL() (string, []any, error) {
	if strings.TrimSpace(u.table) == "" {
		return "", nil, errNoTable
	}
	if len(u.sets) == 0 {
		return "", nil, errNoColumns
	}

	var (
		sb strings.Builder
		b  binder
	)
	sb.WriteString("UPDATE " + u.table + " SET ")
	for n, a := range u.sets {
		if n > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(a.column + " = " + b.bind(a.value))
	}
	writeWhere(&sb, &b, u.where)
	return sb.String(), b.args, nil
}

type DeleteBuilder struct {
	table string
	where []Condition
}

func DeleteFrom(table string) *DeleteBuilder {
	return &DeleteBuilder{table: table}
}

func (d *DeleteBuilder) Where(conditions ...Condition) *DeleteBuilder {
	d.where = append(d.where, conditions...)
	return d
}

// ToSQL refuses to render a DELETE without conditions.
func (d *DeleteBuilder) ToSQL() (string, []any, error) {
	if strings.TrimSpace(d.table) == "" {
		return "", nil, errNoTable
	}
	if len(d.where) == 0 {
		return "", nil, errors.New("delete requires a where clause")
	}

	var (
		sb strings.Builder
		b  binder
	)
	sb.WriteString("DELETE FROM " + d.table)
	writeWhere(&sb, &b, d.where)
	return sb.String(), b.args, nil
}
