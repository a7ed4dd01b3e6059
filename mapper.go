package txscope

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/jmoiron/sqlx/reflectx"
)

// Row is the current row of a result set.
// It is compatible with the standard sql.Rows type.
type Row interface {
	Columns() ([]string, error)
	Scan(dest ...any) error
}

// RowMapper converts one result row into a value of type T.
type RowMapper[T any] interface {
	MapRow(row Row) (T, error)
}

// RowMapperFunc adapts an ordinary function to the RowMapper interface.
type RowMapperFunc[T any] func(row Row) (T, error)

// MapRow calls f(row).
func (f RowMapperFunc[T]) MapRow(row Row) (T, error) {
	return f(row)
}

// ColumnMapper returns a RowMapper scanning a single-column row into T.
func ColumnMapper[T any]() RowMapper[T] {
	return RowMapperFunc[T](func(row Row) (T, error) {
		var v T
		cols, err := row.Columns()
		if err != nil {
			return v, err
		}
		if len(cols) != 1 {
			return v, fmt.Errorf("expected 1 column, got %d", len(cols))
		}
		err = row.Scan(&v)
		return v, err
	})
}

var fieldMapper = reflectx.NewMapperFunc("db", strings.ToLower)

// StructMapper maps rows onto the fields of struct type T through a column
// table resolved when the mapper is created.
type StructMapper[T any] struct {
	columns []string
	fields  map[string][]int
}

// NewStructMapper builds a StructMapper for the given columns.
//
// Each column is resolved against the `db` tags of T, falling back to the
// lowercased field name. Nested and embedded fields are addressed with dotted
// paths. Columns that do not resolve to a field are rejected here, and at
// mapping time a result set must carry exactly the configured columns.
func NewStructMapper[T any](columns ...string) (*StructMapper[T], error) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("struct mapper requires a struct type, got %s", t)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("struct mapper for %s requires at least one column", t)
	}

	tm := fieldMapper.TypeMap(t)
	m := &StructMapper[T]{
		columns: make([]string, 0, len(columns)),
		fields:  make(map[string][]int, len(columns)),
	}

	for _, col := range columns {
		name := strings.ToLower(col)
		if _, dup := m.fields[name]; dup {
			return nil, fmt.Errorf("column %q is listed twice", col)
		}

		fi := tm.GetByPath(col)
		if fi == nil {
			fi = tm.GetByPath(name)
		}
		if fi == nil {
			return nil, fmt.Errorf("column %q has no matching field in %s", col, t)
		}
		if len(fi.Children) > 0 && fi.Field.Type.Kind() == reflect.Struct && !isScannerStruct(fi.Field.Type) {
			return nil, fmt.Errorf("column %q maps to struct field %s", col, fi.Field.Name)
		}

		m.columns = append(m.columns, col)
		m.fields[name] = fi.Index
	}

	return m, nil
}

// MustStructMapper is like NewStructMapper but panics on error.
// It is meant for package-level mapper definitions.
func MustStructMapper[T any](columns ...string) *StructMapper[T] {
	m, err := NewStructMapper[T](columns...)
	if err != nil {
		panic(err)
	}
	return m
}

// Columns returns the configured columns in declaration order.
func (m *StructMapper[T]) Columns() []string {
	return append([]string(nil), m.columns...)
}

// MapRow scans the row into a new T.
func (m *StructMapper[T]) MapRow(row Row) (T, error) {
	var v T

	cols, err := row.Columns()
	if err != nil {
		return v, err
	}

	dest := make([]any, len(cols))
	rv := reflect.ValueOf(&v).Elem()
	seen := make(map[string]struct{}, len(cols))
	for i, col := range cols {
		name := strings.ToLower(col)
		idx, ok := m.fields[name]
		if !ok {
			return v, fmt.Errorf("column %q is not mapped", col)
		}
		if _, dup := seen[name]; dup {
			return v, fmt.Errorf("column %q appears twice in result", col)
		}
		seen[name] = struct{}{}
		dest[i] = reflectx.FieldByIndexes(rv, idx).Addr().Interface()
	}

	if len(seen) != len(m.fields) {
		for _, col := range m.columns {
			if _, ok := seen[strings.ToLower(col)]; !ok {
				return v, fmt.Errorf("column %q is missing from result", col)
			}
		}
	}

	err = row.Scan(dest...)
	return v, err
}

var scannerType = reflect.TypeOf((*interface{ Scan(any) error })(nil)).Elem()

// isScannerStruct reports whether a struct type scans itself, such as
// sql.NullString or time.Time.
func isScannerStruct(t reflect.Type) bool {
	if reflect.PointerTo(t).Implements(scannerType) {
		return true
	}
	return t.PkgPath() == "time" && t.Name() == "Time"
}
