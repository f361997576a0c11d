package postgres

import (
	"reflect"
	"sync"
)

// Columns returns the "db" tag names of T in declaration order, descending into
// embedded structs. Results are cached per type.
//
//	cols := Columns[settlement.Settlement]()
//	// ["id", "tenant_id", "created_at", "year", "month", "mandate_id", ...]
func Columns[T any]() []string {
	var zero T
	meta := metadataFor(reflect.TypeOf(zero))
	out := make([]string, len(meta))
	for i, f := range meta {
		out[i] = f.column
	}
	return out
}

// Values returns the "db" field values of v in the same order as Columns, ready for
// squirrel's Values or a COPY row.
func Values(v any) []any {
	rv := reflect.Indirect(reflect.ValueOf(v))
	if rv.Kind() != reflect.Struct {
		return nil
	}
	meta := metadataFor(rv.Type())
	out := make([]any, len(meta))
	for i, f := range meta {
		out[i] = rv.FieldByIndex(f.index).Interface()
	}
	return out
}

// Prefixed qualifies each column with a table alias.
func Prefixed(alias string, cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = alias + "." + c
	}
	return out
}

type column struct {
	column string
	index  []int
}

var typeCache sync.Map // map[reflect.Type][]column

func metadataFor(t reflect.Type) []column {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if cached, ok := typeCache.Load(t); ok {
		return cached.([]column)
	}
	var cols []column
	if t.Kind() == reflect.Struct {
		cols = collect(t, nil)
	}
	typeCache.Store(t, cols)
	return cols
}

func collect(t reflect.Type, parent []int) []column {
	var cols []column
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		index := append(append([]int(nil), parent...), i)

		tag := field.Tag.Get("db")
		if tag == "-" {
			continue
		}
		if field.Anonymous && tag == "" {
			ft := field.Type
			if ft.Kind() == reflect.Ptr {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct {
				cols = append(cols, collect(ft, index)...)
			}
			continue
		}
		if tag == "" || !field.IsExported() {
			continue
		}
		cols = append(cols, column{column: tag, index: index})
	}
	return cols
}
