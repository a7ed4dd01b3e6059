package txscope

import "context"

// Query runs a query and maps every row with mapper, preserving cursor order.
// An empty result yields an empty, non-nil slice.
func Query[T any](ctx context.Context, e *Executor, query string, mapper RowMapper[T], args ...any) ([]T, error) {
	results := []T{}
	err := e.QueryRows(ctx, query, func(row Row) error {
		v, err := mapper.MapRow(row)
		if err != nil {
			return err
		}
		results = append(results, v)
		return nil
	}, args...)
	if err != nil {
		return nil, err
	}
	return results, nil
}

// QueryOne runs a query and maps its first row.
//
// The boolean result is false when the query returns no rows. When several
// rows are returned only the first is mapped and the rest are discarded
// without error; callers that require uniqueness must enforce it in SQL.
func QueryOne[T any](ctx context.Context, e *Executor, query string, mapper RowMapper[T], args ...any) (T, bool, error) {
	var (
		result T
		found  bool
	)
	err := e.QueryRows(ctx, query, func(row Row) error {
		v, err := mapper.MapRow(row)
		if err != nil {
			return err
		}
		result, found = v, true
		return errStopRows
	}, args...)
	if err != nil {
		var zero T
		return zero, false, err
	}
	return result, found, nil
}
