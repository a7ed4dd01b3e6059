package txscope

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

type user struct {
	ID      int64  `db:"id"`
	Account string `db:"account"`
}

var userMapper = RowMapperFunc[user](func(row Row) (user, error) {
	var u user
	err := row.Scan(&u.ID, &u.Account)
	return u, err
})

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestExecutorExec(t *testing.T) {
	db, mock := newMock(t)
	exec := NewExecutor(NewSource(db))
	query := "UPDATE users SET account = ? WHERE id = ?"

	mock.ExpectPrepare(query).WillBeClosed().
		ExpectExec().
		WithArgs("gugu", int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	affected, err := exec.Exec(context.Background(), query, "gugu", int64(1))

	require.NoError(t, err)
	require.Equal(t, int64(1), affected)
	require.NoError(t, mock.ExpectationsWereMet())
	require.Equal(t, 0, db.Stats().InUse)
}

func TestExecutorExecRebindsPlaceholders(t *testing.T) {
	db, mock := newMock(t)
	exec := NewExecutor(NewSource(db), WithDialect(SQLDialectPostgres))

	mock.ExpectPrepare("DELETE FROM users WHERE id = $1").
		ExpectExec().
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	affected, err := exec.Exec(context.Background(), "DELETE FROM users WHERE id = ?", int64(3))

	require.NoError(t, err)
	require.Zero(t, affected)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExecutorExecErrors(t *testing.T) {
	query := "UPDATE users SET account = ?"

	t.Run("prepare failure", func(t *testing.T) {
		db, mock := newMock(t)
		exec := NewExecutor(NewSource(db))
		mock.ExpectPrepare(query).WillReturnError(errors.New("syntax error"))

		_, err := exec.Exec(context.Background(), query, "x")

		var stmtErr *StatementError
		require.ErrorAs(t, err, &stmtErr)
		require.Equal(t, "prepare", stmtErr.Op)
		require.Equal(t, query, stmtErr.Query)
		require.ErrorIs(t, err, ErrDataAccess)
		require.Equal(t, 0, db.Stats().InUse)
	})

	t.Run("exec failure", func(t *testing.T) {
		db, mock := newMock(t)
		exec := NewExecutor(NewSource(db))
		execErr := errors.New("constraint violation")
		mock.ExpectPrepare(query).WillBeClosed().
			ExpectExec().
			WillReturnError(execErr)

		_, err := exec.Exec(context.Background(), query, "x")

		var stmtErr *StatementError
		require.ErrorAs(t, err, &stmtErr)
		require.Equal(t, "exec", stmtErr.Op)
		require.ErrorIs(t, err, execErr)
		require.NoError(t, mock.ExpectationsWereMet())
		require.Equal(t, 0, db.Stats().InUse)
	})

	t.Run("connection failure", func(t *testing.T) {
		openErr := errors.New("connection refused")
		exec := NewExecutor(&fakeSource{connErr: openErr})

		_, err := exec.Exec(context.Background(), query, "x")

		var connErr *ConnectionError
		require.ErrorAs(t, err, &connErr)
		require.ErrorIs(t, err, openErr)
	})
}

func TestQuery(t *testing.T) {
	query := "SELECT id, account FROM users"

	t.Run("maps rows in cursor order", func(t *testing.T) {
		db, mock := newMock(t)
		exec := NewExecutor(NewSource(db))
		mock.ExpectPrepare(query).WillBeClosed().
			ExpectQuery().
			WillReturnRows(sqlmock.NewRows([]string{"id", "account"}).
				AddRow(int64(2), "gugu").
				AddRow(int64(1), "ash"))

		users, err := Query(context.Background(), exec, query, userMapper)

		require.NoError(t, err)
		require.Equal(t, []user{{ID: 2, Account: "gugu"}, {ID: 1, Account: "ash"}}, users)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty result", func(t *testing.T) {
		db, mock := newMock(t)
		exec := NewExecutor(NewSource(db))
		mock.ExpectPrepare(query).
			ExpectQuery().
			WillReturnRows(sqlmock.NewRows([]string{"id", "account"}))

		users, err := Query(context.Background(), exec, query, userMapper)

		require.NoError(t, err)
		require.NotNil(t, users)
		require.Empty(t, users)
	})

	t.Run("struct mapper", func(t *testing.T) {
		db, mock := newMock(t)
		exec := NewExecutor(NewSource(db))
		mock.ExpectPrepare(query).
			ExpectQuery().
			WillReturnRows(sqlmock.NewRows([]string{"id", "account"}).AddRow(int64(5), "gugu"))

		users, err := Query(context.Background(), exec, query, MustStructMapper[user]("id", "account"))

		require.NoError(t, err)
		require.Equal(t, []user{{ID: 5, Account: "gugu"}}, users)
	})

	t.Run("mapping failure", func(t *testing.T) {
		db, mock := newMock(t)
		exec := NewExecutor(NewSource(db))
		mock.ExpectPrepare(query).WillBeClosed().
			ExpectQuery().
			WillReturnRows(sqlmock.NewRows([]string{"id", "account"}).
				AddRow(int64(1), "gugu").
				AddRow(int64(2), "ash")).
			RowsWillBeClosed()
		mapErr := errors.New("bad row")
		mapper := RowMapperFunc[user](func(row Row) (user, error) {
			u, err := userMapper(row)
			if err == nil && u.ID == 2 {
				return u, mapErr
			}
			return u, err
		})

		users, err := Query(context.Background(), exec, query, mapper)

		require.Nil(t, users)
		var mappingErr *MappingError
		require.ErrorAs(t, err, &mappingErr)
		require.Equal(t, 1, mappingErr.Row)
		require.ErrorIs(t, err, mapErr)
		require.ErrorIs(t, err, ErrDataAccess)
		require.NoError(t, mock.ExpectationsWereMet())
		require.Equal(t, 0, db.Stats().InUse)
	})

	t.Run("iteration failure", func(t *testing.T) {
		db, mock := newMock(t)
		exec := NewExecutor(NewSource(db))
		fetchErr := errors.New("connection reset")
		mock.ExpectPrepare(query).
			ExpectQuery().
			WillReturnRows(sqlmock.NewRows([]string{"id", "account"}).
				AddRow(int64(1), "gugu").
				RowError(0, fetchErr))

		_, err := Query(context.Background(), exec, query, userMapper)

		var stmtErr *StatementError
		require.ErrorAs(t, err, &stmtErr)
		require.Equal(t, "fetch", stmtErr.Op)
		require.ErrorIs(t, err, fetchErr)
	})
}

func TestQueryOne(t *testing.T) {
	query := "SELECT id, account FROM users WHERE id = ?"

	tests := []struct {
		name      string
		rows      *sqlmock.Rows
		wantFound bool
		want      user
	}{
		{
			name:      "no rows reports not found",
			rows:      sqlmock.NewRows([]string{"id", "account"}),
			wantFound: false,
		},
		{
			name:      "single row",
			rows:      sqlmock.NewRows([]string{"id", "account"}).AddRow(int64(1), "gugu"),
			wantFound: true,
			want:      user{ID: 1, Account: "gugu"},
		},
		{
			name: "several rows return the first one",
			rows: sqlmock.NewRows([]string{"id", "account"}).
				AddRow(int64(1), "gugu").
				AddRow(int64(2), "ash").
				AddRow(int64(3), "brock"),
			wantFound: true,
			want:      user{ID: 1, Account: "gugu"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMock(t)
			exec := NewExecutor(NewSource(db))
			mock.ExpectPrepare(query).WillBeClosed().
				ExpectQuery().
				WithArgs(int64(1)).
				WillReturnRows(tt.rows).
				RowsWillBeClosed()

			got, found, err := QueryOne(context.Background(), exec, query, userMapper, int64(1))

			require.NoError(t, err)
			require.Equal(t, tt.wantFound, found)
			require.Equal(t, tt.want, got)
			require.NoError(t, mock.ExpectationsWereMet())
			require.Equal(t, 0, db.Stats().InUse)
		})
	}
}

func TestSequentialQueriesReleaseConnections(t *testing.T) {
	db, mock := newMock(t)
	exec := NewExecutor(NewSource(db))
	query := "SELECT id, account FROM users WHERE id = ?"
	ctx := context.Background()

	baseline := db.Stats().InUse
	for _, id := range []int64{1, 999} {
		rows := sqlmock.NewRows([]string{"id", "account"})
		if id == 1 {
			rows.AddRow(int64(1), "gugu")
		}
		mock.ExpectPrepare(query).ExpectQuery().WithArgs(id).WillReturnRows(rows)
	}

	_, found, err := QueryOne(ctx, exec, query, userMapper, int64(1))
	require.NoError(t, err)
	require.True(t, found)

	_, found, err = QueryOne(ctx, exec, query, userMapper, int64(999))
	require.NoError(t, err)
	require.False(t, found)

	require.Equal(t, baseline, db.Stats().InUse)
	require.NoError(t, mock.ExpectationsWereMet())
}
