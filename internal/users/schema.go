package users

import (
	"context"
	"fmt"

	"github.com/oagudo/txscope"
)

func identityColumn(dialect txscope.SQLDialect) string {
	switch dialect {
	case txscope.SQLDialectPostgres:
		return "BIGSERIAL PRIMARY KEY"
	case txscope.SQLDialectMySQL, txscope.SQLDialectMariaDB:
		return "BIGINT AUTO_INCREMENT PRIMARY KEY"
	case txscope.SQLDialectOracle:
		return "NUMBER GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY"
	case txscope.SQLDialectSQLServer:
		return "BIGINT IDENTITY(1,1) PRIMARY KEY"
	default:
		return "INTEGER PRIMARY KEY AUTOINCREMENT"
	}
}

func createTable(dialect txscope.SQLDialect) string {
	switch dialect {
	case txscope.SQLDialectOracle, txscope.SQLDialectSQLServer:
		return "CREATE TABLE"
	default:
		return "CREATE TABLE IF NOT EXISTS"
	}
}

func schema(dialect txscope.SQLDialect) []string {
	return []string{
		fmt.Sprintf(`%s users (
			id %s,
			account VARCHAR(100) NOT NULL,
			password VARCHAR(100) NOT NULL,
			email VARCHAR(100) NOT NULL
		)`, createTable(dialect), identityColumn(dialect)),
		fmt.Sprintf(`%s user_history (
			id %s,
			user_id BIGINT NOT NULL,
			account VARCHAR(100) NOT NULL,
			password VARCHAR(100) NOT NULL,
			email VARCHAR(100) NOT NULL,
			created_at TIMESTAMP NOT NULL,
			created_by VARCHAR(100) NOT NULL CHECK (created_by <> '')
		)`, createTable(dialect), identityColumn(dialect)),
	}
}

// Migrate creates the users and user_history tables in a single transaction.
// Databases without transactional DDL may keep a partially applied schema
// on failure.
func Migrate(ctx context.Context, txm *txscope.TxManager, exec *txscope.Executor, dialect txscope.SQLDialect) error {
	return txm.Run(ctx, func(ctx context.Context) error {
		for _, stmt := range schema(dialect) {
			if _, err := exec.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("creating schema: %w", err)
			}
		}
		return nil
	})
}
