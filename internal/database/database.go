package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/oagudo/txscope"
	"github.com/oagudo/txscope/internal/config"

	_ "github.com/denisenkom/go-mssqldb"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	_ "github.com/sijms/go-ora/v2"
	"github.com/sirupsen/logrus"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
)

// sqlOpen is replaced in tests.
var sqlOpen = otelsql.Open

type driverInfo struct {
	name   string
	system attribute.KeyValue
}

var drivers = map[txscope.SQLDialect]driverInfo{
	txscope.SQLDialectPostgres:  {name: "pgx", system: semconv.DBSystemPostgreSQL},
	txscope.SQLDialectMySQL:     {name: "mysql", system: semconv.DBSystemKey.String("mysql")},
	txscope.SQLDialectMariaDB:   {name: "mysql", system: semconv.DBSystemKey.String("mariadb")},
	txscope.SQLDialectOracle:    {name: "oracle", system: semconv.DBSystemKey.String("oracle")},
	txscope.SQLDialectSQLServer: {name: "sqlserver", system: semconv.DBSystemKey.String("mssql")},
	txscope.SQLDialectSQLite:    {name: "sqlite3", system: semconv.DBSystemKey.String("sqlite")},
}

// DriverName returns the database/sql driver used for the configured dialect.
func DriverName(cfg *config.Config) (string, error) {
	if cfg.Database.Driver != "" {
		return cfg.Database.Driver, nil
	}
	info, ok := drivers[txscope.SQLDialect(cfg.Database.Dialect)]
	if !ok {
		return "", fmt.Errorf("unsupported dialect %q", cfg.Database.Dialect)
	}
	return info.name, nil
}

// Open opens an instrumented connection pool for the configured database and
// checks that it is reachable.
func Open(log logrus.FieldLogger, cfg *config.Config) (*sql.DB, error) {
	driver, err := DriverName(cfg)
	if err != nil {
		return nil, err
	}
	info := drivers[txscope.SQLDialect(cfg.Database.Dialect)]

	db, err := sqlOpen(driver, cfg.Database.DSN, otelsql.WithAttributes(info.system))
	if err != nil {
		return nil, fmt.Errorf("opening %s database: %w", driver, err)
	}

	db.SetMaxIdleConns(cfg.Database.Pool.Idle)
	db.SetMaxOpenConns(cfg.Database.Pool.Max)
	db.SetConnMaxLifetime(time.Duration(cfg.Database.Pool.Lifetime) * time.Second)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging %s database: %w", driver, err)
	}

	log.WithFields(logrus.Fields{
		"driver":  driver,
		"dialect": cfg.Database.Dialect,
	}).Info("database connection established")
	return db, nil
}
