package txscope

import (
	"fmt"
	"strings"
)

// SQLDialect represents a SQL database dialect.
type SQLDialect string

// Supported database dialects.
const (
	SQLDialectPostgres  SQLDialect = "postgres"
	SQLDialectMySQL     SQLDialect = "mysql"
	SQLDialectMariaDB   SQLDialect = "mariadb"
	SQLDialectSQLite    SQLDialect = "sqlite"
	SQLDialectOracle    SQLDialect = "oracle"
	SQLDialectSQLServer SQLDialect = "sqlserver"
)

// Placeholder returns the bind placeholder for the given 1-based index.
func (d SQLDialect) Placeholder(index int) string {
	switch d {
	case SQLDialectPostgres:
		return fmt.Sprintf("$%d", index)

	case SQLDialectOracle:
		return fmt.Sprintf(":%d", index)

	case SQLDialectSQLServer:
		return fmt.Sprintf("@p%d", index)

	default:
		return "?"
	}
}

// Rebind rewrites the positional ? placeholders of query into the dialect's
// native form. Question marks inside quoted literals, quoted identifiers,
// line comments (-- up to end of line) and block comments are kept.
func (d SQLDialect) Rebind(query string) string {
	if d.Placeholder(1) == "?" || !strings.Contains(query, "?") {
		return query
	}

	var (
		b     strings.Builder
		index int
	)
	b.Grow(len(query) + 8)

	for i := 0; i < len(query); {
		c := query[i]
		switch {
		case c == '\'' || c == '"' || c == '`':
			end := strings.IndexByte(query[i+1:], c)
			if end < 0 {
				b.WriteString(query[i:])
				return b.String()
			}
			b.WriteString(query[i : i+end+2])
			i += end + 2
		case strings.HasPrefix(query[i:], "--"):
			end := strings.IndexByte(query[i:], '\n')
			if end < 0 {
				b.WriteString(query[i:])
				return b.String()
			}
			b.WriteString(query[i : i+end+1])
			i += end + 1
		case strings.HasPrefix(query[i:], "/*"):
			end := strings.Index(query[i+2:], "*/")
			if end < 0 {
				b.WriteString(query[i:])
				return b.String()
			}
			b.WriteString(query[i : i+end+4])
			i += end + 4
		case c == '?':
			index++
			b.WriteString(d.Placeholder(index))
			i++
		default:
			b.WriteByte(c)
			i++
		}
	}

	return b.String()
}
