package schema

import (
	"strings"

	"github.com/mesh-intelligence/yorm/pkg/types"
)

// sqlTypes maps column kinds to column types per driver. SQLite is the
// fallback for drivers without an entry.
var sqlTypes = map[string]map[Kind]string{
	types.DriverSQLite: {
		Integer:   "INTEGER",
		Real:      "REAL",
		Text:      "TEXT",
		Boolean:   "BOOLEAN",
		Blob:      "BLOB",
		Timestamp: "TIMESTAMP",
		Custom:    "TEXT",
	},
	types.DriverMySQL: {
		Integer:   "BIGINT",
		Real:      "DOUBLE",
		Text:      "TEXT",
		Boolean:   "BOOLEAN",
		Blob:      "BLOB",
		Timestamp: "DATETIME(6)",
		Custom:    "TEXT",
	},
	types.DriverPostgres: {
		Integer:   "BIGINT",
		Real:      "DOUBLE PRECISION",
		Text:      "TEXT",
		Boolean:   "BOOLEAN",
		Blob:      "BYTEA",
		Timestamp: "TIMESTAMPTZ",
		Custom:    "TEXT",
	},
}

// keyTypes overrides the column type of the primary key. Integer keys are
// assigned by the store.
var keyTypes = map[string]map[Kind]string{
	types.DriverSQLite: {
		Integer: "INTEGER PRIMARY KEY",
	},
	types.DriverMySQL: {
		Integer: "BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY",
		Text:    "VARCHAR(64) NOT NULL PRIMARY KEY",
	},
	types.DriverPostgres: {
		Integer: "BIGSERIAL PRIMARY KEY",
	},
}

// CreateTableSQL returns a CREATE TABLE IF NOT EXISTS statement for t.
// Columns of non-pointer fields are NOT NULL, except blobs and custom types,
// whose zero values may bind as NULL.
func CreateTableSQL(t *Table, driverName string) string {
	typesFor, ok := sqlTypes[driverName]
	if !ok {
		typesFor = sqlTypes[types.DriverSQLite]
	}
	keysFor, ok := keyTypes[driverName]
	if !ok {
		keysFor = keyTypes[types.DriverSQLite]
	}

	clauses := make([]string, 0, len(t.Columns)+1)
	keyInline := false
	for i, c := range t.Columns {
		if i == t.pk {
			if def, ok := keysFor[c.Kind]; ok {
				clauses = append(clauses, c.Name+" "+def)
				keyInline = true
				continue
			}
		}
		def := c.Name + " " + typesFor[c.Kind]
		if !c.Nullable && c.Kind != Blob && c.Kind != Custom {
			def += " NOT NULL"
		}
		clauses = append(clauses, def)
	}
	if t.pk >= 0 && !keyInline {
		clauses = append(clauses, "PRIMARY KEY ("+t.Columns[t.pk].Name+")")
	}
	return "CREATE TABLE IF NOT EXISTS " + t.Name + " (" + strings.Join(clauses, ", ") + ")"
}
