package engine

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/celerix-dev/celerix-records/pkg/schema"
)

// Dialect names accepted by NewSQLStore.
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

// dialect captures the SQL differences between the supported databases.
// Both support RETURNING, which keeps every mutation a single statement.
type dialect struct {
	name       string
	driver     string
	identity   string
	columnType map[schema.FieldType]string
	positional bool
}

var dialects = map[string]dialect{
	DialectPostgres: {
		name:     DialectPostgres,
		driver:   "postgres",
		identity: `"id" BIGSERIAL PRIMARY KEY`,
		columnType: map[schema.FieldType]string{
			schema.TypeString:  "TEXT",
			schema.TypeInteger: "BIGINT",
			schema.TypeBoolean: "BOOLEAN",
		},
		positional: true,
	},
	DialectSQLite: {
		name:     DialectSQLite,
		driver:   "sqlite",
		identity: `"id" INTEGER PRIMARY KEY AUTOINCREMENT`,
		columnType: map[schema.FieldType]string{
			schema.TypeString:  "TEXT",
			schema.TypeInteger: "INTEGER",
			schema.TypeBoolean: "BOOLEAN",
		},
	},
}

func lookupDialect(name string) (dialect, error) {
	d, ok := dialects[name]
	if !ok {
		return dialect{}, fmt.Errorf("unknown sql dialect %q", name)
	}
	return d, nil
}

func (d dialect) placeholder(n int) string {
	if d.positional {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// quote quotes an identifier. Schema names are validated identifiers, so no
// escaping is needed.
func quote(name string) string {
	return `"` + name + `"`
}

// statements holds the prepared SQL text of one collection.
type statements struct {
	create string
	insert string
	list   string
	get    string
	update string
	delete string
}

func (d dialect) statements(s *schema.Schema) statements {
	table := quote(s.Table())
	fields := s.Fields()

	defs := []string{d.identity}
	cols := make([]string, len(fields))
	marks := make([]string, len(fields))
	sets := make([]string, len(fields))
	for i, f := range fields {
		def := quote(f.Name) + " " + d.columnType[f.Type]
		if f.Required {
			def += " NOT NULL"
		}
		defs = append(defs, def)
		cols[i] = quote(f.Name)
		marks[i] = d.placeholder(i + 1)
		sets[i] = cols[i] + " = " + marks[i]
	}
	selectList := quote(schema.IdentityField) + ", " + strings.Join(cols, ", ")
	idMark := d.placeholder(len(fields) + 1)

	return statements{
		create: fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", table, strings.Join(defs, ", ")),
		insert: fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
			table, strings.Join(cols, ", "), strings.Join(marks, ", "), selectList),
		list: fmt.Sprintf("SELECT %s FROM %s ORDER BY %s", selectList, table, quote(schema.IdentityField)),
		get: fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s",
			selectList, table, quote(schema.IdentityField), d.placeholder(1)),
		update: fmt.Sprintf("UPDATE %s SET %s WHERE %s = %s RETURNING %s",
			table, strings.Join(sets, ", "), quote(schema.IdentityField), idMark, selectList),
		delete: fmt.Sprintf("DELETE FROM %s WHERE %s = %s",
			table, quote(schema.IdentityField), d.placeholder(1)),
	}
}
