package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/lib/pq"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/celerix-dev/celerix-records/pkg/records"
	"github.com/celerix-dev/celerix-records/pkg/schema"
)

// SQLStore is a Provider backed by a database/sql pool.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
	logger  *zap.Logger
}

// NewSQLStore wraps an open pool. dialectName is DialectPostgres or DialectSQLite.
func NewSQLStore(db *sql.DB, dialectName string, logger *zap.Logger) (*SQLStore, error) {
	d, err := lookupDialect(dialectName)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SQLStore{db: db, dialect: d, logger: logger}, nil
}

// Collection creates the table of s when missing and returns its gateway.
func (st *SQLStore) Collection(ctx context.Context, s *schema.Schema) (records.Gateway, error) {
	stmts := st.dialect.statements(s)
	if _, err := st.db.ExecContext(ctx, stmts.create); err != nil {
		return nil, fmt.Errorf("create table %s: %w", s.Table(), err)
	}
	st.logger.Debug("Collection ready", zap.String("entity", s.Name()), zap.String("table", s.Table()))
	return &sqlGateway{store: st, schema: s, stmts: stmts}, nil
}

// Ping checks the connection pool.
func (st *SQLStore) Ping(ctx context.Context) error {
	return st.db.PingContext(ctx)
}

// Close closes the pool.
func (st *SQLStore) Close() error {
	return st.db.Close()
}

// sqlGateway is the Gateway of one schema inside a SQLStore.
type sqlGateway struct {
	store  *SQLStore
	schema *schema.Schema
	stmts  statements
}

// session acquires a dedicated connection for one operation. The caller
// releases it with the returned func on every exit path.
func (g *sqlGateway) session(ctx context.Context, op string) (*sql.Conn, func(), error) {
	conn, err := g.store.db.Conn(ctx)
	if err != nil {
		return nil, nil, g.fail(op, err)
	}
	return conn, func() {
		if err := conn.Close(); err != nil {
			g.store.logger.Warn("Failed to release connection", zap.String("op", op), zap.Error(err))
		}
	}, nil
}

func (g *sqlGateway) Insert(ctx context.Context, values records.Values) (records.Record, error) {
	conn, release, err := g.session(ctx, "insert")
	if err != nil {
		return records.Record{}, err
	}
	defer release()

	row := conn.QueryRowContext(ctx, g.stmts.insert, g.args(values)...)
	rec, err := g.scan(row)
	if err != nil {
		return records.Record{}, g.fail("insert", err)
	}
	return rec, nil
}

func (g *sqlGateway) List(ctx context.Context) ([]records.Record, error) {
	conn, release, err := g.session(ctx, "list")
	if err != nil {
		return nil, err
	}
	defer release()

	rows, err := conn.QueryContext(ctx, g.stmts.list)
	if err != nil {
		return nil, g.fail("list", err)
	}
	defer rows.Close()

	out := make([]records.Record, 0)
	for rows.Next() {
		rec, err := g.scan(rows)
		if err != nil {
			return nil, g.fail("list", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, g.fail("list", err)
	}
	return out, nil
}

func (g *sqlGateway) Get(ctx context.Context, id int64) (records.Record, error) {
	conn, release, err := g.session(ctx, "get")
	if err != nil {
		return records.Record{}, err
	}
	defer release()

	rec, err := g.scan(conn.QueryRowContext(ctx, g.stmts.get, id))
	if errors.Is(err, sql.ErrNoRows) {
		return records.Record{}, &records.NotFoundError{Entity: g.schema.Name(), ID: id}
	}
	if err != nil {
		return records.Record{}, g.fail("get", err)
	}
	return rec, nil
}

func (g *sqlGateway) Update(ctx context.Context, id int64, values records.Values) (records.Record, error) {
	conn, release, err := g.session(ctx, "update")
	if err != nil {
		return records.Record{}, err
	}
	defer release()

	args := append(g.args(values), id)
	rec, err := g.scan(conn.QueryRowContext(ctx, g.stmts.update, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return records.Record{}, &records.NotFoundError{Entity: g.schema.Name(), ID: id}
	}
	if err != nil {
		return records.Record{}, g.fail("update", err)
	}
	return rec, nil
}

func (g *sqlGateway) Delete(ctx context.Context, id int64) error {
	conn, release, err := g.session(ctx, "delete")
	if err != nil {
		return err
	}
	defer release()

	res, err := conn.ExecContext(ctx, g.stmts.delete, id)
	if err != nil {
		return g.fail("delete", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return g.fail("delete", err)
	}
	if n == 0 {
		return &records.NotFoundError{Entity: g.schema.Name(), ID: id}
	}
	return nil
}

// args lists the values in column order; only schema fields are bound.
func (g *sqlGateway) args(values records.Values) []any {
	cols := g.schema.Columns()
	args := make([]any, len(cols))
	for i, name := range cols {
		args[i] = values[name]
	}
	return args
}

type scanner interface {
	Scan(dest ...any) error
}

func (g *sqlGateway) scan(sc scanner) (records.Record, error) {
	fields := g.schema.Fields()
	raw := make([]any, len(fields)+1)
	dest := make([]any, len(raw))
	for i := range raw {
		dest[i] = &raw[i]
	}
	if err := sc.Scan(dest...); err != nil {
		return records.Record{}, err
	}

	id, err := toInt64(raw[0])
	if err != nil {
		return records.Record{}, fmt.Errorf("column id: %w", err)
	}
	rec := records.Record{ID: id, Values: make(records.Values, len(fields))}
	for i, f := range fields {
		v, err := columnValue(f.Type, raw[i+1])
		if err != nil {
			return records.Record{}, fmt.Errorf("column %s: %w", f.Name, err)
		}
		rec.Values[f.Name] = v
	}
	return rec, nil
}

func (g *sqlGateway) fail(op string, err error) error {
	fields := []zap.Field{zap.String("op", op), zap.String("entity", g.schema.Name()), zap.Error(err)}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		fields = append(fields, zap.String("sqlstate", string(pqErr.Code)), zap.String("condition", pqErr.Code.Name()))
	}
	g.store.logger.Error("Storage operation failed", fields...)
	return &records.PersistenceError{Op: op, Entity: g.schema.Name(), Err: err}
}

// columnValue normalizes what the drivers hand back: SQLite may return
// booleans as integers and text as bytes.
func columnValue(t schema.FieldType, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch t {
	case schema.TypeString:
		switch x := v.(type) {
		case string:
			return x, nil
		case []byte:
			return string(x), nil
		}
	case schema.TypeInteger:
		return toInt64(v)
	case schema.TypeBoolean:
		switch x := v.(type) {
		case bool:
			return x, nil
		case int64:
			return x != 0, nil
		case []byte:
			return strconv.ParseBool(string(x))
		case string:
			return strconv.ParseBool(x)
		}
	}
	return nil, fmt.Errorf("unexpected %T for %s column", v, t)
}

func toInt64(v any) (int64, error) {
	switch x := v.(type) {
	case int64:
		return x, nil
	case int32:
		return int64(x), nil
	case int:
		return int64(x), nil
	case []byte:
		return strconv.ParseInt(string(x), 10, 64)
	}
	return 0, fmt.Errorf("unexpected %T for integer column", v)
}
