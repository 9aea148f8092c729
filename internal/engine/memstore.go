package engine

import (
	"context"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/celerix-dev/celerix-records/pkg/records"
	"github.com/celerix-dev/celerix-records/pkg/schema"
)

// MemStore is the thread-safe in-memory record engine.
// With a Persistence attached every mutation is snapshotted to disk in the
// background.
type MemStore struct {
	mu sync.RWMutex
	// Structure: [table]collection
	data      map[string]*collection
	persister *Persistence
	logger    *zap.Logger
	wg        sync.WaitGroup
}

type collection struct {
	nextID  int64
	version int64
	rows    map[int64]records.Values
}

// NewMemStore initializes a store.
// It accepts existing snapshots (from LoadAll) and an optional persister.
func NewMemStore(initial map[string]Snapshot, p *Persistence, logger *zap.Logger) *MemStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &MemStore{
		data:      make(map[string]*collection),
		persister: p,
		logger:    logger,
	}
	for table, snap := range initial {
		c := &collection{nextID: snap.NextID, version: snap.Version, rows: make(map[int64]records.Values, len(snap.Rows))}
		for _, row := range snap.Rows {
			c.rows[row.ID] = records.Values(row.Values)
			if row.ID > c.nextID {
				c.nextID = row.ID
			}
		}
		m.data[table] = c
	}
	return m
}

// Wait waits for all background persistence tasks to complete.
func (m *MemStore) Wait() {
	m.wg.Wait()
}

// Collection returns the gateway for s. Rows loaded from disk are coerced
// back to the field types of s.
func (m *MemStore) Collection(_ context.Context, s *schema.Schema) (records.Gateway, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.data[s.Table()]
	if !ok {
		c = &collection{rows: make(map[int64]records.Values)}
		m.data[s.Table()] = c
	}
	for id, row := range c.rows {
		clean, err := restore(s, row)
		if err != nil {
			m.logger.Warn("Dropping unreadable stored record",
				zap.String("entity", s.Name()), zap.Int64("id", id), zap.Error(err))
			delete(c.rows, id)
			continue
		}
		c.rows[id] = clean
	}
	return &memGateway{store: m, schema: s}, nil
}

// Ping always succeeds for the in-memory engine.
func (m *MemStore) Ping(context.Context) error { return nil }

// Close flushes pending snapshots.
func (m *MemStore) Close() error {
	m.Wait()
	return nil
}

// persist writes the snapshot of table in the background.
// It MUST be called after m.mu has been released.
func (m *MemStore) persist(table string, snap Snapshot) {
	if m.persister == nil {
		return
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		if err := m.persister.SaveCollection(table, snap); err != nil {
			m.logger.Error("Failed to persist collection", zap.String("table", table), zap.Error(err))
		}
	}()
}

// snapshot creates a deep copy of a collection.
// It MUST be called while holding m.mu.Lock.
func (c *collection) snapshot() Snapshot {
	c.version++
	snap := Snapshot{NextID: c.nextID, Version: c.version, Rows: make([]Row, 0, len(c.rows))}
	for _, id := range c.ids() {
		snap.Rows = append(snap.Rows, Row{ID: id, Values: c.rows[id].Clone()})
	}
	return snap
}

func (c *collection) ids() []int64 {
	ids := make([]int64, 0, len(c.rows))
	for id := range c.rows {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// memGateway is the Gateway of one schema inside a MemStore.
type memGateway struct {
	store  *MemStore
	schema *schema.Schema
}

func (g *memGateway) Insert(ctx context.Context, values records.Values) (records.Record, error) {
	if err := ctx.Err(); err != nil {
		return records.Record{}, g.fail("insert", err)
	}
	row := whitelist(g.schema, values)

	g.store.mu.Lock()
	c := g.store.data[g.schema.Table()]
	c.nextID++
	id := c.nextID
	c.rows[id] = row
	snap := c.snapshot()
	g.store.mu.Unlock()

	g.store.persist(g.schema.Table(), snap)
	return records.Record{ID: id, Values: row.Clone()}, nil
}

func (g *memGateway) List(ctx context.Context) ([]records.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, g.fail("list", err)
	}
	g.store.mu.RLock()
	defer g.store.mu.RUnlock()

	c := g.store.data[g.schema.Table()]
	out := make([]records.Record, 0, len(c.rows))
	for _, id := range c.ids() {
		out = append(out, records.Record{ID: id, Values: c.rows[id].Clone()})
	}
	return out, nil
}

func (g *memGateway) Get(ctx context.Context, id int64) (records.Record, error) {
	if err := ctx.Err(); err != nil {
		return records.Record{}, g.fail("get", err)
	}
	g.store.mu.RLock()
	defer g.store.mu.RUnlock()

	row, ok := g.store.data[g.schema.Table()].rows[id]
	if !ok {
		return records.Record{}, &records.NotFoundError{Entity: g.schema.Name(), ID: id}
	}
	return records.Record{ID: id, Values: row.Clone()}, nil
}

func (g *memGateway) Update(ctx context.Context, id int64, values records.Values) (records.Record, error) {
	if err := ctx.Err(); err != nil {
		return records.Record{}, g.fail("update", err)
	}
	row := whitelist(g.schema, values)

	g.store.mu.Lock()
	c := g.store.data[g.schema.Table()]
	if _, ok := c.rows[id]; !ok {
		g.store.mu.Unlock()
		return records.Record{}, &records.NotFoundError{Entity: g.schema.Name(), ID: id}
	}
	c.rows[id] = row
	snap := c.snapshot()
	g.store.mu.Unlock()

	g.store.persist(g.schema.Table(), snap)
	return records.Record{ID: id, Values: row.Clone()}, nil
}

func (g *memGateway) Delete(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return g.fail("delete", err)
	}
	g.store.mu.Lock()
	c := g.store.data[g.schema.Table()]
	if _, ok := c.rows[id]; !ok {
		g.store.mu.Unlock()
		return &records.NotFoundError{Entity: g.schema.Name(), ID: id}
	}
	delete(c.rows, id)
	snap := c.snapshot()
	g.store.mu.Unlock()

	g.store.persist(g.schema.Table(), snap)
	return nil
}

func (g *memGateway) fail(op string, err error) error {
	return &records.PersistenceError{Op: op, Entity: g.schema.Name(), Err: err}
}

// whitelist copies only the schema fields out of values.
func whitelist(s *schema.Schema, values records.Values) records.Values {
	row := make(records.Values, len(s.Fields()))
	for _, name := range s.Columns() {
		row[name] = values[name]
	}
	return row
}

// restore re-types a row decoded from a JSON snapshot.
func restore(s *schema.Schema, row records.Values) (records.Values, error) {
	out := make(records.Values, len(row))
	for _, f := range s.Fields() {
		v, ok := row[f.Name]
		if !ok || v == nil {
			out[f.Name] = nil
			continue
		}
		typed, err := schema.Coerce(f.Type, v)
		if err != nil {
			return nil, err
		}
		out[f.Name] = typed
	}
	return out, nil
}
