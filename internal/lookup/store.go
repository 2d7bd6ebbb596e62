// Package lookup reads attribute multipliers and display rules from
// Postgres. Item attributes and hero stats live in two tables of the same
// shape; see migrations/001_lookup.sql.
package lookup

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"sync"

	_ "github.com/lib/pq"

	"github.com/ignite/profilebot/internal/pkg/logger"
)

// Row is one attribute or stat. Display is a liquid snippet rendered with
// min and max (items) or value (stats); empty means not shown.
type Row struct {
	Name        string
	Multiplier  float64
	Display     string
	DispName    string
	DispOrder   int
	PrimaryStat bool
}

// Shown reports whether the row has display text below maxOrder.
func (r Row) Shown(maxOrder int) bool {
	return r.Display != "" && r.DispOrder < maxOrder
}

var identRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Store caches rows in memory after the first read.
type Store struct {
	db         *sql.DB
	itemTable  string
	statsTable string

	mu    sync.Mutex
	items map[string]Row
	stats map[string]Row
	log   *logger.Logger
}

// Open connects to Postgres.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("lookup: ping: %w", err)
	}
	return db, nil
}

// NewStore returns a store over the named tables.
func NewStore(db *sql.DB, itemTable, statsTable string) (*Store, error) {
	for _, t := range []string{itemTable, statsTable} {
		if !identRe.MatchString(t) {
			return nil, fmt.Errorf("lookup: invalid table name %q", t)
		}
	}
	return &Store{
		db:         db,
		itemTable:  itemTable,
		statsTable: statsTable,
		items:      make(map[string]Row),
		stats:      make(map[string]Row),
		log:        logger.With("component", "lookup"),
	}, nil
}

// Attribute returns the item attribute row for name. Unknown attributes are
// inserted with multiplier 1 so they can be curated later.
func (s *Store) Attribute(ctx context.Context, name string) (Row, error) {
	return s.row(ctx, s.itemTable, s.items, name)
}

// Stat returns the hero stat row for name, inserting unknown stats the same
// way as Attribute.
func (s *Store) Stat(ctx context.Context, name string) (Row, error) {
	return s.row(ctx, s.statsTable, s.stats, name)
}

func (s *Store) row(ctx context.Context, table string, cache map[string]Row, name string) (Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r, ok := cache[name]; ok {
		return r, nil
	}

	r, err := s.query(ctx, table, name)
	if errors.Is(err, sql.ErrNoRows) {
		s.log.Info("adding unknown attribute", "table", table, "name", name)
		q := fmt.Sprintf(`INSERT INTO %s (name, multiplier) VALUES ($1, 1) ON CONFLICT (name) DO NOTHING`, table)
		if _, err := s.db.ExecContext(ctx, q, name); err != nil {
			return Row{}, fmt.Errorf("lookup: insert %s.%s: %w", table, name, err)
		}
		r, err = Row{Name: name, Multiplier: 1, DispOrder: defaultOrder}, nil
	}
	if err != nil {
		return Row{}, fmt.Errorf("lookup: %s.%s: %w", table, name, err)
	}
	cache[name] = r
	return r, nil
}

// defaultOrder matches the column default in the schema.
const defaultOrder = 1000

func (s *Store) query(ctx context.Context, table, name string) (Row, error) {
	q := fmt.Sprintf(`SELECT name, multiplier, COALESCE(display, ''), COALESCE(disp_name, ''), disp_order, primary_stat
		FROM %s WHERE name = $1`, table)
	var r Row
	err := s.db.QueryRowContext(ctx, q, name).Scan(
		&r.Name, &r.Multiplier, &r.Display, &r.DispName, &r.DispOrder, &r.PrimaryStat)
	return r, err
}

// Forget drops cached rows so edits to the tables are picked up.
func (s *Store) Forget() {
	s.mu.Lock()
	s.items = make(map[string]Row)
	s.stats = make(map[string]Row)
	s.mu.Unlock()
}
