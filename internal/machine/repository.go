package machine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mostwo/mostwo-core/internal/store"
)

// Repository defines the interface for machine persistence operations.
type Repository interface {
	Get(ctx context.Context, id string) (*Machine, error)
	List(ctx context.Context, skip, limit int) ([]Machine, error)
	Count(ctx context.Context) (int, error)
	Create(ctx context.Context, in Input) (*Machine, error)
	Update(ctx context.Context, existing *Machine, p Patch) (*Machine, error)
	Remove(ctx context.Context, id string) (*Machine, error)

	FindByName(ctx context.Context, name string) (*Machine, error)
	FindByAddressPort(ctx context.Context, address string, port int) (*Machine, error)
	SetStatus(ctx context.Context, m *Machine, status string) (*Machine, error)
}

var schema = store.Schema[Machine]{
	Table:   "machines",
	Columns: []string{"id", "name", "type", "address", "port", "status"},
	Scan:    scanMachine,
	Values: func(m *Machine) []any {
		return []any{m.ID, m.Name, m.Type, m.Address, m.Port, m.Status}
	},
	ID:    func(m *Machine) string { return m.ID },
	SetID: func(m *Machine, id string) { m.ID = id },
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	records *store.Store[Machine]
}

// NewSQLiteRepository creates a new SQLite-backed machine repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{records: store.New(db, schema)}
}

// Get returns the machine with id, or nil if it does not exist or id is malformed.
func (r *SQLiteRepository) Get(ctx context.Context, id string) (*Machine, error) {
	return r.records.Get(ctx, id)
}

// List returns a page of machines in creation order.
func (r *SQLiteRepository) List(ctx context.Context, skip, limit int) ([]Machine, error) {
	return r.records.List(ctx, skip, limit)
}

// Count returns the number of machines.
func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	return r.records.Count(ctx)
}

// Create stores a new machine. A second machine at an address and port
// already in use fails with ErrAddressInUse.
func (r *SQLiteRepository) Create(ctx context.Context, in Input) (*Machine, error) {
	m, err := r.records.Create(ctx, in.Machine())
	if err != nil {
		return nil, translate(err)
	}
	return m, nil
}

// Update applies the fields present in p to existing.
func (r *SQLiteRepository) Update(ctx context.Context, existing *Machine, p Patch) (*Machine, error) {
	m, err := r.records.Update(ctx, existing, p.changes())
	if err != nil {
		return nil, translate(err)
	}
	return m, nil
}

// Remove deletes a machine and, through the foreign key, its events.
// It fails with ErrMachineNotFound when nothing was deleted.
func (r *SQLiteRepository) Remove(ctx context.Context, id string) (*Machine, error) {
	m, err := r.records.Remove(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	return m, nil
}

// FindByName returns the first machine with an exact name match.
// Machine names are not unique.
func (r *SQLiteRepository) FindByName(ctx context.Context, name string) (*Machine, error) {
	return r.records.FindOne(ctx, `"name" = ?`, name)
}

// FindByAddressPort returns the machine listening at address and port, if any.
func (r *SQLiteRepository) FindByAddressPort(ctx context.Context, address string, port int) (*Machine, error) {
	return r.records.FindOne(ctx, `"address" = ? AND "port" = ?`, address, port)
}

// SetStatus changes only the status of m.
func (r *SQLiteRepository) SetStatus(ctx context.Context, m *Machine, status string) (*Machine, error) {
	updated, err := r.records.Update(ctx, m, store.Changes{"status": status})
	if err != nil {
		return nil, translate(err)
	}
	return updated, nil
}

// changes converts the present fields of p to column values. ID is dropped.
func (p Patch) changes() store.Changes {
	c := store.Changes{}
	if p.Name.Set {
		c["name"] = p.Name.Value
	}
	if p.Type.Set {
		c["type"] = p.Type.Value
	}
	if p.Address.Set {
		c["address"] = p.Address.Value
	}
	if p.Port.Set {
		c["port"] = p.Port.Value
	}
	if p.Status.Set {
		c["status"] = p.Status.Value
	}
	return c
}

func scanMachine(row store.RowScanner) (*Machine, error) {
	var m Machine
	if err := row.Scan(&m.ID, &m.Name, &m.Type, &m.Address, &m.Port, &m.Status); err != nil {
		return nil, err
	}
	return &m, nil
}

// translate maps store errors onto machine sentinels, keeping the original in the chain.
func translate(err error) error {
	switch {
	case errors.Is(err, store.ErrConflict):
		return fmt.Errorf("%w: %w", ErrAddressInUse, err)
	case errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("%w: %w", ErrMachineNotFound, err)
	default:
		return err
	}
}
