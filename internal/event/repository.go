package event

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mostwo/mostwo-core/internal/store"
)

// Repository defines the interface for event persistence operations.
type Repository interface {
	Get(ctx context.Context, id string) (*Event, error)
	List(ctx context.Context, skip, limit int) ([]Event, error)
	Count(ctx context.Context) (int, error)
	Create(ctx context.Context, in Input) (*Event, error)
	Update(ctx context.Context, existing *Event, p Patch) (*Event, error)
	Remove(ctx context.Context, id string) (*Event, error)

	FindByName(ctx context.Context, name string) (*Event, error)
	ListByMachine(ctx context.Context, machineID string, skip, limit int) ([]Event, error)
	ListAllByMachine(ctx context.Context, machineID string) ([]Event, error)
	ListEnabled(ctx context.Context) ([]Event, error)
	SetEnabled(ctx context.Context, e *Event, enabled bool) (*Event, error)
}

var schema = store.Schema[Event]{
	Table:   "events",
	Columns: []string{"id", "name", "description", "enabled", "trigger", "actions", "machine_id"},
	Scan:    scanEvent,
	Values: func(e *Event) []any {
		return []any{e.ID, e.Name, e.Description, e.Enabled, string(e.Trigger), string(e.Actions), e.MachineID}
	},
	ID:    func(e *Event) string { return e.ID },
	SetID: func(e *Event, id string) { e.ID = id },
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	records *store.Store[Event]
}

// NewSQLiteRepository creates a new SQLite-backed event repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{records: store.New(db, schema)}
}

// Get returns the event with id, or nil if it does not exist or id is malformed.
func (r *SQLiteRepository) Get(ctx context.Context, id string) (*Event, error) {
	return r.records.Get(ctx, id)
}

// List returns a page of events in creation order.
func (r *SQLiteRepository) List(ctx context.Context, skip, limit int) ([]Event, error) {
	return r.records.List(ctx, skip, limit)
}

// Count returns the number of events.
func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	return r.records.Count(ctx)
}

// Create stores a new event. Duplicate names fail with ErrNameExists and
// an unknown machine_id with ErrMachineNotFound.
func (r *SQLiteRepository) Create(ctx context.Context, in Input) (*Event, error) {
	rec := in.Event()
	ref, err := machineRef(rec.MachineID)
	if err != nil {
		return nil, err
	}
	rec.MachineID = ref

	e, err := r.records.Create(ctx, rec)
	if err != nil {
		return nil, translate(err)
	}
	return e, nil
}

// Update applies the fields present in p to existing.
func (r *SQLiteRepository) Update(ctx context.Context, existing *Event, p Patch) (*Event, error) {
	c, err := p.changes()
	if err != nil {
		return nil, err
	}
	e, err := r.records.Update(ctx, existing, c)
	if err != nil {
		return nil, translate(err)
	}
	return e, nil
}

// Remove deletes an event. It fails with ErrEventNotFound when nothing was deleted.
func (r *SQLiteRepository) Remove(ctx context.Context, id string) (*Event, error) {
	e, err := r.records.Remove(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	return e, nil
}

// FindByName returns the event with the given name, if any.
func (r *SQLiteRepository) FindByName(ctx context.Context, name string) (*Event, error) {
	return r.records.FindOne(ctx, `"name" = ?`, name)
}

// ListByMachine returns a page of the events owned by machineID. Any
// spelling of a UUID matches; a malformed id owns nothing.
func (r *SQLiteRepository) ListByMachine(ctx context.Context, machineID string, skip, limit int) ([]Event, error) {
	key, ok := store.CanonicalID(machineID)
	if !ok {
		return []Event{}, nil
	}
	return r.records.FindMany(ctx, `"machine_id" = ?`, []any{key}, skip, limit)
}

// ListAllByMachine returns every event owned by machineID, unpaginated.
func (r *SQLiteRepository) ListAllByMachine(ctx context.Context, machineID string) ([]Event, error) {
	key, ok := store.CanonicalID(machineID)
	if !ok {
		return []Event{}, nil
	}
	return r.records.FindAll(ctx, `"machine_id" = ?`, key)
}

// ListEnabled returns every enabled event. It is not paginated.
func (r *SQLiteRepository) ListEnabled(ctx context.Context) ([]Event, error) {
	return r.records.FindAll(ctx, `"enabled" = 1`)
}

// SetEnabled changes only the enabled flag of e. e is used as fetched;
// it is not re-read first.
func (r *SQLiteRepository) SetEnabled(ctx context.Context, e *Event, enabled bool) (*Event, error) {
	updated, err := r.records.Update(ctx, e, store.Changes{"enabled": enabled})
	if err != nil {
		return nil, translate(err)
	}
	return updated, nil
}

// changes converts the present fields of p to column values. ID is dropped
// and a machine_id is stored in canonical form.
func (p Patch) changes() (store.Changes, error) {
	c := store.Changes{}
	if p.Name.Set {
		c["name"] = p.Name.Value
	}
	if p.Description.Set {
		c["description"] = nullable(p.Description)
	}
	if p.Enabled.Set {
		c["enabled"] = p.Enabled.Value
	}
	if p.Trigger.Set {
		c["trigger"] = string(p.Trigger.Value)
	}
	if p.Actions.Set {
		c["actions"] = string(p.Actions.Value)
	}
	if p.MachineID.Set {
		c["machine_id"] = nil
		if !p.MachineID.Null {
			ref, err := machineRef(&p.MachineID.Value)
			if err != nil {
				return nil, err
			}
			c["machine_id"] = *ref
		}
	}
	return c, nil
}

func nullable(f store.Field[string]) any {
	if f.Null {
		return nil
	}
	return f.Value
}

// machineRef returns the canonical form of a machine reference. Nil stays nil.
func machineRef(id *string) (*string, error) {
	if id == nil {
		return nil, nil
	}
	key, ok := store.CanonicalID(*id)
	if !ok {
		return nil, fmt.Errorf("%w: machine_id %q is not a valid id", ErrInvalidEvent, *id)
	}
	return &key, nil
}

func scanEvent(row store.RowScanner) (*Event, error) {
	var e Event
	var description, machineID sql.NullString
	var trigger, actions string

	err := row.Scan(&e.ID, &e.Name, &description, &e.Enabled, &trigger, &actions, &machineID)
	if err != nil {
		return nil, err
	}

	if description.Valid {
		e.Description = &description.String
	}
	if machineID.Valid {
		e.MachineID = &machineID.String
	}
	e.Trigger = json.RawMessage(trigger)
	e.Actions = json.RawMessage(actions)
	return &e, nil
}

// translate maps store errors onto event sentinels, keeping the original in the chain.
func translate(err error) error {
	switch {
	case errors.Is(err, store.ErrConflict):
		return fmt.Errorf("%w: %w", ErrNameExists, err)
	case errors.Is(err, store.ErrReference):
		return fmt.Errorf("%w: %w", ErrMachineNotFound, err)
	case errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("%w: %w", ErrEventNotFound, err)
	default:
		return err
	}
}
