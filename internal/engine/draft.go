package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/vpcr/internal/model"
	"github.com/roach88/vpcr/internal/schema"
	"github.com/roach88/vpcr/internal/store"
)

// EditState tracks unsaved edits to one item.
type EditState int

const (
	Clean EditState = iota
	Dirty
	Saving
)

func (s EditState) String() string {
	switch s {
	case Clean:
		return "clean"
	case Dirty:
		return "dirty"
	case Saving:
		return "saving"
	}
	return fmt.Sprintf("EditState(%d)", int(s))
}

// ItemSaver persists a field map that includes the item id.
// Engine implements it.
type ItemSaver interface {
	UpsertItem(ctx context.Context, fields map[string]string) (store.UpsertResult, error)
}

// Draft holds pending edits to one item on top of the values it was
// loaded with. Only fields that differ from the loaded value count as
// edits, so setting a field back to its original value returns the draft
// to Clean.
type Draft struct {
	mu     sync.Mutex
	itemID string
	base   map[string]string
	edits  map[string]string
	state  EditState
}

// NewDraft starts a Clean draft from a loaded item.
func NewDraft(it model.Item) *Draft {
	base := make(map[string]string, len(it.Fields))
	for k, v := range it.Fields {
		base[k] = store.NormalizeValue(v)
	}
	return &Draft{itemID: it.ID, base: base, edits: map[string]string{}}
}

// ItemID returns the id of the item being edited.
func (d *Draft) ItemID() string { return d.itemID }

// State returns the current edit state.
func (d *Draft) State() EditState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Set records a pending value for a field (canonical or column name).
// Edits are rejected while a save is in flight.
func (d *Draft) Set(name, value string) error {
	f, ok := schema.Lookup(name)
	if !ok {
		return fmt.Errorf("edit %s: %w: %q", d.itemID, store.ErrUnknownField, name)
	}
	if f.Column == schema.IDColumn {
		return fmt.Errorf("edit %s: %w: item id is immutable", d.itemID, store.ErrValidation)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == Saving {
		return fmt.Errorf("edit %s: save in progress", d.itemID)
	}
	v := store.NormalizeValue(value)
	if v == d.base[f.Name] {
		delete(d.edits, f.Name)
	} else {
		d.edits[f.Name] = v
	}
	d.refreshLocked()
	return nil
}

// Changes returns a copy of the pending edits keyed by canonical name.
func (d *Draft) Changes() map[string]string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[string]string, len(d.edits))
	for k, v := range d.edits {
		out[k] = v
	}
	return out
}

// Save writes the pending edits through saver. A Clean draft is a no-op.
// On success the edits become the new base and the draft is Clean; on
// failure the edits are kept and the draft is Dirty again.
func (d *Draft) Save(ctx context.Context, saver ItemSaver) (store.UpsertResult, error) {
	d.mu.Lock()
	if d.state == Saving {
		d.mu.Unlock()
		return store.UpsertResult{}, fmt.Errorf("save %s: save in progress", d.itemID)
	}
	if len(d.edits) == 0 {
		d.mu.Unlock()
		return store.UpsertResult{}, nil
	}
	fields := make(map[string]string, len(d.edits)+1)
	for k, v := range d.edits {
		fields[k] = v
	}
	fields[schema.IDName] = d.itemID
	d.state = Saving
	d.mu.Unlock()

	res, err := saver.UpsertItem(ctx, fields)

	d.mu.Lock()
	defer d.mu.Unlock()
	if err != nil {
		d.state = Dirty
		return store.UpsertResult{}, err
	}
	for k, v := range fields {
		if k == schema.IDName {
			continue
		}
		d.base[k] = v
		delete(d.edits, k)
	}
	d.refreshLocked()
	return res, nil
}

func (d *Draft) refreshLocked() {
	if len(d.edits) == 0 {
		d.state = Clean
	} else {
		d.state = Dirty
	}
}
