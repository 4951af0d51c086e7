package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Persister saves and loads one profile's snapshot across both channels.
type Persister struct {
	primary   Store
	secondary Store
	namespace string
	log       *zap.Logger
	now       func() time.Time
}

// New creates a Persister whose keys are prefixed with namespace, normally
// the client profile id.
func New(primary, secondary Store, namespace string, log *zap.Logger) *Persister {
	if log == nil {
		log = zap.NewNop()
	}
	return &Persister{
		primary:   primary,
		secondary: secondary,
		namespace: namespace,
		log:       log.With(zap.String("component", "persist"), zap.String("profile", namespace)),
		now:       time.Now,
	}
}

func (p *Persister) key(field string) string {
	return p.namespace + ":" + field
}

// Save writes snap to the primary channel, one key per field, then to the
// secondary channel as a single document. The two writes are not atomic.
func (p *Persister) Save(ctx context.Context, snap Snapshot) error {
	snap = snap.withDefaults()
	snap.LastSaved = p.now().UTC()

	fields, err := encodeFields(snap)
	if err != nil {
		p.log.Warn("encode snapshot failed", zap.Error(err))
		return err
	}

	var errs []error
	for field, value := range fields {
		if err := p.primary.Set(ctx, p.key(field), value); err != nil {
			errs = append(errs, err)
		}
	}

	doc, err := json.Marshal(snap)
	if err != nil {
		errs = append(errs, fmt.Errorf("encode snapshot: %w", err))
	} else if err := p.secondary.Set(ctx, p.key(keyState), doc); err != nil {
		errs = append(errs, err)
	}

	if joined := errors.Join(errs...); joined != nil {
		p.log.Warn("save state failed", zap.Error(joined))
		return joined
	}
	return nil
}

// Load returns the stored snapshot and whether any state was found. The
// primary channel is authoritative when any core key is present; otherwise
// the secondary channel is read and, if found, written back through Save.
// Read or decode failures are logged and count as no state.
func (p *Persister) Load(ctx context.Context) (Snapshot, bool) {
	if snap, ok := p.loadPrimary(ctx); ok {
		return snap, true
	}

	snap, ok := p.loadSecondary(ctx)
	if !ok {
		return Snapshot{}.withDefaults(), false
	}
	if err := p.Save(ctx, snap); err != nil {
		p.log.Warn("migrating state to primary channel failed", zap.Error(err))
	} else {
		p.log.Info("migrated state from secondary channel")
	}
	return snap, true
}

// Clear removes the profile's state from both channels.
func (p *Persister) Clear(ctx context.Context) error {
	var errs []error
	for _, field := range allFields {
		if err := p.primary.Delete(ctx, p.key(field)); err != nil {
			errs = append(errs, err)
		}
	}
	if err := p.secondary.Delete(ctx, p.key(keyState)); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

var allFields = []string{
	KeyVersion, KeyTrackedBills, KeyUserNotes, KeyUserData,
	KeyFilters, KeyCurrentBillType, KeyLastSaved,
}

func (p *Persister) loadPrimary(ctx context.Context) (Snapshot, bool) {
	doc := make(map[string]json.RawMessage, len(allFields))
	for _, field := range allFields {
		value, err := p.primary.Get(ctx, p.key(field))
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			p.log.Warn("read primary channel failed", zap.String("key", field), zap.Error(err))
			return Snapshot{}, false
		}
		doc[field] = value
	}

	found := false
	for _, field := range coreKeys {
		if _, ok := doc[field]; ok {
			found = true
			break
		}
	}
	if !found {
		return Snapshot{}, false
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		p.log.Warn("assemble primary snapshot failed", zap.Error(err))
		return Snapshot{}, false
	}
	snap, err := Migrate(raw)
	if err != nil {
		p.log.Warn("decode primary snapshot failed", zap.Error(err))
		return Snapshot{}, false
	}
	return snap, true
}

func (p *Persister) loadSecondary(ctx context.Context) (Snapshot, bool) {
	raw, err := p.secondary.Get(ctx, p.key(keyState))
	if errors.Is(err, ErrNotFound) {
		return Snapshot{}, false
	}
	if err != nil {
		p.log.Warn("read secondary channel failed", zap.Error(err))
		return Snapshot{}, false
	}
	snap, err := Migrate(raw)
	if err != nil {
		p.log.Warn("decode secondary snapshot failed", zap.Error(err))
		return Snapshot{}, false
	}
	return snap, true
}

func encodeFields(snap Snapshot) (map[string][]byte, error) {
	values := map[string]any{
		KeyVersion:         snap.Version,
		KeyTrackedBills:    snap.TrackedBills,
		KeyUserNotes:       snap.UserNotes,
		KeyUserData:        snap.UserData,
		KeyFilters:         snap.Filters,
		KeyCurrentBillType: snap.CurrentBillType,
		KeyLastSaved:       snap.LastSaved,
	}
	out := make(map[string][]byte, len(values))
	for field, v := range values {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", field, err)
		}
		out[field] = data
	}
	return out, nil
}
