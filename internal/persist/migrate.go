package persist

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// migration upgrades a raw snapshot document from version N to N+1.
type migration func(doc map[string]json.RawMessage) error

// migrations[i] upgrades version i+1 to i+2. Documents without a version are
// version 1.
var migrations = []migration{
	migrateFilterSets,
}

// Migrate decodes a raw snapshot of any known version into the current shape.
func Migrate(data []byte) (Snapshot, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	if doc == nil {
		doc = map[string]json.RawMessage{}
	}

	version := 1
	if raw, ok := doc[KeyVersion]; ok {
		if err := json.Unmarshal(raw, &version); err != nil {
			return Snapshot{}, fmt.Errorf("decode snapshot version: %w", err)
		}
	}
	if version < 1 {
		return Snapshot{}, fmt.Errorf("invalid snapshot version %d", version)
	}
	if version > SchemaVersion {
		return Snapshot{}, fmt.Errorf("snapshot version %d is newer than %d", version, SchemaVersion)
	}
	for v := version; v < SchemaVersion; v++ {
		if err := migrations[v-1](doc); err != nil {
			return Snapshot{}, fmt.Errorf("migrate snapshot v%d: %w", v, err)
		}
	}
	doc[KeyVersion] = json.RawMessage(fmt.Sprint(SchemaVersion))

	normalized, err := json.Marshal(doc)
	if err != nil {
		return Snapshot{}, fmt.Errorf("encode migrated snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(normalized, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode migrated snapshot: %w", err)
	}
	return snap.withDefaults(), nil
}

// migrateFilterSets turns single-string status, priority and committee
// filters into one-element arrays.
func migrateFilterSets(doc map[string]json.RawMessage) error {
	raw, ok := doc[KeyFilters]
	if !ok {
		return nil
	}
	upgraded, err := upgradeFilters(raw)
	if err != nil {
		return err
	}
	doc[KeyFilters] = upgraded
	return nil
}

func upgradeFilters(raw json.RawMessage) (json.RawMessage, error) {
	if isNull(raw) {
		return raw, nil
	}
	var filters map[string]json.RawMessage
	if err := json.Unmarshal(raw, &filters); err != nil {
		return nil, fmt.Errorf("decode filters: %w", err)
	}
	for _, field := range []string{"status", "priority", "committee"} {
		value, ok := filters[field]
		if !ok || isNull(value) {
			continue
		}
		var single string
		if err := json.Unmarshal(value, &single); err != nil {
			continue
		}
		values := []string{}
		if single != "" {
			values = append(values, single)
		}
		encoded, err := json.Marshal(values)
		if err != nil {
			return nil, err
		}
		filters[field] = encoded
	}
	return json.Marshal(filters)
}

func isNull(raw json.RawMessage) bool {
	return len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
