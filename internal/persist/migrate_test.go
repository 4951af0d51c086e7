package persist

import (
	"slices"
	"testing"
)

func TestMigrateUnversionedDocument(t *testing.T) {
	snap, err := Migrate([]byte(`{"filters": {"status": "passed", "priority": "high", "committee": ""}}`))
	if err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if snap.Version != SchemaVersion {
		t.Errorf("version = %d, want %d", snap.Version, SchemaVersion)
	}
	if got := snap.Filters.Status.Values(); !slices.Equal(got, []string{"passed"}) {
		t.Errorf("status = %v", got)
	}
	if got := snap.Filters.Priority.Values(); !slices.Equal(got, []string{"high"}) {
		t.Errorf("priority = %v", got)
	}
	if got := snap.Filters.Committee.Values(); len(got) != 0 {
		t.Errorf("committee = %v, want empty", got)
	}
	if snap.TrackedBills == nil || snap.UserNotes == nil {
		t.Error("collections not defaulted")
	}
}

func TestMigrateCurrentVersionUntouched(t *testing.T) {
	snap, err := Migrate([]byte(`{"version": 2, "filters": {"status": ["floor", "committee"]}, "trackedBills": ["HB-1"]}`))
	if err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if got := snap.Filters.Status.Values(); !slices.Equal(got, []string{"committee", "floor"}) {
		t.Errorf("status = %v", got)
	}
	if !slices.Equal(snap.TrackedBills, []string{"HB-1"}) {
		t.Errorf("tracked = %v", snap.TrackedBills)
	}
}

func TestMigrateNullFilters(t *testing.T) {
	snap, err := Migrate([]byte(`{"filters": null}`))
	if err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if snap.Filters.Status == nil {
		t.Error("status filter not defaulted")
	}
}

func TestMigrateRejectsNewerVersion(t *testing.T) {
	if _, err := Migrate([]byte(`{"version": 99}`)); err == nil {
		t.Error("expected an error for a newer version")
	}
}

func TestMigrateRejectsNonPositiveVersion(t *testing.T) {
	for _, raw := range []string{
		`{"version": 0, "trackedBills": ["HB1"]}`,
		`{"version": -3}`,
	} {
		if _, err := Migrate([]byte(raw)); err == nil {
			t.Errorf("Migrate(%s) accepted a non-positive version", raw)
		}
	}
}

func TestMigrateRejectsGarbage(t *testing.T) {
	if _, err := Migrate([]byte(`[1,2,3]`)); err == nil {
		t.Error("expected an error for a non-object document")
	}
}
