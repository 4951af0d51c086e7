package publish

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeff-is-working/wa-bill-tracker-dev/internal/bill"
	"github.com/jeff-is-working/wa-bill-tracker-dev/internal/collector"
	"github.com/jeff-is-working/wa-bill-tracker-dev/internal/gitrepo"
)

type fakeHistory struct {
	commitFn func(message string, paths ...string) (gitrepo.CommitInfo, error)
	calls    int
}

func (f *fakeHistory) Commit(message string, paths ...string) (gitrepo.CommitInfo, error) {
	f.calls++
	if f.commitFn != nil {
		return f.commitFn(message, paths...)
	}
	return gitrepo.CommitInfo{Hash: "abc1234"}, nil
}

type fakeUploader struct {
	uploadFn func(key string, data []byte) error
	keys     []string
}

func (f *fakeUploader) Upload(_ context.Context, key string, data []byte, _ string) error {
	f.keys = append(f.keys, key)
	if f.uploadFn != nil {
		return f.uploadFn(key, data)
	}
	return nil
}

func sampleResult(lastSync string, titles ...string) collector.Result {
	bills := make([]bill.Bill, 0, len(titles))
	for i, title := range titles {
		bills = append(bills, bill.Bill{
			ID:       "HB" + string(rune('1'+i)) + "000",
			Number:   "HB " + string(rune('1'+i)) + "000",
			Title:    title,
			Status:   "introduced",
			Hearings: []bill.Hearing{},
		})
	}
	return collector.Result{
		Doc: bill.Document{
			LastSync:    lastSync,
			SessionYear: 2026,
			TotalBills:  len(bills),
			Bills:       bills,
		},
		Stats: collector.Stats{Generated: lastSync, TotalBills: len(bills)},
	}
}

func fixedClock(ts ...time.Time) func() time.Time {
	i := 0
	return func() time.Time {
		t := ts[i]
		if i < len(ts)-1 {
			i++
		}
		return t
	}
}

func TestWriteJSONAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "out.json")

	require.NoError(t, WriteJSONAtomic(path, map[string]int{"a": 1}))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(raw))

	leftovers, err := filepath.Glob(filepath.Join(dir, "nested", ".*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestDigestIgnoresLastSync(t *testing.T) {
	a, err := Digest(sampleResult("2026-01-12T08:00:00", "Schools").Doc)
	require.NoError(t, err)
	b, err := Digest(sampleResult("2026-01-13T08:00:00", "Schools").Doc)
	require.NoError(t, err)
	c, err := Digest(sampleResult("2026-01-13T08:00:00", "Roads").Doc)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}

func TestPublishWritesOutputs(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 1, 12, 8, 30, 0, 0, time.Local)
	history := &fakeHistory{}
	uploader := &fakeUploader{}
	p := New(dir, nil, WithClock(fixedClock(now)), WithHistory(history), WithUploader(uploader))

	entry, err := p.Publish(context.Background(), sampleResult("2026-01-12T08:30:00", "Schools", "Roads"), now.Add(6*time.Hour))
	require.NoError(t, err)

	assert.Equal(t, StatusSuccess, entry.Status)
	assert.Equal(t, 2, entry.BillsCount)
	assert.Equal(t, "abc1234", entry.Commit)
	assert.Equal(t, "2026-01-12T14:30:00", entry.NextSync)

	doc, err := ReadDocument(dir)
	require.NoError(t, err)
	assert.Len(t, doc.Bills, 2)

	for _, name := range []string{MeetingsFile, StatsFile, filepath.Join(SnapshotDir, "20260112_083000_bills.json")} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}

	raw, err := os.ReadFile(filepath.Join(dir, MeetingsFile))
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(raw))

	assert.Equal(t, 1, history.calls)
	assert.Equal(t, []string{BillsFile, MeetingsFile, StatsFile}, uploader.keys)

	entries, err := p.Log()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, entry, entries[0])
}

func TestPublishSkipsUnchangedDocument(t *testing.T) {
	dir := t.TempDir()
	first := time.Date(2026, 1, 12, 8, 0, 0, 0, time.Local)
	second := first.Add(time.Hour)
	history := &fakeHistory{}
	p := New(dir, nil, WithClock(fixedClock(first, second)), WithHistory(history))

	_, err := p.Publish(context.Background(), sampleResult("2026-01-12T08:00:00", "Schools"), time.Time{})
	require.NoError(t, err)
	entry, err := p.Publish(context.Background(), sampleResult("2026-01-12T09:00:00", "Schools"), time.Time{})
	require.NoError(t, err)

	assert.Equal(t, StatusUnchanged, entry.Status)
	assert.Equal(t, 1, history.calls)

	doc, err := ReadDocument(dir)
	require.NoError(t, err)
	assert.Equal(t, "2026-01-12T08:00:00", doc.LastSync)

	snapshots, err := filepath.Glob(filepath.Join(dir, SnapshotDir, "*_bills.json"))
	require.NoError(t, err)
	assert.Len(t, snapshots, 1)

	entries, err := p.Log()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, StatusUnchanged, entries[0].Status)
	assert.Equal(t, StatusSuccess, entries[1].Status)
}

func TestPublishToleratesHistoryAndUploadFailures(t *testing.T) {
	dir := t.TempDir()
	history := &fakeHistory{commitFn: func(string, ...string) (gitrepo.CommitInfo, error) {
		return gitrepo.CommitInfo{}, errors.New("locked")
	}}
	uploader := &fakeUploader{uploadFn: func(string, []byte) error { return errors.New("offline") }}
	p := New(dir, nil, WithHistory(history), WithUploader(uploader))

	entry, err := p.Publish(context.Background(), sampleResult("2026-01-12T08:00:00", "Schools"), time.Time{})
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, entry.Status)
	assert.Empty(t, entry.Commit)
	assert.Len(t, uploader.keys, 3)
}

func TestSyncLogKeepsNewestEntries(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2026, 1, 12, 0, 0, 0, 0, time.Local)
	clock := base
	p := New(dir, nil, WithClock(func() time.Time { return clock }))

	for i := 0; i < MaxLogEntries+5; i++ {
		clock = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, p.RecordFailure(errors.New("service unavailable"), time.Time{}))
	}

	entries, err := p.Log()
	require.NoError(t, err)
	require.Len(t, entries, MaxLogEntries)
	assert.Equal(t, clock.Format(collector.TimestampLayout), entries[0].Timestamp)
	assert.Equal(t, StatusError, entries[0].Status)
	assert.Equal(t, "service unavailable", entries[0].Error)
}

func TestPublishRecoversFromCorruptLog(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, SyncLogFile), []byte("{not json"), 0o644))
	p := New(dir, nil)

	_, err := p.Publish(context.Background(), sampleResult("2026-01-12T08:00:00", "Schools"), time.Time{})
	require.NoError(t, err)

	raw, err := os.ReadFile(filepath.Join(dir, SyncLogFile))
	require.NoError(t, err)
	var entries []LogEntry
	require.NoError(t, json.Unmarshal(raw, &entries))
	assert.Len(t, entries, 1)
}

func TestReadDocumentMissing(t *testing.T) {
	doc, err := ReadDocument(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, doc.Bills)
}

func TestPublishWithGitHistory(t *testing.T) {
	dir := t.TempDir()
	repo := gitrepo.New(dir, "collector")
	require.NoError(t, repo.Ensure())
	p := New(dir, nil, WithHistory(repo))

	entry, err := p.Publish(context.Background(), sampleResult("2026-01-12T08:00:00", "Schools"), time.Time{})
	require.NoError(t, err)
	assert.NotEmpty(t, entry.Commit)

	history, err := repo.History(5)
	require.NoError(t, err)
	require.Len(t, history, 1)

	raw, err := repo.FileAt(history[0].Hash, BillsFile)
	require.NoError(t, err)
	doc, err := bill.ParseDocument(raw)
	require.NoError(t, err)
	assert.Equal(t, "Schools", doc.Bills[0].Title)
}
