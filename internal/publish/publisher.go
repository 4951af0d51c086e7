// Package publish writes collector output to the data directory that the
// tracker reads, keeping a rolling sync log, timestamped snapshots and
// optional git and object storage copies.
package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/jeff-is-working/wa-bill-tracker-dev/internal/bill"
	"github.com/jeff-is-working/wa-bill-tracker-dev/internal/collector"
	"github.com/jeff-is-working/wa-bill-tracker-dev/internal/gitrepo"
)

// File names inside the data directory.
const (
	BillsFile    = "bills.json"
	MeetingsFile = "meetings.json"
	StatsFile    = "stats.json"
	SyncLogFile  = "sync-log.json"
	SnapshotDir  = "sync"

	snapshotLayout = "20060102_150405"
	// MaxLogEntries bounds sync-log.json.
	MaxLogEntries = 30
)

// Sync outcomes recorded in the log.
const (
	StatusSuccess   = "success"
	StatusUnchanged = "unchanged"
	StatusError     = "error"
)

// History records published files as commits.
type History interface {
	Commit(message string, paths ...string) (gitrepo.CommitInfo, error)
}

// Uploader copies a published file to remote storage.
type Uploader interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
}

// LogEntry is one line of sync-log.json.
type LogEntry struct {
	Timestamp  string `json:"timestamp"`
	Status     string `json:"status"`
	BillsCount int    `json:"billsCount"`
	NextSync   string `json:"nextSync,omitempty"`
	Digest     string `json:"digest,omitempty"`
	Commit     string `json:"commit,omitempty"`
	Error      string `json:"error,omitempty"`
}

type Publisher struct {
	dir      string
	history  History
	uploader Uploader
	log      *zap.Logger
	now      func() time.Time
}

type Option func(*Publisher)

func WithHistory(h History) Option {
	return func(p *Publisher) { p.history = h }
}

func WithUploader(u Uploader) Option {
	return func(p *Publisher) { p.uploader = u }
}

func WithClock(now func() time.Time) Option {
	return func(p *Publisher) { p.now = now }
}

func New(dir string, log *zap.Logger, opts ...Option) *Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	p := &Publisher{dir: dir, log: log.Named("publish"), now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Publish writes res to the data directory. When the document digest equals
// the last successful run only stats.json and the sync log are rewritten.
// Git and upload failures are logged; the local files remain authoritative.
func (p *Publisher) Publish(ctx context.Context, res collector.Result, nextSync time.Time) (LogEntry, error) {
	now := p.now()
	entry := LogEntry{
		Timestamp:  now.Format(collector.TimestampLayout),
		Status:     StatusSuccess,
		BillsCount: len(res.Doc.Bills),
		NextSync:   formatOptional(nextSync),
	}

	digest, err := Digest(res.Doc)
	if err != nil {
		return LogEntry{}, err
	}
	entry.Digest = digest

	entries, err := p.readLog()
	if err != nil {
		p.log.Warn("sync log unreadable, starting a new one", zap.Error(err))
		entries = nil
	}

	if digest == lastDigest(entries) && p.exists(BillsFile) {
		entry.Status = StatusUnchanged
		if err := WriteJSONAtomic(p.path(StatsFile), res.Stats); err != nil {
			return LogEntry{}, err
		}
		p.log.Info("bill document unchanged", zap.String("digest", digest))
		return entry, p.appendLog(entries, entry)
	}

	if err := p.writeOutputs(res, now); err != nil {
		entry.Status = StatusError
		entry.Error = err.Error()
		if logErr := p.appendLog(entries, entry); logErr != nil {
			p.log.Warn("write sync log failed", zap.Error(logErr))
		}
		return entry, err
	}

	if p.history != nil {
		msg := fmt.Sprintf("Sync %d bills (%s)", len(res.Doc.Bills), entry.Timestamp)
		info, err := p.history.Commit(msg, BillsFile, MeetingsFile)
		switch {
		case errors.Is(err, gitrepo.ErrNothingToCommit):
		case err != nil:
			p.log.Warn("commit published files failed", zap.Error(err))
		default:
			entry.Commit = info.Hash
		}
	}
	if p.uploader != nil {
		p.upload(ctx)
	}

	p.log.Info("published bill document",
		zap.Int("bills", entry.BillsCount),
		zap.Int("meetings", len(res.Meetings)),
		zap.String("digest", digest))
	return entry, p.appendLog(entries, entry)
}

// RecordFailure logs a failed collection run without touching the published
// document.
func (p *Publisher) RecordFailure(cause error, nextSync time.Time) error {
	entries, err := p.readLog()
	if err != nil {
		entries = nil
	}
	entry := LogEntry{
		Timestamp: p.now().Format(collector.TimestampLayout),
		Status:    StatusError,
		NextSync:  formatOptional(nextSync),
	}
	if cause != nil {
		entry.Error = cause.Error()
	}
	return p.appendLog(entries, entry)
}

// Log returns the sync log, newest first.
func (p *Publisher) Log() ([]LogEntry, error) {
	return p.readLog()
}

func (p *Publisher) writeOutputs(res collector.Result, now time.Time) error {
	if err := WriteJSONAtomic(p.path(BillsFile), res.Doc); err != nil {
		return err
	}
	snapshot := filepath.Join(SnapshotDir, now.Format(snapshotLayout)+"_"+BillsFile)
	if err := WriteJSONAtomic(p.path(snapshot), res.Doc); err != nil {
		return err
	}
	meetings := res.Meetings
	if meetings == nil {
		meetings = []collector.Meeting{}
	}
	if err := WriteJSONAtomic(p.path(MeetingsFile), meetings); err != nil {
		return err
	}
	return WriteJSONAtomic(p.path(StatsFile), res.Stats)
}

func (p *Publisher) upload(ctx context.Context) {
	for _, name := range []string{BillsFile, MeetingsFile, StatsFile} {
		data, err := os.ReadFile(p.path(name))
		if err != nil {
			p.log.Warn("read published file failed", zap.String("file", name), zap.Error(err))
			continue
		}
		if err := p.uploader.Upload(ctx, name, data, "application/json"); err != nil {
			p.log.Warn("upload failed", zap.String("file", name), zap.Error(err))
		}
	}
}

func (p *Publisher) readLog() ([]LogEntry, error) {
	raw, err := os.ReadFile(p.path(SyncLogFile))
	if errors.Is(err, os.ErrNotExist) {
		return []LogEntry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read sync log: %w", err)
	}
	var entries []LogEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("decode sync log: %w", err)
	}
	return entries, nil
}

func (p *Publisher) appendLog(entries []LogEntry, entry LogEntry) error {
	next := make([]LogEntry, 0, MaxLogEntries)
	next = append(next, entry)
	next = append(next, entries...)
	if len(next) > MaxLogEntries {
		next = next[:MaxLogEntries]
	}
	return WriteJSONAtomic(p.path(SyncLogFile), next)
}

func (p *Publisher) exists(name string) bool {
	_, err := os.Stat(p.path(name))
	return err == nil
}

func (p *Publisher) path(name string) string {
	return filepath.Join(p.dir, name)
}

// lastDigest is the digest of the newest run that wrote the document.
func lastDigest(entries []LogEntry) string {
	for _, e := range entries {
		if e.Status == StatusSuccess || e.Status == StatusUnchanged {
			return e.Digest
		}
	}
	return ""
}

func formatOptional(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(collector.TimestampLayout)
}

// ReadDocument loads the published bills.json, for merging with the next run.
// A missing file yields an empty document.
func ReadDocument(dir string) (bill.Document, error) {
	raw, err := os.ReadFile(filepath.Join(dir, BillsFile))
	if errors.Is(err, os.ErrNotExist) {
		return EmptyDocument(), nil
	}
	if err != nil {
		return bill.Document{}, fmt.Errorf("read %s: %w", BillsFile, err)
	}
	return bill.ParseDocument(raw)
}

// EmptyDocument is the starting point when nothing has been published.
func EmptyDocument() bill.Document {
	return bill.Document{Bills: []bill.Bill{}}
}
