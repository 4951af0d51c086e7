package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jeff-is-working/wa-bill-tracker-dev/internal/bill"
	"github.com/jeff-is-working/wa-bill-tracker-dev/internal/export"
	"github.com/jeff-is-working/wa-bill-tracker-dev/internal/feed"
	"github.com/jeff-is-working/wa-bill-tracker-dev/internal/persist"
	"github.com/jeff-is-working/wa-bill-tracker-dev/internal/publish"
	"github.com/jeff-is-working/wa-bill-tracker-dev/internal/search"
	"github.com/jeff-is-working/wa-bill-tracker-dev/internal/stage"
	"github.com/jeff-is-working/wa-bill-tracker-dev/internal/tracker"
)

// Pinger is a dependency checked by the readiness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Stores are the two persistence channels shared by every profile.
type Stores struct {
	Primary   persist.Store
	Secondary persist.Store
}

// Service hosts the tracker engines and the shared bill document.
type Service struct {
	opts     tracker.Options
	stores   Stores
	feed     tracker.Fetcher
	clock    tracker.Clock
	search   *search.Service
	export   *export.Service
	checks   map[string]Pinger
	registry *Registry
	log      *zap.Logger

	mu      sync.RWMutex
	current feed.Result
	loaded  bool
	lastErr error
	etag    string
	issued  uint64
	applied uint64

	reindexMu sync.Mutex
}

type Option func(*Service)

func WithSearch(s *search.Service) Option {
	return func(svc *Service) { svc.search = s }
}

func WithExport(e *export.Service) Option {
	return func(svc *Service) { svc.export = e }
}

// WithHealthCheck adds a dependency to the readiness probe.
func WithHealthCheck(name string, p Pinger) Option {
	return func(svc *Service) { svc.checks[name] = p }
}

func WithClock(c tracker.Clock) Option {
	return func(svc *Service) { svc.clock = c }
}

// WithIdleTTL sets how long an unused profile engine stays in memory.
func WithIdleTTL(d time.Duration) Option {
	return func(svc *Service) { svc.registry = NewRegistry(d, svc.buildEngine) }
}

func New(opts tracker.Options, stores Stores, fetcher tracker.Fetcher, log *zap.Logger, options ...Option) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if stores.Primary == nil {
		stores.Primary = persist.NewMemoryStore()
	}
	if stores.Secondary == nil {
		stores.Secondary = persist.NewMemoryStore()
	}
	svc := &Service{
		opts:   opts,
		stores: stores,
		feed:   fetcher,
		clock:  tracker.SystemClock{},
		checks: map[string]Pinger{},
		log:    log.With(zap.String("component", "app")),
	}
	svc.registry = NewRegistry(defaultIdleTTL, svc.buildEngine)
	for _, opt := range options {
		opt(svc)
	}
	if svc.search == nil {
		svc.search = search.NewService(nil, log)
	}
	if svc.export == nil {
		svc.export = export.NewService(log)
	}
	return svc
}

// Bootstrap loads the first bill document. A failure leaves the service
// running in degraded mode until a refresh succeeds.
func (s *Service) Bootstrap(ctx context.Context) error {
	_, err := s.Fetch(ctx)
	return err
}

// Fetch retrieves the bill document and makes it the shared copy that new
// engines, the document endpoint and search read from. Overlapping fetches
// resolve under the same RefreshPolicy as the engines: with LatestIssued a
// response is kept from the shared copy once a newer fetch was issued or
// applied. The caller still gets every result so each engine can apply its
// own ticket.
func (s *Service) Fetch(ctx context.Context) (feed.Result, error) {
	if s.feed == nil {
		return feed.Result{}, feed.ErrNoData
	}
	s.mu.Lock()
	s.issued++
	seq := s.issued
	s.mu.Unlock()

	res, err := s.feed.Fetch(ctx)

	var etag string
	if err == nil {
		if etag, err = publish.Digest(res.Doc); err != nil {
			s.log.Warn("digest bill document failed", zap.Error(err))
			etag, err = "", nil
		}
	}

	s.mu.Lock()
	if s.superseded(seq) {
		latest := s.issued
		s.mu.Unlock()
		s.log.Info("dropping superseded bill document", zap.Uint64("fetch", seq), zap.Uint64("latest", latest))
		return res, err
	}
	if err != nil {
		s.lastErr = err
		s.mu.Unlock()
		s.log.Error("bill data unavailable", zap.Error(err))
		return feed.Result{}, err
	}
	s.applied = seq
	s.current = res
	s.loaded = true
	s.lastErr = nil
	s.etag = etag
	s.mu.Unlock()

	if res.FromCache {
		s.log.Warn("serving cached bill data", zap.Error(res.FetchErr))
	}
	s.reindex(seq, res.Doc)
	return res, nil
}

// reindex loads doc into search unless a later fetch was applied meanwhile.
func (s *Service) reindex(seq uint64, doc bill.Document) {
	s.reindexMu.Lock()
	defer s.reindexMu.Unlock()
	s.mu.RLock()
	latest := s.applied == seq
	s.mu.RUnlock()
	if latest {
		s.search.Reindex(bill.FromDocument(doc))
	}
}

// superseded reports whether fetch seq lost to a newer one. Callers hold mu.
func (s *Service) superseded(seq uint64) bool {
	if s.opts.RefreshPolicy == tracker.LatestResolved {
		return false
	}
	return seq < s.issued || seq <= s.applied
}

// RefreshAll fetches once and offers the result to every running engine.
func (s *Service) RefreshAll(ctx context.Context) error {
	type pending struct {
		engine *tracker.Engine
		ticket tracker.Ticket
	}
	var engines []pending
	s.registry.Each(func(_ string, e *tracker.Engine) {
		engines = append(engines, pending{engine: e, ticket: e.BeginRefresh()})
	})
	res, err := s.Fetch(ctx)
	for _, p := range engines {
		p.engine.CompleteRefresh(p.ticket, res, err)
	}
	return err
}

// Document returns the shared bill document and its content tag.
func (s *Service) Document() (bill.Document, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Doc, s.etag, s.loaded
}

// Engine returns the engine for profile, starting it on first use.
func (s *Service) Engine(ctx context.Context, profile, fragment string) *tracker.Engine {
	engine, _ := s.registry.Get(ctx, profile, fragment)
	return engine
}

func (s *Service) buildEngine(ctx context.Context, profile, fragment string) *tracker.Engine {
	logger := s.log.With(zap.String("profile", profile))
	store := persist.New(s.stores.Primary, s.stores.Secondary, profile, logger)
	engine := tracker.New(s.opts, store, s.clock, logger)

	s.mu.RLock()
	res, loaded, lastErr := s.current, s.loaded, s.lastErr
	s.mu.RUnlock()

	if loaded {
		engine.LoadDocument(res.Doc, res.FromCache)
	}
	engine.Start(ctx, fragment)
	if !loaded {
		if lastErr == nil {
			lastErr = feed.ErrNoData
		}
		engine.CompleteRefresh(engine.BeginRefresh(), feed.Result{}, lastErr)
	}
	return engine
}

// Search runs a quick lookup over the shared document.
func (s *Service) Search(q search.Query) search.Response {
	return s.search.Search(q)
}

// Export renders the tracked bills of engine.
func (s *Service) Export(ctx context.Context, engine *tracker.Engine, req export.Request) (*export.Result, error) {
	state := engine.State()
	report := export.Report{
		User:        state.User.Name,
		GeneratedAt: s.clock.Now(),
	}
	for _, card := range engine.TrackedCards() {
		report.Bills = append(report.Bills, reportBill(card))
	}
	res, err := s.export.Export(ctx, req, report)
	if err != nil {
		return nil, fmt.Errorf("export tracked bills: %w", err)
	}
	return res, nil
}

func reportBill(card tracker.Card) export.ReportBill {
	rb := export.ReportBill{
		ID:        card.ID,
		Number:    card.Number,
		Title:     card.Title,
		Sponsor:   card.Sponsor,
		Committee: card.Committee,
		Status:    card.StatusLabel,
		Priority:  card.Priority,
		Stage:     stageLabel(card.Tracker),
		Link:      card.ShareLink,
	}
	if h := card.NextHearing; h != nil {
		rb.NextHearing = strings.TrimSpace(strings.Join([]string{h.Date, h.Time, h.Committee}, " "))
	}
	for _, n := range card.Notes {
		rb.Notes = append(rb.Notes, export.ReportNote{Text: n.Text, Author: n.User, Date: n.Date})
	}
	return rb
}

func stageLabel(tv stage.TrackerView) string {
	for _, section := range tv.Sections {
		for _, node := range section.Nodes {
			if node.Index == tv.Effective {
				return node.Label
			}
		}
	}
	return ""
}

// Ping checks every registered dependency and returns the failures by name.
func (s *Service) Ping(ctx context.Context) map[string]error {
	failures := map[string]error{}
	for _, name := range s.CheckNames() {
		if err := s.checks[name].Ping(ctx); err != nil {
			failures[name] = err
		}
	}
	return failures
}

// CheckNames lists the readiness dependencies.
func (s *Service) CheckNames() []string {
	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close stops every engine, flushing unsaved state.
func (s *Service) Close() {
	s.registry.Close()
}

var errNoProfile = errors.New("request carries no profile")
