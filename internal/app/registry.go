package app

import (
	"context"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/jeff-is-working/wa-bill-tracker-dev/internal/tracker"
)

const defaultIdleTTL = 30 * time.Minute

type engineEntry struct {
	engine *tracker.Engine
	cancel context.CancelFunc
}

// Registry keeps one Engine per client profile. Engines idle for longer than
// the TTL are stopped, which flushes unsaved state; the next request for the
// profile rebuilds the engine from persisted state.
//
// Building an engine loads persisted state from the stores, so it runs
// outside mu. Concurrent first requests for one profile share a single build.
type Registry struct {
	mu      sync.Mutex
	engines *cache.Cache
	builds  singleflight.Group
	build   func(ctx context.Context, profile, fragment string) *tracker.Engine
}

func NewRegistry(idleTTL time.Duration, build func(ctx context.Context, profile, fragment string) *tracker.Engine) *Registry {
	if idleTTL <= 0 {
		idleTTL = defaultIdleTTL
	}
	c := cache.New(idleTTL, idleTTL/2)
	c.OnEvicted(func(_ string, v any) {
		if entry, ok := v.(engineEntry); ok {
			entry.cancel()
		}
	})
	return &Registry{engines: c, build: build}
}

// Get returns the profile's engine, starting it with fragment when it is not
// running yet. The second result reports whether this call created it.
func (r *Registry) Get(ctx context.Context, profile, fragment string) (*tracker.Engine, bool) {
	if engine, ok := r.lookup(profile); ok {
		return engine, false
	}

	created := false
	v, _, _ := r.builds.Do(profile, func() (any, error) {
		// A build that finished between lookup and Do already inserted it.
		if engine, ok := r.lookup(profile); ok {
			return engine, nil
		}
		engine := r.build(ctx, profile, fragment)
		r.insert(profile, engine)
		created = true
		return engine, nil
	})
	return v.(*tracker.Engine), created
}

func (r *Registry) lookup(profile string) (*tracker.Engine, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.engines.Get(profile)
	if !ok {
		return nil, false
	}
	entry := v.(engineEntry)
	r.engines.SetDefault(profile, entry)
	return entry.engine, true
}

func (r *Registry) insert(profile string, engine *tracker.Engine) {
	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		engine.Run(runCtx)
	}()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.engines.SetDefault(profile, engineEntry{engine: engine, cancel: func() {
		cancel()
		<-done
	}})
}

// Each calls fn for every running engine.
func (r *Registry) Each(fn func(profile string, engine *tracker.Engine)) {
	for profile, item := range r.engines.Items() {
		if entry, ok := item.Object.(engineEntry); ok {
			fn(profile, entry.engine)
		}
	}
}

// Len counts running engines.
func (r *Registry) Len() int {
	return r.engines.ItemCount()
}

// Close stops every engine, flushing unsaved state.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for profile := range r.engines.Items() {
		r.engines.Delete(profile)
	}
}
