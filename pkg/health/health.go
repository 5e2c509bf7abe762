// Package health serves liveness and readiness probes.
//
// Probes are polled in the background. A probe turns unhealthy only after
// FailAfter consecutive failures and recovers after PassAfter consecutive
// successes, so a single slow ping does not flip the pod out of rotation.
package health

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"
	"go.uber.org/zap"
)

// Check reports nil when the probed component is usable.
type Check func(ctx context.Context) error

// Kind selects the endpoint a probe contributes to.
type Kind uint8

const (
	// Liveness probes back /livez.
	Liveness Kind = iota
	// Readiness probes back /readyz.
	Readiness
)

func (k Kind) String() string {
	if k == Readiness {
		return "readiness"
	}
	return "liveness"
}

// Option tunes a single probe.
type Option func(*probe)

// WithTimeout bounds one check invocation.
func WithTimeout(d time.Duration) Option {
	return func(p *probe) { p.timeout = d }
}

// WithThresholds sets how many consecutive failures mark the probe unhealthy
// and how many consecutive successes mark it healthy again.
func WithThresholds(failAfter, passAfter int) Option {
	return func(p *probe) {
		if failAfter > 0 {
			p.failAfter = failAfter
		}
		if passAfter > 0 {
			p.passAfter = passAfter
		}
	}
}

type probe struct {
	name      string
	kind      Kind
	check     Check
	timeout   time.Duration
	failAfter int
	passAfter int

	healthy atomic.Bool
	lastErr atomic.Pointer[error]

	// Owned by the polling goroutine.
	fails  int
	passes int
}

// poll runs the check once and reports whether the health state flipped.
func (p *probe) poll(ctx context.Context) (changed bool) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err := p.check(ctx)
	p.lastErr.Store(&err)

	was := p.healthy.Load()
	if err != nil {
		p.passes = 0
		p.fails++
		if p.fails >= p.failAfter {
			p.healthy.Store(false)
		}
	} else {
		p.fails = 0
		p.passes++
		if p.passes >= p.passAfter {
			p.healthy.Store(true)
		}
	}
	return was != p.healthy.Load()
}

func (p *probe) failure() string {
	if p.healthy.Load() {
		return ""
	}
	if e := p.lastErr.Load(); e != nil && *e != nil {
		return (*e).Error()
	}
	return "check is unhealthy"
}

// Registry holds the probes of one process.
type Registry struct {
	lg    *zap.Logger
	ready atomic.Bool

	mu     sync.RWMutex
	probes []*probe
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Registry. It reports not ready until SetReady(true).
func New(lg *zap.Logger) *Registry {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Registry{lg: lg}
}

// Register adds a probe. Probes start healthy; register them before Start.
func (r *Registry) Register(name string, kind Kind, check Check, opts ...Option) {
	p := &probe{
		name:      name,
		kind:      kind,
		check:     check,
		timeout:   time.Second,
		failAfter: 3,
		passAfter: 1,
	}
	for _, o := range opts {
		o(p)
	}
	p.healthy.Store(true)

	r.mu.Lock()
	r.probes = append(r.probes, p)
	r.mu.Unlock()
}

// Start polls every probe at interval until Stop or ctx is done.
func (r *Registry) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	r.mu.Lock()
	r.cancel = cancel
	probes := append([]*probe(nil), r.probes...)
	r.mu.Unlock()

	for _, p := range probes {
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			r.watch(ctx, p, interval)
		}()
	}
}

func (r *Registry) watch(ctx context.Context, p *probe, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if p.poll(ctx) {
			lg := r.lg.With(zap.String("probe", p.name), zap.Stringer("kind", p.kind))
			if p.healthy.Load() {
				lg.Info("Probe recovered")
			} else {
				lg.Warn("Probe unhealthy", zap.String("error", p.failure()))
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Stop halts polling and waits for the pollers to exit. Safe to call twice.
func (r *Registry) Stop() {
	r.mu.Lock()
	cancel := r.cancel
	r.cancel = nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	r.wg.Wait()
}

// SetReady toggles the manual readiness gate, e.g. false while draining.
func (r *Registry) SetReady(ready bool) { r.ready.Store(ready) }

// Ready reports whether the gate is open and every readiness probe passes.
func (r *Registry) Ready() bool {
	return r.ready.Load() && len(r.failures(Readiness)) == 0
}

// Live reports whether every liveness probe passes.
func (r *Registry) Live() bool {
	return len(r.failures(Liveness)) == 0
}

func (r *Registry) failures(kind Kind) map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]string)
	for _, p := range r.probes {
		if p.kind != kind {
			continue
		}
		if msg := p.failure(); msg != "" {
			out[p.name] = msg
		}
	}
	return out
}

// RegisterRoutes mounts GET /livez and GET /readyz on router.
func (r *Registry) RegisterRoutes(router chi.Router) {
	router.Get("/livez", r.Livez)
	router.Get("/readyz", r.Readyz)
}

// Livez serves the liveness probe.
func (r *Registry) Livez(w http.ResponseWriter, _ *http.Request) {
	writeStatus(w, r.failures(Liveness))
}

// Readyz serves the readiness probe. A closed gate is reported as the
// pseudo-check "_gate".
func (r *Registry) Readyz(w http.ResponseWriter, _ *http.Request) {
	failures := r.failures(Readiness)
	if !r.ready.Load() {
		failures["_gate"] = "service is not ready"
	}
	writeStatus(w, failures)
}

func writeStatus(w http.ResponseWriter, failures map[string]string) {
	status, label := http.StatusOK, "ok"
	if len(failures) > 0 {
		status, label = http.StatusServiceUnavailable, "unhealthy"
	}

	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("status", func(e *jx.Encoder) { e.Str(label) })
		if len(failures) == 0 {
			return
		}
		names := make([]string, 0, len(failures))
		for name := range failures {
			names = append(names, name)
		}
		sort.Strings(names)
		e.Field("checks", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				for _, name := range names {
					e.Field(name, func(e *jx.Encoder) { e.Str(failures[name]) })
				}
			})
		})
	})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}
