// Package registry implements the Jail Registry (spec §4.5): it consumes
// Hit events, issues jail commands, schedules releases, and escalates
// durations for repeat offenders.
package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/arn-sec/sentryd/internal/executor"
)

// EscalationFactor is the multiplicative penalty applied per repeat offense
// (spec §4.5: "Escalation factor is exactly 6").
const EscalationFactor = 6

// DefaultReleaseInterval is the release ticker's coarse polling cadence
// (spec §4.5: "every ~10 seconds").
const DefaultReleaseInterval = 10 * time.Second

// DefaultMaxJailSeconds caps the escalated duration so base*6^(n-1) cannot
// overflow an int64 (spec §9, "cap at some sane maximum (e.g. 30 days)").
const DefaultMaxJailSeconds = int64(30 * 24 * time.Hour / time.Second)

// Registry owns the ordered jail-entry sequence and the sticky jail
// counter. Both are guarded by a single mutex shared between the event
// handler and the release ticker (spec §5).
type Registry struct {
	mu          sync.Mutex
	entries     []entry
	jailCounter map[IPv4]uint32

	exec            *executor.Executor
	jailTemplate    string
	unjailTemplate  string
	baseJailSeconds int64
	maxJailSeconds  int64
	releaseInterval time.Duration
	metrics         Metrics

	now func() int64
}

// Option configures a Registry at construction time.
type Option func(*Registry)

// WithMaxJailSeconds overrides DefaultMaxJailSeconds.
func WithMaxJailSeconds(seconds int64) Option {
	return func(r *Registry) { r.maxJailSeconds = seconds }
}

// WithReleaseInterval overrides DefaultReleaseInterval.
func WithReleaseInterval(d time.Duration) Option {
	return func(r *Registry) { r.releaseInterval = d }
}

// WithMetrics attaches an observability sink.
func WithMetrics(m Metrics) Option {
	return func(r *Registry) { r.metrics = m }
}

// withClock overrides the time source, for tests only.
func withClock(now func() int64) Option {
	return func(r *Registry) { r.now = now }
}

// New builds a Registry. baseJailSeconds is the configured <observers
// jail_time="..."> value (spec §6).
func New(exec *executor.Executor, jailTemplate, unjailTemplate string, baseJailSeconds int64, opts ...Option) *Registry {
	r := &Registry{
		jailCounter:     make(map[IPv4]uint32),
		exec:            exec,
		jailTemplate:    jailTemplate,
		unjailTemplate:  unjailTemplate,
		baseJailSeconds: baseJailSeconds,
		maxJailSeconds:  DefaultMaxJailSeconds,
		releaseInterval: DefaultReleaseInterval,
		metrics:         noopMetrics{},
		now:             func() int64 { return time.Now().Unix() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run drains hits and periodically sweeps expired entries until ctx is
// cancelled, then returns once both internal workers have exited (spec §5
// "Cancellation / shutdown": "the registry drains remaining events then
// exits").
func (r *Registry) Run(ctx context.Context, hits <-chan Hit) {
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		r.handleEvents(ctx, hits)
	}()
	go func() {
		defer wg.Done()
		r.releaseLoop(ctx)
	}()

	wg.Wait()
}

func (r *Registry) handleEvents(ctx context.Context, hits <-chan Hit) {
	for {
		select {
		case <-ctx.Done():
			// drain whatever is already queued before exiting.
			for {
				select {
				case hit, ok := <-hits:
					if !ok {
						return
					}
					r.handleHit(ctx, hit)
				default:
					return
				}
			}
		case hit, ok := <-hits:
			if !ok {
				return
			}
			r.handleHit(ctx, hit)
		}
	}
}

// handleHit is spec §4.5(a). The channel has exactly one consumer (this
// loop), so no two calls to handleHit ever run concurrently — the mutex
// below exists solely to serialize against the release ticker goroutine.
func (r *Registry) handleHit(ctx context.Context, hit Hit) {
	r.metrics.HitObserved(hit.ObserverName)

	r.mu.Lock()
	idx := r.indexOf(hit.IP)
	if idx >= 0 {
		r.entries[idx].releaseAt = r.now() + r.baseJailSeconds
		r.sortEntriesLocked()
		r.mu.Unlock()

		logrus.WithFields(logrus.Fields{
			"ip":       formatIPv4(hit.IP),
			"observer": hit.ObserverName,
			"corr_id":  hit.CorrelationID,
		}).Info("jail deadline refreshed, not re-jailed")
		r.metrics.JailRefreshed()
		return
	}

	r.jailCounter[hit.IP]++
	n := r.jailCounter[hit.IP]
	r.mu.Unlock()

	ip := formatIPv4(hit.IP)
	logrus.WithFields(logrus.Fields{
		"ip":       ip,
		"observer": hit.ObserverName,
		"count":    n,
		"corr_id":  hit.CorrelationID,
	}).Info("jailing ip")

	if !r.exec.Execute(ctx, executor.KindJail, r.jailTemplate, ip) {
		logrus.WithField("ip", ip).Error("jail command failed, ip not tracked, next hit retries")
		r.metrics.JailFailed()
		return
	}

	duration := r.effectiveDuration(n)

	r.mu.Lock()
	r.entries = append(r.entries, entry{ip: hit.IP, releaseAt: r.now() + duration})
	r.sortEntriesLocked()
	active := len(r.entries)
	r.mu.Unlock()

	r.metrics.Jailed()
	r.metrics.ActiveJails(active)
}

// effectiveDuration computes base * EscalationFactor^(n-1), saturating at
// maxJailSeconds (spec §4.5, §9 overflow note).
func (r *Registry) effectiveDuration(n uint32) int64 {
	d := r.baseJailSeconds
	for i := uint32(1); i < n; i++ {
		if d > r.maxJailSeconds/EscalationFactor {
			return r.maxJailSeconds
		}
		d *= EscalationFactor
	}
	if d > r.maxJailSeconds {
		return r.maxJailSeconds
	}
	return d
}

func (r *Registry) releaseLoop(ctx context.Context) {
	ticker := time.NewTicker(r.releaseInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweepReleases(ctx)
		}
	}
}

// sweepReleases is spec §4.5(b): while the front entry's deadline has
// passed, unjail it; stop at the first still-pending entry or the first
// unjail failure (which is retried on the next tick, per spec).
func (r *Registry) sweepReleases(ctx context.Context) {
	for {
		r.mu.Lock()
		if len(r.entries) == 0 || r.entries[0].releaseAt > r.now() {
			r.mu.Unlock()
			return
		}
		front := r.entries[0]
		r.mu.Unlock()

		ip := formatIPv4(front.ip)
		logrus.WithField("ip", ip).Info("unjailing")
		ok := r.exec.Execute(ctx, executor.KindUnjail, r.unjailTemplate, ip)
		if !ok {
			logrus.WithField("ip", ip).Warn("unjail command failed, retrying next sweep")
			r.metrics.UnjailFailed()
			return
		}

		r.mu.Lock()
		if len(r.entries) > 0 && r.entries[0].ip == front.ip && r.entries[0].releaseAt == front.releaseAt {
			r.entries = r.entries[1:]
		}
		active := len(r.entries)
		r.mu.Unlock()

		r.metrics.Unjailed()
		r.metrics.ActiveJails(active)
	}
}

func (r *Registry) indexOf(ip IPv4) int {
	for i := range r.entries {
		if r.entries[i].ip == ip {
			return i
		}
	}
	return -1
}

func (r *Registry) sortEntriesLocked() {
	sort.Slice(r.entries, func(i, j int) bool {
		return r.entries[i].releaseAt < r.entries[j].releaseAt
	})
}

// JailCount reports how many times ip has ever been jailed (spec §8
// invariant: non-decreasing over the process lifetime).
func (r *Registry) JailCount(ip IPv4) uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.jailCounter[ip]
}

// ActiveEntries returns a snapshot of currently jailed IPs and their
// release deadlines, for tests and diagnostics.
func (r *Registry) ActiveEntries() []struct {
	IP        IPv4
	ReleaseAt int64
} {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]struct {
		IP        IPv4
		ReleaseAt int64
	}, len(r.entries))
	for i, e := range r.entries {
		out[i] = struct {
			IP        IPv4
			ReleaseAt int64
		}{IP: e.ip, ReleaseAt: e.releaseAt}
	}
	return out
}

func formatIPv4(ip IPv4) string {
	return fmt.Sprintf("%d.%d.%d.%d", ip[0], ip[1], ip[2], ip[3])
}
