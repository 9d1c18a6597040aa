// Package tailer implements the File Tailer (spec §4.4): a rotation-
// tolerant incremental line reader that drives a pattern.Detector and a
// per-IP window.HourStat store, emitting registry.Hit events when an IP
// crosses its observer's threshold.
package tailer

import (
	"bufio"
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/arn-sec/sentryd/internal/apperrors"
	"github.com/arn-sec/sentryd/internal/ipstats"
	"github.com/arn-sec/sentryd/internal/pattern"
	"github.com/arn-sec/sentryd/internal/registry"
	"github.com/arn-sec/sentryd/internal/window"
)

// Metrics is the tailer's observability hook; a no-op implementation is
// used when none is supplied.
type Metrics interface {
	TailerError(observerName string)
}

type noopMetrics struct{}

func (noopMetrics) TailerError(string) {}

// Tailer is one instance per observer (spec §4.4: "runs as a dedicated
// worker... holds its own private LRU of HourStats").
type Tailer struct {
	cfg      Config
	detector *pattern.Detector
	store    *ipstats.Store
	metrics  Metrics

	file         *os.File
	reader       *bufio.Reader
	lastSize     int64
	lastIdentity fileIdentity
	haveIdentity bool

	reopenBackoff backoff.BackOff
}

// Option configures a Tailer at construction time.
type Option func(*Tailer)

// WithMetrics attaches an observability sink.
func WithMetrics(m Metrics) Option {
	return func(t *Tailer) { t.metrics = m }
}

// New builds a Tailer and performs spec §4.4's startup sequence: stat the
// file, open it, and seek to end unless ReadFromStart is set. A stat
// failure here is fatal startup error, propagated to the caller before any
// worker goroutine begins (spec §4.4, "fail startup with a descriptive
// error").
func New(cfg Config, opts ...Option) (*Tailer, error) {
	detector, err := pattern.NewDetector(cfg.Patterns)
	if err != nil {
		return nil, err
	}

	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}

	t := &Tailer{
		cfg:      cfg,
		detector: detector,
		store:    ipstats.NewStore(),
		metrics:  noopMetrics{},
	}
	for _, opt := range opts {
		opt(t)
	}

	size, id, err := statPath(cfg.FilePath)
	if err != nil {
		return nil, &apperrors.StartupFileError{Observer: cfg.Name, Path: cfg.FilePath, Err: err}
	}

	f, err := os.Open(cfg.FilePath)
	if err != nil {
		return nil, &apperrors.StartupFileError{Observer: cfg.Name, Path: cfg.FilePath, Err: err}
	}
	if !cfg.ReadFromStart {
		if _, err := f.Seek(0, io.SeekEnd); err != nil {
			f.Close()
			return nil, &apperrors.StartupFileError{Observer: cfg.Name, Path: cfg.FilePath, Err: err}
		}
	}

	t.file = f
	t.reader = bufio.NewReader(f)
	t.lastSize = size
	t.lastIdentity = id
	t.haveIdentity = true
	t.reopenBackoff = newReopenBackoff()

	return t, nil
}

func newReopenBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 0 // retry indefinitely — spec §4.4/§7: TransientIOError never fatal
	return b
}

// Close releases the tailer's file handle and detector resources.
func (t *Tailer) Close() error {
	if t.detector != nil {
		_ = t.detector.Close()
	}
	if t.file != nil {
		return t.file.Close()
	}
	return nil
}

// Run is the steady-state loop of spec §4.4: stat, detect rotation, drain
// available lines, sleep, repeat — until ctx is cancelled.
func (t *Tailer) Run(ctx context.Context, hits chan<- registry.Hit) {
	defer t.Close()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := t.pollOnce(ctx, hits); err != nil {
			t.metrics.TailerError(t.cfg.Name)
			logrus.WithFields(logrus.Fields{
				"observer": t.cfg.Name,
				"file":     t.cfg.FilePath,
			}).Debugf("transient tailer error, retrying: %s", err)
			t.sleep(ctx, t.reopenBackoff.NextBackOff())
			continue
		}
		t.reopenBackoff.Reset()

		t.sleep(ctx, t.cfg.PollInterval)
	}
}

func (t *Tailer) sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// pollOnce is one iteration of spec §4.4 steps 1-3: stat, handle
// rotation/reopen, drain available lines.
func (t *Tailer) pollOnce(ctx context.Context, hits chan<- registry.Hit) error {
	size, id, err := statPath(t.cfg.FilePath)
	if err != nil {
		return t.reopen()
	}

	switch {
	case t.haveIdentity && id != t.lastIdentity:
		// a new file now lives at this path (spec §5 enhancement: inode
		// comparison catches a same-size rotation the size check alone
		// would miss). Read it from its own beginning — nothing in it has
		// been seen yet.
		if err := t.reopen(); err != nil {
			return err
		}
	case size < t.lastSize:
		// size-regression rotation (spec §4.4 step 1, scenario 5): seek
		// the existing handle to the new end, no reopen needed.
		if _, err := t.file.Seek(0, io.SeekEnd); err != nil {
			return err
		}
		t.reader.Reset(t.file)
	}

	t.lastSize = size
	t.lastIdentity = id
	t.haveIdentity = true

	t.drainAvailableLines(ctx, hits)
	return nil
}

// reopen re-opens the file by path (spec §4.4 step 1: "re-open the file by
// path; if re-open fails, sleep and retry").
func (t *Tailer) reopen() error {
	f, err := os.Open(t.cfg.FilePath)
	if err != nil {
		return err
	}
	if t.file != nil {
		t.file.Close()
	}
	t.file = f
	t.reader = bufio.NewReader(f)

	size, id, err := statPath(t.cfg.FilePath)
	if err == nil {
		t.lastSize = size
		t.lastIdentity = id
		t.haveIdentity = true
	} else {
		t.haveIdentity = false
	}
	return nil
}

// drainAvailableLines reads and processes whatever is newly available,
// stopping at EOF or context cancellation (spec §4.4 step 2: "read lines
// while available; on any read error on a particular line, skip the line
// and continue").
func (t *Tailer) drainAvailableLines(ctx context.Context, hits chan<- registry.Hit) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := t.reader.ReadString('\n')
		if len(line) > 0 {
			t.processLine(ctx, strings.TrimRight(line, "\r\n"), hits)
		}
		if err != nil {
			// io.EOF is the normal "nothing more yet" case; any other
			// read error is treated the same way per spec §4.4 step 2 —
			// skip and resume on the next poll cycle rather than busy-loop.
			return
		}
	}
}

// processLine runs the Detector and, on a hit that crosses the observer's
// threshold, evicts the IP from the LRU and emits a Hit (spec §4.4 step 3).
func (t *Tailer) processLine(ctx context.Context, line string, hits chan<- registry.Hit) {
	res, ok := t.detector.Detect(line)
	if !ok {
		return
	}

	var sum uint32
	if stat, found := t.store.Get(res.IP); found {
		stat.Record(res.Hour, res.Minute, 1)
		sum = stat.WindowSum(res.Hour, res.Minute, t.cfg.LimitWindowMinutes)
	} else {
		t.store.Put(res.IP, window.NewHourStat(res.Hour, res.Minute))
		sum = 1
	}

	if sum < t.cfg.LimitCount {
		return
	}

	t.store.Remove(res.IP)
	hit := registry.Hit{
		ObserverName:  t.cfg.Name,
		IP:            res.IP,
		CorrelationID: uuid.NewString(),
	}

	select {
	case hits <- hit:
	case <-ctx.Done():
	}
}
