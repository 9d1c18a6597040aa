// Package executor implements the Command Executor capability (spec §4.6):
// given a command template and an IPv4 address, substitute {ip}, split on
// whitespace into argv, spawn, wait, and report success.
//
// Two resiliency layers sit in front of the raw spawn, both grounded on
// libraries the rest of the retrieval pack already depends on for exactly
// this kind of external-command fragility:
//
//   - a github.com/sony/gobreaker circuit breaker per command kind (jail vs.
//     unjail), so a firewall binary that is missing or broken is not spawned
//     again while the breaker is open; Execute then returns false at once
//     (spec §7 CommandFailure);
//   - a golang.org/x/time/rate limiter shared across all commands, so a
//     burst of hits across many observers cannot fork a storm of child
//     processes.
package executor

import (
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// Kind distinguishes the jail and unjail command templates so each gets its
// own circuit breaker — a broken unjail command must not mask a healthy
// jail command, and vice versa.
type Kind string

const (
	KindJail   Kind = "jail"
	KindUnjail Kind = "unjail"
)

// Runner spawns a program with arguments and reports whether it exited
// successfully. The default runner shells out via os/exec; tests substitute
// a recorder (spec §9: "expose it as a capability... so tests can
// substitute a recorder").
type Runner interface {
	Run(ctx context.Context, program string, args []string) bool
}

// execRunner is the production Runner, backed by os/exec.
type execRunner struct{}

func (execRunner) Run(ctx context.Context, program string, args []string) bool {
	cmd := exec.CommandContext(ctx, program, args...)
	cmd.Stdout = nil
	cmd.Stderr = nil
	if err := cmd.Run(); err != nil {
		logrus.WithFields(logrus.Fields{
			"program": program,
			"args":    args,
		}).Errorf("command execution failed: %s", err)
		return false
	}
	return true
}

// Executor is the shared capability the Jail Registry calls into.
type Executor struct {
	runner   Runner
	simulate bool
	limiter  *rate.Limiter

	jailBreaker   *gobreaker.CircuitBreaker
	unjailBreaker *gobreaker.CircuitBreaker
}

// Option configures an Executor at construction time.
type Option func(*Executor)

// WithRunner overrides the Runner, for tests.
func WithRunner(r Runner) Option {
	return func(e *Executor) { e.runner = r }
}

// WithRateLimit caps command spawns to rps per second with the given burst.
// A zero rps disables limiting (the default).
func WithRateLimit(rps float64, burst int) Option {
	return func(e *Executor) {
		if rps > 0 {
			e.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

// New builds an Executor. simulate, when true, logs the resolved command and
// returns true without spawning anything (spec §4.6, §6 "-s simulate").
func New(simulate bool, opts ...Option) *Executor {
	e := &Executor{simulate: simulate}

	breakerSettings := func(name string) gobreaker.Settings {
		st := gobreaker.Settings{
			Name:        name,
			MaxRequests: 1,
			Interval:    0,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logrus.WithFields(logrus.Fields{
					"breaker": name,
					"from":    from.String(),
					"to":      to.String(),
				}).Warn("command circuit breaker changed state")
			},
		}
		return st
	}
	e.jailBreaker = gobreaker.NewCircuitBreaker(breakerSettings("jail"))
	e.unjailBreaker = gobreaker.NewCircuitBreaker(breakerSettings("unjail"))

	for _, opt := range opts {
		opt(e)
	}
	if e.runner == nil {
		e.runner = execRunner{}
	}
	return e
}

// Execute substitutes {ip} into template, splits it on whitespace into
// program + argv (no shell quoting — spec §4.6, "operators must not embed
// arguments containing spaces"), and runs it through the breaker for kind.
// Returns true iff the command is considered to have succeeded.
func (e *Executor) Execute(ctx context.Context, kind Kind, template, ip string) bool {
	resolved := strings.ReplaceAll(template, "{ip}", ip)

	program, args := splitCommand(resolved)
	if program == "" {
		logrus.WithField("template", template).Error("empty command template")
		return false
	}

	if e.simulate {
		logrus.WithFields(logrus.Fields{
			"program": program,
			"args":    args,
			"ip":      ip,
		}).Info("simulated command, not executing")
		return true
	}

	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			logrus.WithError(err).Warn("command rate limiter wait aborted")
			return false
		}
	}

	breaker := e.jailBreaker
	if kind == KindUnjail {
		breaker = e.unjailBreaker
	}

	result, err := breaker.Execute(func() (interface{}, error) {
		if !e.runner.Run(ctx, program, args) {
			return false, errCommandFailed
		}
		return true, nil
	})
	if err != nil {
		return false
	}
	return result.(bool)
}

var errCommandFailed = commandFailedErr{}

type commandFailedErr struct{}

func (commandFailedErr) Error() string { return "command exited non-zero or failed to spawn" }

// splitCommand splits a resolved command string at the first run of
// whitespace into a program name and the remaining whitespace-split argv,
// exactly as spec §4.6 describes.
func splitCommand(resolved string) (string, []string) {
	fields := strings.Fields(resolved)
	if len(fields) == 0 {
		return "", nil
	}
	return fields[0], fields[1:]
}
