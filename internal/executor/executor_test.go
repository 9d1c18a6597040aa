package executor

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu    sync.Mutex
	calls [][]string
	next  bool
}

func (r *recorder) Run(ctx context.Context, program string, args []string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, append([]string{program}, args...))
	return r.next
}

func TestExecutor_SubstitutesIPAndSplitsArgv(t *testing.T) {
	rec := &recorder{next: true}
	e := New(false, WithRunner(rec))

	ok := e.Execute(context.Background(), KindJail, "nft add rule drop {ip}", "1.2.3.4")
	require.True(t, ok)
	require.Equal(t, [][]string{{"nft", "add", "rule", "drop", "1.2.3.4"}}, rec.calls)
}

func TestExecutor_SimulateNeverSpawns(t *testing.T) {
	rec := &recorder{next: true}
	e := New(true, WithRunner(rec))

	ok := e.Execute(context.Background(), KindJail, "nft add rule drop {ip}", "1.2.3.4")
	require.True(t, ok)
	require.Empty(t, rec.calls)
}

func TestExecutor_FailedCommandReturnsFalse(t *testing.T) {
	rec := &recorder{next: false}
	e := New(false, WithRunner(rec))

	ok := e.Execute(context.Background(), KindJail, "nft add rule drop {ip}", "1.2.3.4")
	require.False(t, ok)
}

func TestExecutor_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	rec := &recorder{next: false}
	e := New(false, WithRunner(rec))

	for i := 0; i < 3; i++ {
		e.Execute(context.Background(), KindJail, "cmd {ip}", "1.2.3.4")
	}
	callsBeforeOpen := len(rec.calls)

	// the breaker should now be open: further calls short-circuit without
	// invoking the runner again.
	ok := e.Execute(context.Background(), KindJail, "cmd {ip}", "1.2.3.4")
	require.False(t, ok)
	require.Equal(t, callsBeforeOpen, len(rec.calls))
}

func TestExecutor_JailAndUnjailBreakersAreIndependent(t *testing.T) {
	rec := &recorder{next: false}
	e := New(false, WithRunner(rec))

	for i := 0; i < 3; i++ {
		e.Execute(context.Background(), KindJail, "jailcmd {ip}", "1.2.3.4")
	}

	rec.next = true
	ok := e.Execute(context.Background(), KindUnjail, "unjailcmd {ip}", "1.2.3.4")
	require.True(t, ok)
}

func TestExecutor_EmptyTemplateFails(t *testing.T) {
	rec := &recorder{next: true}
	e := New(false, WithRunner(rec))

	ok := e.Execute(context.Background(), KindJail, "   ", "1.2.3.4")
	require.False(t, ok)
	require.Empty(t, rec.calls)
}
