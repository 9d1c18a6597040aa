package tailer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arn-sec/sentryd/internal/pattern"
	"github.com/arn-sec/sentryd/internal/registry"
)

func compileTestPatterns(t *testing.T) []*pattern.Compiled {
	t.Helper()
	c, err := pattern.Compile(`{hh:mm:ss}.*Failed password.*from {ip}`)
	require.NoError(t, err)
	return []*pattern.Compiled{c}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestTailer_StartupFailsOnMissingFile(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{
		Name:               "sshd",
		FilePath:           filepath.Join(dir, "does-not-exist.log"),
		Patterns:           compileTestPatterns(t),
		LimitCount:         3,
		LimitWindowMinutes: 5,
	}
	_, err := New(cfg)
	require.Error(t, err)
}

func TestTailer_EmitsHitAtThreshold(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "auth.log", "")

	cfg := Config{
		Name:               "sshd",
		FilePath:           path,
		Patterns:           compileTestPatterns(t),
		LimitCount:         3,
		LimitWindowMinutes: 5,
		ReadFromStart:      true,
		PollInterval:       time.Millisecond,
	}
	tl, err := New(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hits := make(chan registry.Hit, 8)
	go tl.Run(ctx, hits)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	lines := []string{
		"10:00:00 Failed password from 1.2.3.4\n",
		"10:00:01 Failed password from 1.2.3.4\n",
		"10:00:30 Failed password from 1.2.3.4\n",
	}
	for _, l := range lines {
		_, err := f.WriteString(l)
		require.NoError(t, err)
	}
	require.NoError(t, f.Close())

	select {
	case hit := <-hits:
		require.Equal(t, "sshd", hit.ObserverName)
		require.Equal(t, registry.IPv4{1, 2, 3, 4}, hit.IP)
		require.NotEmpty(t, hit.CorrelationID)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a hit to be emitted")
	}

	select {
	case <-hits:
		t.Fatal("expected exactly one hit, got a second")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestTailer_NoHitUnderThreshold(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "auth.log", "")

	cfg := Config{
		Name:               "sshd",
		FilePath:           path,
		Patterns:           compileTestPatterns(t),
		LimitCount:         3,
		LimitWindowMinutes: 5,
		ReadFromStart:      true,
		PollInterval:       time.Millisecond,
	}
	tl, err := New(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hits := make(chan registry.Hit, 8)
	go tl.Run(ctx, hits)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("10:00:00 Failed password from 1.2.3.4\n10:00:01 Failed password from 1.2.3.4\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	select {
	case <-hits:
		t.Fatal("expected no hit under threshold")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestTailer_DetectsTruncationRotation(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "auth.log", "10:00:00 Failed password from 9.9.9.9\n")

	cfg := Config{
		Name:               "sshd",
		FilePath:           path,
		Patterns:           compileTestPatterns(t),
		LimitCount:         1,
		LimitWindowMinutes: 5,
		ReadFromStart:      false, // start at end of the pre-existing content
		PollInterval:       time.Millisecond,
	}
	tl, err := New(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hits := make(chan registry.Hit, 8)
	go tl.Run(ctx, hits)

	// truncate, then append a fresh matching burst.
	require.NoError(t, os.Truncate(path, 0))
	time.Sleep(10 * time.Millisecond)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("10:05:00 Failed password from 1.2.3.4\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	select {
	case hit := <-hits:
		require.Equal(t, registry.IPv4{1, 2, 3, 4}, hit.IP)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a hit from the post-rotation content")
	}
}
