package logging

import (
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestLineFormatter_MatchesExpectedShape(t *testing.T) {
	f := lineFormatter{}
	entry := &logrus.Entry{
		Logger:  logrus.New(),
		Message: "jailing ip",
		Level:   logrus.InfoLevel,
	}
	entry.Time = entry.Time // zero time is fine for format-shape assertions

	out, err := f.Format(entry)
	require.NoError(t, err)
	require.Regexp(t, `^[A-Z][a-z]{2} \d{2} \d{2}:\d{2}:\d{2} - INFO - jailing ip\n$`, string(out))
}

func TestInit_CreatesAndAppendsToLogfile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sentryd.log")

	f, err := Init(path)
	require.NoError(t, err)
	require.NotNil(t, f)
	defer f.Close()

	logrus.Info("hello")

	data, err := filepath.Glob(filepath.Join(dir, "*.log"))
	require.NoError(t, err)
	require.Len(t, data, 1)
}
