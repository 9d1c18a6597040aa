// Package logging initialises the process-wide logrus logger (spec §6,
// §9 "Global state: the logger... pass a logger handle to workers").
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// lineFormatter renders the exact "MMM DD HH:MM:SS - LEVEL - MESSAGE" line
// spec §6 requires, matching the original's `strftime("%b %d %H:%M:%S")`
// console/file duplicate.
type lineFormatter struct{}

func (lineFormatter) Format(e *logrus.Entry) ([]byte, error) {
	line := fmt.Sprintf("%s - %s - %s\n",
		e.Time.Format("Jan 02 15:04:05"),
		levelTag(e.Level),
		e.Message,
	)
	return []byte(line), nil
}

func levelTag(l logrus.Level) string {
	switch l {
	case logrus.DebugLevel, logrus.TraceLevel:
		return "DEBUG"
	case logrus.InfoLevel:
		return "INFO"
	case logrus.WarnLevel:
		return "WARN"
	case logrus.ErrorLevel:
		return "ERROR"
	default:
		return "FATAL"
	}
}

// Init configures the process-wide logrus logger to write lineFormatter
// output to both stderr and logfilePath (append mode, created if absent —
// spec §6 "<logfile>PATH</logfile>").
func Init(logfilePath string) (*os.File, error) {
	logrus.SetFormatter(lineFormatter{})

	if logfilePath == "" {
		logrus.SetOutput(os.Stderr)
		return nil, nil
	}

	f, err := os.OpenFile(logfilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open logfile %s: %w", logfilePath, err)
	}

	logrus.SetOutput(io.MultiWriter(os.Stderr, f))
	return f, nil
}
