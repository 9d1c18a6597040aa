package tailer

import (
	"time"

	"github.com/arn-sec/sentryd/internal/pattern"
)

// DefaultPollInterval matches the reference implementation's steady-state
// sleep between read cycles (spec §4.4 step 4: "the reference uses 5
// units").
const DefaultPollInterval = 5 * time.Millisecond

// Config describes one <observer> element fully resolved: compiled
// patterns, a ready Detector, and the threshold that trips a Hit (spec §3
// "Observer Config").
type Config struct {
	Name               string
	FilePath           string
	Patterns           []*pattern.Compiled
	LimitCount         uint32
	LimitWindowMinutes uint8
	ReadFromStart      bool
	PollInterval       time.Duration
}
