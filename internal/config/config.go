// Package config parses and validates sentryd's XML configuration file
// (spec §6 "Configuration file (XML)"). Parsing itself is encoding/xml —
// justified in DESIGN.md: the retrieval pack's XML library, antchfx/xmlquery,
// is an XPath query engine for semi-structured documents and is the wrong
// tool for mapping a small, strictly-shaped schema onto Go structs.
package config

import (
	"encoding/xml"
	"fmt"
	"os"
	"strconv"

	"github.com/arn-sec/sentryd/internal/apperrors"
	"github.com/arn-sec/sentryd/internal/pathsafety"
	"github.com/arn-sec/sentryd/internal/pattern"
)

// DefaultSearchPaths is the default config path search order when -c is
// absent (spec §6, supplemented by original_source/src/main.rs's
// /etc/heimdall.xml, ./heimdall.xml search — spec SPEC_FULL §10).
var DefaultSearchPaths = []string{"/etc/sentryd.xml", "./sentryd.xml"}

// AllowedLogDirs restricts where monitored files and the daemon's own
// logfile may live, generalized from the teacher's hardcoded allow-list
// (internal/pathsafety). Empty disables the check.
var AllowedLogDirs []string

type rawConfig struct {
	XMLName       xml.Name       `xml:"sentryd"`
	Logfile       string         `xml:"logfile"`
	CommandJail   string         `xml:"command_jail"`
	CommandUnjail string         `xml:"command_unjail"`
	Observers     rawObserverSet `xml:"observers"`
}

type rawObserverSet struct {
	JailTimeAttr string         `xml:"jail_time,attr"`
	Observers    []rawObserver  `xml:"observer"`
}

type rawObserver struct {
	Name              string   `xml:"name,attr"`
	LimitMinutesAttr  string   `xml:"limit_minutes,attr"`
	LimitCountAttr    string   `xml:"limit_count,attr"`
	File              string   `xml:"file"`
	Patterns          []string `xml:"patterns>pattern"`
}

// Observer is one fully-validated <observer> (spec §3 "Observer Config").
type Observer struct {
	Name               string
	FilePath           string
	Patterns           []*pattern.Compiled
	LimitCount         uint32
	LimitWindowMinutes uint8
}

// Config is the fully-validated, ready-to-run configuration (spec §6).
type Config struct {
	LogfilePath    string
	CommandJail    string
	CommandUnjail  string
	BaseJailTime   int64
	Observers      []Observer
}

// Load reads, parses, and validates the configuration file at path,
// returning *apperrors.ConfigError for any structural or semantic problem
// (spec §6: "Validation errors ... abort startup with a human-readable
// message").
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &apperrors.ConfigError{Path: path, Reason: err.Error()}
	}

	var raw rawConfig
	if err := xml.Unmarshal(data, &raw); err != nil {
		return nil, &apperrors.ConfigError{Path: path, Reason: fmt.Sprintf("malformed XML: %s", err)}
	}

	return validate(path, raw)
}

// Resolve implements the -c-absent search order (spec §6).
func Resolve(flagPath string) (string, error) {
	if flagPath != "" {
		return flagPath, nil
	}
	for _, candidate := range DefaultSearchPaths {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", &apperrors.ConfigError{Reason: fmt.Sprintf("no configuration file found in %v", DefaultSearchPaths)}
}

func validate(path string, raw rawConfig) (*Config, error) {
	if raw.Logfile == "" {
		return nil, &apperrors.ConfigError{Path: path, Reason: "<logfile> is required"}
	}
	if err := pathsafety.ValidateLogFilePath(raw.Logfile, AllowedLogDirs); err != nil {
		return nil, &apperrors.ConfigError{Path: path, Reason: err.Error()}
	}
	if raw.CommandJail == "" {
		return nil, &apperrors.ConfigError{Path: path, Reason: "<command_jail> is required"}
	}
	if raw.CommandUnjail == "" {
		return nil, &apperrors.ConfigError{Path: path, Reason: "<command_unjail> is required"}
	}

	baseJailTime, err := strconv.ParseInt(raw.Observers.JailTimeAttr, 10, 64)
	if err != nil {
		return nil, &apperrors.ConfigError{Path: path, Reason: fmt.Sprintf("<observers jail_time> is not a valid number: %s", raw.Observers.JailTimeAttr)}
	}
	if len(raw.Observers.Observers) == 0 {
		return nil, &apperrors.ConfigError{Path: path, Reason: "at least one <observer> is required"}
	}

	observers := make([]Observer, 0, len(raw.Observers.Observers))
	seen := make(map[string]bool, len(raw.Observers.Observers))
	for _, ro := range raw.Observers.Observers {
		obs, err := validateObserver(path, ro)
		if err != nil {
			return nil, err
		}
		if seen[obs.Name] {
			return nil, &apperrors.ConfigError{Path: path, Reason: fmt.Sprintf("duplicate observer name %q", obs.Name)}
		}
		seen[obs.Name] = true
		observers = append(observers, obs)
	}

	return &Config{
		LogfilePath:   raw.Logfile,
		CommandJail:   raw.CommandJail,
		CommandUnjail: raw.CommandUnjail,
		BaseJailTime:  baseJailTime,
		Observers:     observers,
	}, nil
}

func validateObserver(path string, ro rawObserver) (Observer, error) {
	if ro.Name == "" {
		return Observer{}, &apperrors.ConfigError{Path: path, Reason: "<observer name=...> is required"}
	}
	if ro.File == "" {
		return Observer{}, &apperrors.ConfigError{Path: path, Reason: fmt.Sprintf("observer %q: <file> is required", ro.Name)}
	}
	if err := pathsafety.ValidateLogFilePath(ro.File, AllowedLogDirs); err != nil {
		return Observer{}, &apperrors.ConfigError{Path: path, Reason: fmt.Sprintf("observer %q: %s", ro.Name, err)}
	}
	if len(ro.Patterns) == 0 {
		return Observer{}, &apperrors.ConfigError{Path: path, Reason: fmt.Sprintf("observer %q: at least one <pattern> is required", ro.Name)}
	}

	limitMinutes, err := strconv.ParseUint(ro.LimitMinutesAttr, 10, 8)
	if err != nil {
		return Observer{}, &apperrors.ConfigError{Path: path, Reason: fmt.Sprintf("observer %q: limit_minutes is not a valid number: %s", ro.Name, ro.LimitMinutesAttr)}
	}
	limitCount, err := strconv.ParseUint(ro.LimitCountAttr, 10, 32)
	if err != nil {
		return Observer{}, &apperrors.ConfigError{Path: path, Reason: fmt.Sprintf("observer %q: limit_count is not a valid number: %s", ro.Name, ro.LimitCountAttr)}
	}

	compiled := make([]*pattern.Compiled, 0, len(ro.Patterns))
	for _, tmpl := range ro.Patterns {
		if tmpl == "" {
			return Observer{}, &apperrors.ConfigError{Path: path, Reason: fmt.Sprintf("observer %q: <pattern> text must not be empty", ro.Name)}
		}
		c, err := pattern.Compile(tmpl)
		if err != nil {
			return Observer{}, &apperrors.ConfigError{Path: path, Reason: fmt.Sprintf("observer %q: %s", ro.Name, err)}
		}
		compiled = append(compiled, c)
	}

	return Observer{
		Name:               ro.Name,
		FilePath:           ro.File,
		Patterns:           compiled,
		LimitCount:         uint32(limitCount),
		LimitWindowMinutes: uint8(limitMinutes),
	}, nil
}
