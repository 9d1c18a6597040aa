package pattern

import (
	"regexp"
	"strings"

	"github.com/arn-sec/sentryd/internal/apperrors"
)

// Compiled is a pattern template turned into a regex plus the capture-group
// indices (1-based) of its three required fields. See spec §3 "Compiled
// Pattern" and §4.1.
type Compiled struct {
	Template  string
	Regex     *regexp.Regexp
	Expanded  string // regex-form string, used to build the multi-pattern set
	PosIP     int
	PosHour   int
	PosMinute int
}

var hhmmssReplacer = strings.NewReplacer(`{hh:mm:ss}`, `{h}:{m}:\d\d`)

// groupingReplacer wraps each placeholder in its own capture group purely so
// the number of "(" characters before it can be counted — it is never used
// for matching, only for locating capture-group positions (spec §4.1 step 2).
var groupingReplacer = strings.NewReplacer(
	"{ip}", "({ip})",
	"{h}", "({h})",
	"{m}", "({m})",
)

var regexFormReplacer = strings.NewReplacer(
	"{ip}", `(\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3})`,
	"{h}", `(\d?\d)`,
	"{m}", `(\d?\d)`,
)

// Compile turns a human-friendly pattern template into a Compiled pattern.
//
// The {hh:mm:ss} placeholder is expanded first, then the result is expanded
// twice in parallel: once into a "grouping form" used only to count capture
// groups, once into the real regex form that actually gets compiled. This
// mirrors the original implementation's textual approach exactly — including
// its documented limitation that escaped parentheses in the operator's own
// regex fragment are not accounted for (spec §4.1, "known limitation").
func Compile(template string) (*Compiled, error) {
	raw := hhmmssReplacer.Replace(template)
	grouping := groupingReplacer.Replace(raw)
	expanded := regexFormReplacer.Replace(raw)

	re, err := regexp.Compile(expanded)
	if err != nil {
		return nil, &apperrors.InvalidRegexError{Template: template, Err: err}
	}

	posIP, ok := capturePosition(grouping, "{ip}")
	if !ok {
		return nil, &apperrors.MissingPlaceholderError{Template: template, Placeholder: "ip"}
	}
	posHour, ok := capturePosition(grouping, "{h}")
	if !ok {
		return nil, &apperrors.MissingPlaceholderError{Template: template, Placeholder: "h"}
	}
	posMinute, ok := capturePosition(grouping, "{m}")
	if !ok {
		return nil, &apperrors.MissingPlaceholderError{Template: template, Placeholder: "m"}
	}

	return &Compiled{
		Template:  template,
		Regex:     re,
		Expanded:  expanded,
		PosIP:     posIP,
		PosHour:   posHour,
		PosMinute: posMinute,
	}, nil
}

// capturePosition returns the 1-based capture-group index of the first
// occurrence of needle in grouping, by counting literal "(" before its
// wrapping "(" + needle + ")" group.
func capturePosition(grouping, needle string) (int, bool) {
	idx := strings.Index(grouping, "("+needle+")")
	if idx < 0 {
		return 0, false
	}
	return strings.Count(grouping[:idx], "(") + 1, true
}
