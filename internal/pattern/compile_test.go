package pattern

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompile_SSHDTemplate(t *testing.T) {
	c, err := Compile(`{hh:mm:ss}.*Failed password.*from {ip}`)
	require.NoError(t, err)

	line := "10:00:00 Failed password for root from 1.2.3.4 port 5555 ssh2"
	caps := c.Regex.FindStringSubmatch(line)
	require.NotNil(t, caps)
	require.Equal(t, "10", caps[c.PosHour])
	require.Equal(t, "00", caps[c.PosMinute])
	require.Equal(t, "1.2.3.4", caps[c.PosIP])
}

func TestCompile_DistinctCaptureGroups(t *testing.T) {
	c, err := Compile(`{h}:{m}:\d\d (.*) {ip}`)
	require.NoError(t, err)

	require.NotEqual(t, c.PosIP, c.PosHour)
	require.NotEqual(t, c.PosIP, c.PosMinute)
	require.NotEqual(t, c.PosHour, c.PosMinute)
}

func TestCompile_MissingPlaceholder(t *testing.T) {
	_, err := Compile(`{h}:{m}:\d\d no ip here`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "ip")
}

func TestCompile_InvalidRegex(t *testing.T) {
	_, err := Compile(`(unterminated {ip}`)
	require.Error(t, err)
}

func TestCompile_HHMMSSExpandsSecondsUncaptured(t *testing.T) {
	c, err := Compile(`{hh:mm:ss} login from {ip}`)
	require.NoError(t, err)

	caps := c.Regex.FindStringSubmatch("23:59:45 login from 10.0.0.1")
	require.NotNil(t, caps)
	require.Equal(t, "23", caps[c.PosHour])
	require.Equal(t, "59", caps[c.PosMinute])
	// the seconds group is not one of the three named placeholders and is
	// never exposed — only 3 capture groups should exist.
	require.Len(t, caps, 4) // full match + 3 groups
}
