// Package utils holds formatting helpers shared by the Discord surfaces.
package utils

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var mdEscaper = strings.NewReplacer("*", "\\*", "_", "\\_", "`", "\\`", "~", "\\~", "|", "\\|", ">", "\\>")

func EscapeMd(s string) string {
	return mdEscaper.Replace(s)
}

func PrettyTime(sec int) string {
	if sec < 0 {
		sec = 0
	}
	h := sec / 3600
	m := (sec % 3600) / 60
	s := sec % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// PrettyDuration formats d like PrettyTime, truncated to whole seconds.
func PrettyDuration(d time.Duration) string {
	return PrettyTime(int(d / time.Second))
}

var (
	reDur   = regexp.MustCompile(`(?i)^(?:(\d+)h)?(?:(\d+)m)?(?:(\d+)s)?$`)
	reClock = regexp.MustCompile(`^(?:(\d+):)?(\d{1,2}):(\d{2})$`)
)

// ParseDurationString accepts plain seconds ("90"), unit strings ("1m30s")
// and clock strings ("1:30", "1:02:03"). A leading + or - is returned as
// the sign of the result.
func ParseDurationString(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	sign := time.Duration(1)
	switch {
	case strings.HasPrefix(s, "-"):
		sign = -1
		s = s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}
	if n, err := strconv.Atoi(s); err == nil {
		return sign * time.Duration(n) * time.Second, nil
	}
	if m := reClock.FindStringSubmatch(s); m != nil {
		sec := atoi(m[1])*3600 + atoi(m[2])*60 + atoi(m[3])
		return sign * time.Duration(sec) * time.Second, nil
	}
	m := reDur.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	sec := atoi(m[1])*3600 + atoi(m[2])*60 + atoi(m[3])
	return sign * time.Duration(sec) * time.Second, nil
}

func atoi(s string) int {
	if s == "" {
		return 0
	}
	v, _ := strconv.Atoi(s)
	return v
}

// Truncate shortens s to at most n runes, marking the cut with an ellipsis.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
