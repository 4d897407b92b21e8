package transcode

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FormatTime renders seconds as MM:SS.cc. Negative values render as zero.
func FormatTime(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}

	mins := int(seconds / 60)
	secs := int(math.Mod(seconds, 60))
	cents := int((seconds - math.Floor(seconds)) * 100)

	return fmt.Sprintf("%02d:%02d.%02d", mins, secs, cents)
}

// ParseTime reads the MM:SS.cc form produced by FormatTime. The fraction is
// optional. Anything malformed yields 0.
func ParseTime(s string) float64 {
	mins, rest, ok := strings.Cut(s, ":")
	if !ok {
		return 0
	}

	secs, cents, _ := strings.Cut(rest, ".")
	if cents == "" {
		cents = "0"
	}

	m, err := strconv.Atoi(mins)
	if err != nil || m < 0 {
		return 0
	}
	sec, err := strconv.Atoi(secs)
	if err != nil || sec < 0 {
		return 0
	}
	c, err := strconv.Atoi(cents)
	if err != nil || c < 0 {
		return 0
	}

	return float64(m*60+sec) + float64(c)/100
}
