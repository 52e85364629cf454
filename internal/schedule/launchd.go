package schedule

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// CalendarInterval is one launchd StartCalendarInterval entry.
// Weekday follows launchd numbering (0 and 7 are Sunday).
type CalendarInterval struct {
	Weekday int
	Hour    int
	Minute  int
}

// CalendarIntervals covers the US session seen from UTC+8: Monday through
// Thursday at 22:00-23:55, then Tuesday through Saturday at 00:00-05:55,
// every five minutes.
func CalendarIntervals() []CalendarInterval {
	var out []CalendarInterval
	for wd := 2; wd <= 7; wd++ {
		for _, hr := range hoursFor(wd) {
			for m := 0; m < 60; m += 5 {
				out = append(out, CalendarInterval{Weekday: wd, Hour: hr, Minute: m})
			}
		}
	}
	return out
}

func hoursFor(weekday int) []int {
	early := []int{0, 1, 2, 3, 4, 5}
	switch {
	case weekday == 2:
		return []int{22, 23}
	case weekday <= 5:
		return append([]int{22, 23}, early...)
	default:
		return early
	}
}

// RenderSnippet renders entries as plist dict lines, one per entry.
func RenderSnippet(entries []CalendarInterval) string {
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = fmt.Sprintf("    <dict><key>Weekday</key><integer>%d</integer><key>Hour</key><integer>%d</integer><key>Minute</key><integer>%d</integer></dict>",
			e.Weekday, e.Hour, e.Minute)
	}
	return strings.Join(lines, "\n")
}

// SnippetPath returns the dated snippet file under dir.
func SnippetPath(dir string, date time.Time) string {
	return filepath.Join(dir, date.Format("20060102")+"_snippet_StartCalendarInterval.xml")
}

// WriteSnippet renders the default intervals into the dated file under dir
// and returns its path.
func WriteSnippet(dir string, date time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create snippet dir: %w", err)
	}
	path := SnippetPath(dir, date)
	if err := os.WriteFile(path, []byte(RenderSnippet(CalendarIntervals())), 0o644); err != nil {
		return "", fmt.Errorf("write snippet: %w", err)
	}
	return path, nil
}
