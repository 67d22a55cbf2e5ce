package plugin

import "strings"

const recentSeparator = "<br/>"

// RecentLog keeps the two most recently blocked entries.
type RecentLog struct {
	current  string
	previous string
}

// Push stores line as the current entry. A line equal to the current entry
// is ignored. It reports whether the log shifted.
func (l *RecentLog) Push(line string) bool {
	line = strings.TrimSpace(line)
	if line == l.current {
		return false
	}
	l.previous = l.current
	l.current = line
	return true
}

func (l *RecentLog) Display() string {
	return l.current + recentSeparator + l.previous
}
