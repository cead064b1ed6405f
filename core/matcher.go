package core

import (
	"regexp"
	"strings"
)

// Matcher is a compiled removal pattern. Build it with the pattern package;
// it is not modified after construction.
type Matcher struct {
	Source          string // pattern as supplied, used for reporting
	IsRegex         bool
	CaseInsensitive bool
	Expr            *regexp.Regexp
}

// Remove deletes every non-overlapping match of m from text in a single pass
// and returns the result with the number of deletions. Empty matches are not
// counted since deleting them changes nothing.
func (m Matcher) Remove(text string) (string, int) {
	if m.Expr == nil || text == "" {
		return text, 0
	}

	locs := m.Expr.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return text, 0
	}

	var b strings.Builder
	b.Grow(len(text))
	last, n := 0, 0
	for _, loc := range locs {
		if loc[0] == loc[1] {
			continue
		}
		b.WriteString(text[last:loc[0]])
		last = loc[1]
		n++
	}
	if n == 0 {
		return text, 0
	}
	b.WriteString(text[last:])
	return b.String(), n
}

// String returns the source pattern, shortened for log lines.
func (m Matcher) String() string {
	const max = 50
	if len(m.Source) <= max {
		return m.Source
	}
	return m.Source[:max] + "..."
}
