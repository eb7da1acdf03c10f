// Package matcher decides membership in the managed set via the
// configured command and title regular expressions.
package matcher

import (
	"fmt"
	"regexp"
)

// Matcher matches processes by command line and/or window title.
// A match on either pattern is sufficient. At least one pattern must
// be configured.
type Matcher struct {
	cmd   *regexp.Regexp
	title *regexp.Regexp
}

// New compiles the given patterns. Empty strings disable the
// corresponding check; both empty is a configuration error.
func New(cmdPattern, titlePattern string) (*Matcher, error) {
	if cmdPattern == "" && titlePattern == "" {
		return nil, fmt.Errorf("at least one of command or title pattern is required")
	}

	m := &Matcher{}
	var err error
	if cmdPattern != "" {
		if m.cmd, err = regexp.Compile(cmdPattern); err != nil {
			return nil, fmt.Errorf("invalid command pattern: %w", err)
		}
	}
	if titlePattern != "" {
		if m.title, err = regexp.Compile(titlePattern); err != nil {
			return nil, fmt.Errorf("invalid title pattern: %w", err)
		}
	}
	return m, nil
}

// MatchCommand reports whether the command line matches.
func (m *Matcher) MatchCommand(cmdline string) bool {
	return m.cmd != nil && m.cmd.MatchString(cmdline)
}

// MatchTitle reports whether the window title matches.
func (m *Matcher) MatchTitle(title string) bool {
	return m.title != nil && m.title.MatchString(title)
}

// Matches reports whether either the command line or the title matches.
func (m *Matcher) Matches(cmdline, title string) bool {
	return m.MatchCommand(cmdline) || m.MatchTitle(title)
}
