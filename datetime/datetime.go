// Package datetime builds the date command and turns its output into the
// display text.
package datetime

import (
	"errors"
	"strings"

	"github.com/pgaskin/whattime/config"
)

// Delimiter separates the date and time in the command output. It must not
// appear in the output of either format.
const Delimiter = "X"

// Cmd is the external command used to get the date and time.
const Cmd = "date"

// ErrMalformed is returned by Parse if the output does not contain the
// delimiter.
var ErrMalformed = errors.New("malformed date output")

// DateTime is the raw date and time text from the command.
type DateTime struct {
	Date string
	Time string
}

// Command returns the argument vector which makes Cmd print the date and time
// separated by Delimiter.
func Command(c config.Config) []string {
	return []string{Cmd, "+" + c.DateFormat + Delimiter + c.TimeFormat}
}

// Parse splits the command output. Anything after a second delimiter is
// ignored, and the fields are not trimmed.
func Parse(output string) (DateTime, error) {
	f := strings.Split(output, Delimiter)
	if len(f) < 2 {
		return DateTime{}, ErrMalformed
	}
	return DateTime{
		Date: f[0],
		Time: f[1],
	}, nil
}

// Render prefixes each enabled field with the separator, date first.
func (dt DateTime) Render(c config.Config) string {
	var b strings.Builder
	if c.HasDate {
		b.WriteString(c.Separator)
		b.WriteString(dt.Date)
	}
	if c.HasTime {
		b.WriteString(c.Separator)
		b.WriteString(dt.Time)
	}
	return b.String()
}
