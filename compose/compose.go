// Package compose right-aligns styled text within a fixed number of terminal
// columns.
package compose

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// Style is an SGR foreground/background pair.
type Style struct {
	FG int
	BG int
}

// DefaultStyle is used by Compose.
var DefaultStyle = Style{FG: 30, BG: 37}

// Wrap surrounds text with the escape codes for s, resetting all attributes
// afterwards.
func (s Style) Wrap(text string) string {
	b := make([]byte, 0, len(text)+16)
	b = append(b, "\x1b["...)
	b = strconv.AppendInt(b, int64(s.FG), 10)
	b = append(b, ';')
	b = strconv.AppendInt(b, int64(s.BG), 10)
	b = append(b, 'm')
	b = append(b, text...)
	b = append(b, "\x1b[0m"...)
	return string(b)
}

// Width approximates the number of columns text takes, counting ASCII as
// narrow and everything else as wide. It must be called on unstyled text.
func Width(text string) int {
	var n int
	for _, r := range text {
		if r < utf8.RuneSelf {
			n++
		} else {
			n += 2
		}
	}
	return n
}

// Pad right-aligns text within cols. Text which does not fit is returned as-is.
func Pad(text string, cols int) string {
	return padding(text, cols) + text
}

// Compose right-aligns text within cols using DefaultStyle.
func Compose(text string, cols int) string {
	return DefaultStyle.Compose(text, cols)
}

// Compose right-aligns text within cols, styling it with s.
func (s Style) Compose(text string, cols int) string {
	return padding(text, cols) + s.Wrap(text)
}

// padding returns the spaces needed to right-align text within cols.
func padding(text string, cols int) string {
	if w := Width(text); cols > w {
		return strings.Repeat(" ", cols-w)
	}
	return ""
}
