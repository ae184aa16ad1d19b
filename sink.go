package whattime

import (
	"bufio"
	"io"
	"os"

	"github.com/pgaskin/whattime/barproto"
	"github.com/pgaskin/whattime/compose"
	"github.com/pgaskin/whattime/scheduler"
	"golang.org/x/sys/unix"
)

// TerminalSink repaints a single terminal line in place, right-aligning the
// text to the terminal width.
type TerminalSink struct {
	W     io.Writer
	Cols  func() int // if nil or non-positive, the text isn't padded
	Style compose.Style
}

// NewTerminalSink creates a TerminalSink for f. If cols is zero, the width is
// queried from f on every paint.
func NewTerminalSink(f *os.File, cols int) *TerminalSink {
	s := &TerminalSink{
		W:     f,
		Style: compose.DefaultStyle,
	}
	if cols > 0 {
		s.Cols = func() int { return cols }
	} else {
		s.Cols = func() int { return TerminalCols(f) }
	}
	return s
}

func (t *TerminalSink) Paint(text string) error {
	var cols int
	if t.Cols != nil {
		cols = t.Cols()
	}
	_, err := io.WriteString(t.W, "\r\x1b[K"+t.Style.Compose(text, cols))
	return err
}

// TerminalCols gets the width of the terminal f is attached to, returning 0 if
// it isn't a terminal.
func TerminalCols(f *os.File) int {
	ws, err := unix.IoctlGetWinsize(int(f.Fd()), unix.TIOCGWINSZ)
	if err != nil {
		return 0
	}
	return int(ws.Col)
}

// BarSink writes an i3bar status stream with a single block.
type BarSink struct {
	w *barproto.Writer
}

// NewBarSink creates a BarSink writing to w. If resume is true, the header is
// not written.
func NewBarSink(w io.Writer, resume bool) *BarSink {
	if resume {
		return &BarSink{w: barproto.ResumeWriter(w)}
	}
	return &BarSink{w: barproto.NewWriter(w, barproto.Init{ClickEvents: true})}
}

func (b *BarSink) Paint(text string) error {
	block := barproto.Block{
		Name:      Name,
		FullText:  text,
		Align:     "right",
		Separator: true,
	}
	if text == scheduler.ErrorMarker {
		block.Urgent = true
		block.Background = 0xFF0000FF
	}
	return b.w.WriteLine(block)
}

// ReadBarEvents parses i3bar click events from r and sends them to ch until r
// is closed.
func ReadBarEvents(r io.Reader, ch chan<- scheduler.Event) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if event, ok := barproto.ParseEventLine(sc.Bytes()); ok && event.Name == Name {
			ch <- event
		}
	}
	return sc.Err()
}
