// Package barproto implements the subset of the i3bar protocol needed to show
// the widget as a single block.
//
// https://i3wm.org/docs/i3bar-protocol.html
package barproto

import (
	"io"
	"slices"
	"strconv"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/tidwall/gjson"
)

const Version = 1 // i3 v4.3+

// Init represents an i3bar initialization message.
type Init struct {
	ClickEvents bool
}

func (x Init) MarshalJSON() ([]byte, error) {
	return x.AppendJSON(nil), nil
}

func (x Init) AppendJSON(s []byte) []byte {
	s = append(s, `{"version":`...)
	s = strconv.AppendInt(s, int64(Version), 10)
	if x.ClickEvents {
		s = append(s, `,"click_events":true`...)
	}
	s = append(s, '}')
	return s
}

// Event represents an i3bar click event.
type Event struct {
	Name      string
	Instance  string
	Button    int // xproto.ButtonIndex*
	Modifiers int // xproto.ModMask*
	X         int
	Y         int
}

// FromJSON parses b without any error checking.
func (e *Event) FromJSON(b []byte) {
	var event Event
	gjson.ParseBytes(b).ForEach(func(key, value gjson.Result) bool {
		switch key.Str {
		case "name":
			event.Name = value.Str
		case "instance":
			event.Instance = value.Str
		case "button":
			event.Button = int(value.Int())
		case "modifiers":
			value.ForEach(func(_, value gjson.Result) bool {
				switch value.Str {
				case "Shift":
					event.Modifiers |= xproto.ModMaskShift
				case "Control":
					event.Modifiers |= xproto.ModMaskControl
				case "Mod1": // Alt
					event.Modifiers |= xproto.ModMask1
				case "Mod4": // Super
					event.Modifiers |= xproto.ModMask4
				}
				return true
			})
		case "x":
			event.X = int(value.Int())
		case "y":
			event.Y = int(value.Int())
		}
		return true
	})
	*e = event
}

// ParseEventLine parses a line from the infinite click event array, returning
// false if it isn't an event.
func ParseEventLine(line []byte) (Event, bool) {
	if len(line) != 0 && (line[0] == '[' || line[0] == ',') {
		line = line[1:]
	}
	if len(line) == 0 || line[0] != '{' || line[len(line)-1] != '}' {
		return Event{}, false
	}
	var event Event
	event.FromJSON(line)
	return event, true
}

// Block represents an i3bar block.
type Block struct {
	Name       string // optional, passed as-is for events
	FullText   string // text
	Color      uint32 // 0xRRGGBBAA (AA should be 0xFF for solid colors) (0x00000000 is treated as i3bar's default)
	Background uint32 // ^
	Align      string // left|center|right, used if smaller than MinWidth
	MinWidth   int    // pixels (0 is none)
	Urgent     bool   // used by i3bar
	Separator  bool   // whether to draw a separator line after the block
}

func (b Block) MarshalJSON() ([]byte, error) {
	return b.AppendJSON(nil), nil
}

func (b Block) AppendJSON(s []byte) []byte {
	s = append(s, `{"full_text":`...)
	s = jsonString(s, b.FullText)
	if v := b.Name; v != "" {
		s = append(s, `,"name":`...)
		s = jsonString(s, v)
	}
	if v := b.Color; v != 0 {
		s = append(s, `,"color":"`...)
		s = hexColor(s, v)
		s = append(s, '"')
	}
	if v := b.Background; v != 0 {
		s = append(s, `,"background":"`...)
		s = hexColor(s, v)
		s = append(s, '"')
	}
	if v := b.MinWidth; v != 0 {
		s = append(s, `,"min_width":`...)
		s = strconv.AppendInt(s, int64(v), 10)
	}
	if v := b.Align; v != "" {
		s = append(s, `,"align":`...)
		s = jsonString(s, v)
	}
	if b.Urgent {
		s = append(s, `,"urgent":true`...)
	}
	if b.Separator {
		s = append(s, `,"separator":true`...)
	} else {
		s = append(s, `,"separator":false`...)
	}
	s = append(s, '}')
	return s
}

// Writer writes the i3bar status stream.
type Writer struct {
	w    io.Writer
	buf  []byte
	init bool
}

// NewWriter creates a new Writer. The header is written with the first line.
func NewWriter(w io.Writer, init Init) *Writer {
	return &Writer{
		w:   w,
		buf: append(init.AppendJSON(nil), "\n[[]\n"...),
	}
}

// ResumeWriter creates a Writer for a stream which has already been started by
// another process.
func ResumeWriter(w io.Writer) *Writer {
	return &Writer{w: w, init: true}
}

// WriteLine writes a status line.
func (w *Writer) WriteLine(blocks ...Block) error {
	if w.init {
		w.buf = w.buf[:0]
	}
	w.init = true
	w.buf = append(w.buf, ",["...)
	for i, b := range blocks {
		if i != 0 {
			w.buf = append(w.buf, ',')
		}
		w.buf = b.AppendJSON(w.buf)
	}
	w.buf = append(w.buf, "]\n"...)
	_, err := w.w.Write(w.buf)
	return err
}

func hexColor(b []byte, rrggbbaa uint32) []byte {
	const hex = "0123456789ABCDEF"
	b = slices.Grow(b, 9)
	b = append(b, '#')
	for shift := 28; shift >= 8; shift -= 4 {
		b = append(b, hex[(rrggbbaa>>shift)&0xF])
	}
	if rrggbbaa&0xFF != 0xFF {
		b = append(b, hex[(rrggbbaa>>4)&0xF])
		b = append(b, hex[(rrggbbaa>>0)&0xF])
	}
	return b
}

func jsonString[T ~[]byte | ~string](b []byte, s T) []byte {
	b = slices.Grow(b, len(s)+2)
	b = append(b, '"')
	x := 0 // note: this won't break utf-8 since we only check for < 0x20
	for i := 0; i < len(s); {
		if c := s[i]; c < 0x20 || c == '\\' || c == '"' {
			b = append(b, s[x:i]...)
			switch c {
			case '\\', '"':
				b = append(b, '\\', c)
			case '\n':
				b = append(b, '\\', 'n')
			case '\r':
				b = append(b, '\\', 'r')
			case '\t':
				b = append(b, '\\', 't')
			default:
				b = append(b, '\\', 'u', '0', '0', "0123456789abcdef"[c>>4], "0123456789abcdef"[c&0xF])
			}
			i++
			x = i
			continue
		}
		i++
	}
	b = append(b, s[x:]...)
	b = append(b, '"')
	return b
}
