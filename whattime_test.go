package whattime

import (
	"bytes"
	"context"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pgaskin/whattime/barproto"
	"github.com/pgaskin/whattime/compose"
	"github.com/pgaskin/whattime/config"
	"github.com/pgaskin/whattime/scheduler"
)

type chanSink chan string

func (c chanSink) Paint(text string) error {
	c <- text
	return nil
}

func code(n int) *int {
	return &n
}

func start(t *testing.T, opts Options) chanSink {
	t.Helper()
	sink := make(chanSink, 16)
	opts.Sink = sink
	if opts.Permit == nil {
		opts.Permit = func(scheduler.Permission, []string) bool { return true }
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, opts)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("run: %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Errorf("run did not return")
		}
	})
	return sink
}

func next(t *testing.T, sink chanSink) string {
	t.Helper()
	select {
	case text := <-sink:
		return text
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for paint")
		return ""
	}
}

func TestRunInitial(t *testing.T) {
	for _, granted := range []bool{true, false} {
		t.Run(strconv.FormatBool(granted), func(t *testing.T) {
			var args atomic.Value
			sink := start(t, Options{
				Config: config.Default(),
				Permit: func(scheduler.Permission, []string) bool { return granted },
				Runner: RunnerFunc(func(_ context.Context, a []string) scheduler.CommandResult {
					args.Store(strings.Join(a, " "))
					return scheduler.CommandResult{ExitCode: code(0), Stdout: []byte("2024.03.02 SatX14:30\n")}
				}),
			})
			if act, exp := next(t, sink), " 〈2024.03.02 Sat 〈14:30"; act != exp {
				t.Errorf("expected %q, got %q", exp, act)
			}
			if act, exp := args.Load(), "date +%Y.%m.%d %aX%H:%M"; act != exp {
				t.Errorf("expected command %q, got %q", exp, act)
			}
		})
	}
}

func TestRunFailure(t *testing.T) {
	for name, runner := range map[string]RunnerFunc{
		"Exit": func(context.Context, []string) scheduler.CommandResult {
			return scheduler.CommandResult{ExitCode: code(1), Stderr: []byte("date: invalid format")}
		},
		"Panic": func(context.Context, []string) scheduler.CommandResult {
			panic("oops")
		},
	} {
		t.Run(name, func(t *testing.T) {
			sink := start(t, Options{
				Config: config.Default(),
				Runner: runner,
			})
			if act := next(t, sink); act != scheduler.ErrorMarker {
				t.Errorf("expected error marker, got %q", act)
			}
		})
	}
}

func TestRunRefresh(t *testing.T) {
	c, err := config.Load(map[string]string{
		"interval_update": "0.05",
		"separator":       "",
		"date_format":     "",
	})
	if err != nil {
		t.Fatal(err)
	}
	var n atomic.Int64
	sink := start(t, Options{
		Config: c,
		Runner: RunnerFunc(func(context.Context, []string) scheduler.CommandResult {
			return scheduler.CommandResult{ExitCode: code(0), Stdout: []byte("dX" + strconv.FormatInt(n.Add(1), 10))}
		}),
	})
	for i := 1; i <= 3; i++ {
		if act, exp := next(t, sink), strconv.Itoa(i); act != exp {
			t.Errorf("expected %q, got %q", exp, act)
		}
	}
}

func TestRunNotify(t *testing.T) {
	var (
		notify = make(chan scheduler.Event, 1)
		resize = make(chan struct{}, 1)
	)
	sink := start(t, Options{
		Config: config.Default(),
		Runner: RunnerFunc(func(context.Context, []string) scheduler.CommandResult {
			return scheduler.CommandResult{ExitCode: code(0), Stdout: []byte("aXb")}
		}),
		Notify: notify,
		Resize: resize,
	})
	first := next(t, sink)
	notify <- barproto.Event{Name: Name, Button: 1}
	resize <- struct{}{}
	if act := next(t, sink); act != first {
		t.Errorf("expected repaint of %q, got %q", first, act)
	}
}

func TestRunNoSink(t *testing.T) {
	if err := Run(context.Background(), Options{}); err == nil {
		t.Errorf("expected error")
	}
}

func TestTerminalSink(t *testing.T) {
	var buf bytes.Buffer
	s := &TerminalSink{
		W:     &buf,
		Cols:  func() int { return 5 },
		Style: compose.DefaultStyle,
	}
	if err := s.Paint("ab"); err != nil {
		t.Fatal(err)
	}
	if act, exp := buf.String(), "\r\x1b[K   \x1b[30;37mab\x1b[0m"; act != exp {
		t.Errorf("expected %q, got %q", exp, act)
	}
}

func TestBarSink(t *testing.T) {
	var buf bytes.Buffer
	s := NewBarSink(&buf, false)
	if err := s.Paint(" 〈14:30"); err != nil {
		t.Fatal(err)
	}
	if err := s.Paint(scheduler.ErrorMarker); err != nil {
		t.Fatal(err)
	}
	exp := `{"version":1,"click_events":true}` + "\n[[]\n" +
		`,[{"full_text":" 〈14:30","name":"what-time","align":"right","separator":true}]` + "\n" +
		`,[{"full_text":"Plugin Error","name":"what-time","background":"#FF0000","align":"right","urgent":true,"separator":true}]` + "\n"
	if act := buf.String(); act != exp {
		t.Errorf("expected:\n%s\ngot:\n%s", exp, act)
	}
}

func TestReadBarEvents(t *testing.T) {
	ch := make(chan scheduler.Event, 4)
	in := "[\n" + `{"name":"what-time","button":1}` + "\n" + `,{"name":"other","button":2}` + "\n" + `,{"name":"what-time","button":3}` + "\n"
	if err := ReadBarEvents(strings.NewReader(in), ch); err != nil {
		t.Fatal(err)
	}
	close(ch)
	var buttons []int
	for ev := range ch {
		buttons = append(buttons, ev.(barproto.Event).Button)
	}
	if len(buttons) != 2 || buttons[0] != 1 || buttons[1] != 3 {
		t.Errorf("unexpected events %v", buttons)
	}
}

func TestExecRunner(t *testing.T) {
	ctx := context.Background()

	res := ExecRunner{}.Run(ctx, []string{"sh", "-c", "printf 'aXb'; printf err >&2; exit 3"})
	if res.ExitCode == nil || *res.ExitCode != 3 {
		t.Fatalf("expected exit code 3, got %+v", res)
	}
	if string(res.Stdout) != "aXb" || string(res.Stderr) != "err" {
		t.Errorf("unexpected output %+v", res)
	}

	res = ExecRunner{}.Run(ctx, []string{"/nonexistent/what-time"})
	if res.ExitCode != nil || res.Err == nil {
		t.Errorf("expected no exit code and an error, got %+v", res)
	}

	res = ExecRunner{Timeout: 50 * time.Millisecond}.Run(ctx, []string{"sleep", "5"})
	if res.Success() {
		t.Errorf("expected timeout to fail, got %+v", res)
	}
}
