package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	log "github.com/sirupsen/logrus"
	"golang.org/x/term"
)

// Console renders events to a writer. On a terminal the status line is
// redrawn in place; otherwise every event becomes its own line.
type Console struct {
	out         io.Writer
	interactive bool
	width       int
	lastLen     int
	lastLine    string
}

// NewConsole creates a console renderer for out. Terminal handling is only
// enabled when out is an *os.File attached to a TTY.
func NewConsole(out io.Writer) *Console {
	c := &Console{out: out, width: 80}
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		c.interactive = true
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
			c.width = w
		}
	}
	return c
}

// Interactive reports whether the console redraws lines in place.
func (c *Console) Interactive() bool {
	return c.interactive
}

// Render writes a single event.
func (c *Console) Render(ev Event) {
	if ev.Description != "" {
		c.breakLine()
		fmt.Fprintln(c.out, ev.Description)
	}
	line := c.line(ev)
	if line == "" {
		return
	}

	if !c.interactive {
		if line != c.lastLine {
			fmt.Fprintln(c.out, line)
			c.lastLine = line
		}
		return
	}

	line = truncate(line, c.width-1)
	n := utf8.RuneCountInString(line)
	pad := ""
	if c.lastLen > n {
		pad = strings.Repeat(" ", c.lastLen-n)
	}
	fmt.Fprintf(c.out, "\r%s%s", line, pad)
	c.lastLen = n
	c.lastLine = line
}

// Finish terminates any in-place line.
func (c *Console) Finish() {
	c.breakLine()
}

// Drain renders events from ch until it is closed.
func (c *Console) Drain(ch <-chan Event) {
	for ev := range ch {
		c.Render(ev)
	}
	c.Finish()
}

func (c *Console) breakLine() {
	if c.interactive && c.lastLen > 0 {
		fmt.Fprintln(c.out)
		c.lastLen = 0
	}
}

// truncate cuts s to at most limit runes.
func truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	i := 0
	for n := 0; n < limit; n++ {
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return s[:i]
}

func (c *Console) line(ev Event) string {
	if ev.Status == "" {
		return ""
	}
	if ev.Indeterminate {
		return ev.Status
	}
	return fmt.Sprintf("[%s] %s", bar(ev.Percent, 20), ev.Status)
}

func bar(pct float64, width int) string {
	filled := int(pct / 100 * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return strings.Repeat("#", filled) + strings.Repeat(".", width-filled)
}

// LogSink forwards events to the logger at debug level. Used when the
// console is disabled so progress still shows up in log files.
type LogSink struct {
	Logger log.FieldLogger
}

func (s LogSink) Emit(ev Event) {
	l := s.Logger
	if l == nil {
		l = log.StandardLogger()
	}
	fields := log.Fields{"percent": FormatPercent(ev.Percent)}
	if ev.Indeterminate {
		fields = log.Fields{"indeterminate": true}
	}
	msg := ev.Status
	if ev.Description != "" {
		msg = ev.Description
	}
	l.WithFields(fields).Debug(msg)
}

// Tee fans one event out to several sinks.
func Tee(sinks ...Sink) Sink {
	return Func(func(ev Event) {
		for _, s := range sinks {
			if s != nil {
				s.Emit(ev)
			}
		}
	})
}
