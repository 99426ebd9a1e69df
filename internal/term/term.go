// Package term wraps stdout and stderr with ANSI helpers and tracks
// whether a stream has been written to by anyone other than the frame
// driver itself ("dirty"). Dirty tracking does not depend on whether a
// stream is a terminal; IsTerminal is a separate isatty probe.
package term

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"golang.org/x/sys/unix"
)

const defaultWidth = 120

// Writer wraps the two output streams the dashboard shares with foreign
// writers (sub-processes, library logs). WriteFrame and WriteReport are the
// engine's own sanctioned write paths and never mark a stream dirty; Stdout
// and Stderr are the general-purpose io.Writer views handed to anything
// else, and every write through them does mark the corresponding stream
// dirty.
type Writer struct {
	stdout *stream
	stderr *stream
}

type stream struct {
	mu    sync.Mutex
	w     io.Writer
	fd    uintptr
	dirty atomic.Bool
}

func (s *stream) Write(p []byte) (int, error) {
	s.dirty.Store(true)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

func (s *stream) writeQuiet(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

// New wraps the given stdout/stderr writers. fdStdout/fdStderr are the
// underlying file descriptors, used for isatty and window-size queries;
// pass -1 when the writer is not backed by a real fd (e.g. in tests).
func New(stdout, stderr io.Writer, fdStdout, fdStderr uintptr) *Writer {
	return &Writer{
		stdout: &stream{w: stdout, fd: fdStdout},
		stderr: &stream{w: stderr, fd: fdStderr},
	}
}

// Stdout returns the general-purpose stdout view. Writes through it mark
// the stream dirty.
func (w *Writer) Stdout() io.Writer { return w.stdout }

// Stderr returns the general-purpose stderr view. Writes through it mark
// the stream dirty.
func (w *Writer) Stderr() io.Writer { return w.stderr }

// WriteFrame emits a rendered frame on stderr without marking it dirty.
// Only the frame driver may call this.
func (w *Writer) WriteFrame(s string) error {
	_, err := w.stderr.writeQuiet([]byte(s))
	return err
}

// WriteReport emits the final test report on stdout without marking it
// dirty. Only the test aggregator may call this.
func (w *Writer) WriteReport(s string) error {
	_, err := w.stdout.writeQuiet([]byte(s))
	return err
}

// IsDirtyStdout reports whether anything other than WriteReport has
// written to stdout.
func (w *Writer) IsDirtyStdout() bool { return w.stdout.dirty.Load() }

// IsDirtyStderr reports whether anything other than WriteFrame has
// written to stderr.
func (w *Writer) IsDirtyStderr() bool { return w.stderr.dirty.Load() }

// IsTerminal reports whether stderr (the frame stream) is attached to a
// real terminal. The frame driver does not consult it: frames are written
// whether or not stderr is a terminal.
func (w *Writer) IsTerminal() bool {
	return isatty.IsTerminal(w.stderr.fd) || isatty.IsCygwinTerminal(w.stderr.fd)
}

// Width returns the current terminal column width of stderr, falling back
// to defaultWidth when the stream isn't a real tty (e.g. redirected to a
// file, or under test).
func (w *Writer) Width() int {
	ws, err := unix.IoctlGetWinsize(int(w.stderr.fd), unix.TIOCGWINSZ)
	if err != nil || ws.Col == 0 {
		return defaultWidth
	}
	return int(ws.Col)
}

// CursorPreviousLine returns the ANSI sequence moving the cursor up n
// lines and to the start of that line.
func CursorPreviousLine(n int) string {
	if n <= 0 {
		return ""
	}
	return fmt.Sprintf("\x1b[%dF", n)
}

// ClearLine returns the ANSI sequence erasing the current line.
func ClearLine() string {
	return "\x1b[2K"
}

// ClearLines returns the sequence clearing n previously-printed lines. The
// cursor starts on the blank row just below the last printed line (where a
// trailing "\n" left it) and must end at the start of the first printed
// line, with all n lines erased. Moving up and clearing in the same step,
// n times, gets there; clearing before moving (or jumping the whole
// distance at once) erases the wrong rows and over- or under-shoots by
// exactly n-1 lines.
func ClearLines(n int) string {
	if n <= 0 {
		return ""
	}
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteString(CursorPreviousLine(1))
		b.WriteString(ClearLine())
	}
	return b.String()
}

var (
	warnColor  = color.New(color.FgYellow)
	errorColor = color.New(color.FgRed, color.Bold)
)

// The frame itself is made of ANSI sequences, so the semantic colors are
// emitted unconditionally rather than depending on whether stdout is a tty.
func init() {
	warnColor.EnableColor()
	errorColor.EnableColor()
}

// AsWarning wraps s in the warning semantic color.
func AsWarning(s string) string { return warnColor.Sprint(s) }

// AsError wraps s in the error semantic color.
func AsError(s string) string { return errorColor.Sprint(s) }

// AsNoWrap truncates s to width columns (accounting for the embedded ANSI
// color codes color.New emits, which do not occupy columns), so a long
// line never wraps onto a second terminal row and desynchronizes the
// frame's line count.
func AsNoWrap(s string, width int) string {
	if width <= 0 {
		return s
	}
	visible := 0
	var b strings.Builder
	inEscape := false
	for _, r := range s {
		if r == '\x1b' {
			inEscape = true
		}
		if !inEscape {
			if visible >= width {
				continue
			}
			visible++
		}
		b.WriteRune(r)
		if inEscape && r == 'm' {
			inEscape = false
		}
	}
	return b.String()
}
