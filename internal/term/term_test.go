package term

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
)

func TestDirtyTracksForeignWritesOnly(t *testing.T) {
	var out, err bytes.Buffer
	w := New(&out, &err, ^uintptr(0), ^uintptr(0))

	if w.IsDirtyStdout() || w.IsDirtyStderr() {
		t.Fatalf("fresh writer should not be dirty")
	}

	if err := w.WriteFrame("frame\n"); err != nil {
		t.Fatal(err)
	}
	if w.IsDirtyStderr() {
		t.Fatalf("WriteFrame must not mark stderr dirty")
	}

	if err := w.WriteReport("report\n"); err != nil {
		t.Fatal(err)
	}
	if w.IsDirtyStdout() {
		t.Fatalf("WriteReport must not mark stdout dirty")
	}

	if _, err := w.Stderr().Write([]byte("foreign\n")); err != nil {
		t.Fatal(err)
	}
	if !w.IsDirtyStderr() {
		t.Fatalf("foreign write through Stderr() must mark it dirty")
	}
}

func TestClearLines(t *testing.T) {
	if got := ClearLines(0); got != "" {
		t.Fatalf("ClearLines(0) = %q, want empty", got)
	}
	got := ClearLines(2)
	if !strings.Contains(got, ClearLine()) {
		t.Fatalf("ClearLines should contain ClearLine sequences: %q", got)
	}
}

// virtualScreen interprets the cursor-movement/clear escape sequences
// ClearLines emits against an in-memory grid of rows, so a test can assert
// on which rows actually got cleared and where the cursor ends up rather
// than just grepping for substrings.
type virtualScreen struct {
	rows []string
	cur  int
}

func newVirtualScreen(lines []string, startRow int) *virtualScreen {
	rows := append([]string(nil), lines...)
	return &virtualScreen{rows: rows, cur: startRow}
}

func (v *virtualScreen) apply(seq string) {
	for i := 0; i < len(seq); {
		if seq[i] != '\x1b' {
			i++
			continue
		}
		j := i + 1
		for j < len(seq) && (seq[j] < 'A' || seq[j] > 'Z') {
			j++
		}
		code := seq[i : j+1]
		n := 1
		if digits := code[2 : len(code)-1]; digits != "" {
			fmt.Sscanf(digits, "%d", &n)
		}
		switch code[len(code)-1] {
		case 'F', 'A':
			v.cur -= n
		case 'K':
			if v.cur >= 0 && v.cur < len(v.rows) {
				v.rows[v.cur] = ""
			}
		}
		i = j + 1
	}
}

func TestClearLinesErasesEveryFrameRowForMultiLineFrames(t *testing.T) {
	for n := 1; n <= 4; n++ {
		frame := make([]string, n)
		for i := range frame {
			frame[i] = fmt.Sprintf("line-%d", i)
		}
		// After printing an n-line frame (each line followed by "\n"), the
		// cursor sits on the blank row just below it, at index n.
		vs := newVirtualScreen(frame, n)
		vs.apply(ClearLines(n))

		for i, row := range vs.rows {
			if row != "" {
				t.Fatalf("n=%d: row %d not cleared, still %q", n, i, row)
			}
		}
		if vs.cur != 0 {
			t.Fatalf("n=%d: cursor ended at row %d, want 0 (the first frame row)", n, vs.cur)
		}
	}
}

func TestAsNoWrapTruncatesVisibleWidthOnly(t *testing.T) {
	colored := AsWarning("warning-text")
	got := AsNoWrap(colored, 7)
	// the ANSI escape bytes must survive even though visible width is clamped.
	if !strings.Contains(got, "\x1b[") {
		t.Fatalf("AsNoWrap stripped escape codes: %q", got)
	}
}
