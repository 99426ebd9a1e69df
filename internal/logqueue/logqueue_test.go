package logqueue

import "testing"

func TestDrainAllIsOrderedAndEmpties(t *testing.T) {
	q := New()
	q.Push(Event{Level: Info, Message: "a"})
	q.Push(Event{Level: Warn, Message: "b"})
	got := q.DrainAll()
	if len(got) != 2 || got[0].Message != "a" || got[1].Message != "b" {
		t.Fatalf("unexpected drain order: %+v", got)
	}
	if got := q.DrainAll(); got != nil {
		t.Fatalf("second drain should be empty, got %+v", got)
	}
}

func TestRenderSplitsOnNewlineForAccurateLineCount(t *testing.T) {
	res := Render([]Event{{Level: Info, Message: "line1\nline2\nline3"}})
	if len(res.Lines) != 3 {
		t.Fatalf("got %d lines, want 3", len(res.Lines))
	}
}

func TestRenderLatchesWarningAndError(t *testing.T) {
	res := Render([]Event{{Level: Warn, Message: "w"}, {Level: Error, Message: "e"}})
	if !res.SawWarning || !res.SawError {
		t.Fatalf("expected both latches set: %+v", res)
	}
}

func TestRenderPrebakedPassesThroughUnmodified(t *testing.T) {
	res := Render([]Event{{Level: Error, Message: "\x1b[31mboom\x1b[0m", ANSIPrebaked: true}})
	if res.Lines[0] != "\x1b[31mboom\x1b[0m" {
		t.Fatalf("prebaked message should pass through unchanged, got %q", res.Lines[0])
	}
}
