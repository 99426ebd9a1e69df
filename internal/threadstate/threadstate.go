// Package threadstate renders one status line per active worker,
// compressing the overflow into a single summary line when there are more
// active workers than the configured line budget.
package threadstate

import (
	"fmt"
	"strings"

	"golang.org/x/exp/slices"

	"github.com/distr1/dashboard/internal/activity"
	"github.com/distr1/dashboard/internal/clock"
)

// worker is one active worker's rendering inputs, collected from an
// activity snapshot.
type worker struct {
	id         int
	leaf       activity.Leaf
	accumulated int64 // elapsed time to render on the full line
}

// Render produces the ordered list of lines describing active workers.
//
// Policy (§4.J):
//   - threadCount = number of workers with a non-empty current activity.
//   - if threadCount > maxLines: render maxLines-1 full lines, then one
//     compressed line " |=> N MORE THREADS: <short> <short> ..." (or
//     " |=> N THREADS:" when maxLines == 1).
//   - ordering: descending accumulated time when alwaysSortByTime is set
//     or compression is in effect; otherwise ascending worker id.
func Render(snapshot map[int]activity.Leaf, nowMS int64, maxLines int, alwaysSortByTime bool, width int) []string {
	if len(snapshot) == 0 || maxLines <= 0 {
		return nil
	}
	workers := make([]worker, 0, len(snapshot))
	for id, leaf := range snapshot {
		workers = append(workers, worker{id: id, leaf: leaf, accumulated: nowMS - leaf.StartedMS})
	}

	threadCount := len(workers)
	compress := threadCount > maxLines

	if alwaysSortByTime || compress {
		slices.SortFunc(workers, func(a, b worker) int {
			return int(b.accumulated - a.accumulated) // descending
		})
	} else {
		slices.SortFunc(workers, func(a, b worker) int { return a.id - b.id })
	}

	if !compress {
		lines := make([]string, 0, len(workers))
		for _, w := range workers {
			lines = append(lines, fullLine(w, nowMS, width))
		}
		return padToWidest(lines, width)
	}

	fullCount := maxLines - 1
	if fullCount < 0 {
		fullCount = 0
	}
	lines := make([]string, 0, maxLines)
	for _, w := range workers[:fullCount] {
		lines = append(lines, fullLine(w, nowMS, width))
	}
	rest := workers[fullCount:]
	lines = append(lines, compressedLine(rest, maxLines, width))
	return padToWidest(lines, width)
}

func fullLine(w worker, nowMS int64, width int) string {
	line := fmt.Sprintf("  %s %s", clock.FormatElapsedMS(w.accumulated), w.leaf.Label)
	return clampWidth(line, width)
}

// compressedLine appends short tokens one at a time, stopping before any
// token that would push the line past width rather than slicing a token
// (or the line) apart — a dropped token still reads as a whole name.
func compressedLine(rest []worker, maxLines, width int) string {
	var prefix string
	if maxLines == 1 {
		prefix = fmt.Sprintf(" |=> %d THREADS:", len(rest))
	} else {
		prefix = fmt.Sprintf(" |=> %d MORE THREADS:", len(rest))
	}
	line := prefix
	for _, w := range rest {
		if w.leaf.Short == "" {
			continue
		}
		candidate := line + " " + w.leaf.Short
		if width > 0 && runeLen(candidate) > width {
			break
		}
		line = candidate
	}
	return line
}

// clampWidth cuts s to at most width runes, never splitting a multi-byte
// rune the way a raw byte slice would.
func clampWidth(s string, width int) string {
	if width <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width])
}

func runeLen(s string) int { return len([]rune(s)) }

// padToWidest pads every line with trailing spaces to the longest line's
// rune width (capped at width, if positive), so stale characters from a
// previous, longer frame are overwritten even on a tick that skips the
// clear sequence.
func padToWidest(lines []string, width int) []string {
	widest := 0
	for _, l := range lines {
		if n := runeLen(l); n > widest {
			widest = n
		}
	}
	if width > 0 && widest > width {
		widest = width
	}
	out := make([]string, len(lines))
	for i, l := range lines {
		if n := runeLen(l); n < widest {
			l += strings.Repeat(" ", widest-n)
		}
		out[i] = l
	}
	return out
}
