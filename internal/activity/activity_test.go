package activity

import "testing"

func TestStartFinishLifecycle(t *testing.T) {
	m := New(4)
	if _, ok := m.Get(0); ok {
		t.Fatalf("worker 0 should start with no activity")
	}

	m.Start(0, Leaf{StartedMS: 100, Label: "//foo:bar", Short: "bar"})
	leaf, ok := m.Get(0)
	if !ok || leaf.Label != "//foo:bar" {
		t.Fatalf("got %+v, %v, want the started leaf", leaf, ok)
	}
	if m.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", m.Len())
	}

	m.Finish(0)
	if _, ok := m.Get(0); ok {
		t.Fatalf("worker 0 should have no activity after Finish")
	}
	if m.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", m.Len())
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	m := New(0)
	m.Start(1, Leaf{Label: "a"})
	m.Start(2, Leaf{Label: "b"})

	snap := m.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("len(snap) = %d, want 2", len(snap))
	}

	snap[1] = Leaf{Label: "mutated"}
	m.Start(3, Leaf{Label: "c"})

	if leaf, _ := m.Get(1); leaf.Label != "a" {
		t.Fatalf("mutating a snapshot affected the live map: got %q", leaf.Label)
	}
	if len(snap) != 2 {
		t.Fatalf("a later Start grew a previously taken snapshot")
	}
}

func TestNewNegativeHint(t *testing.T) {
	m := New(-5)
	m.Start(0, Leaf{Label: "x"})
	if _, ok := m.Get(0); !ok {
		t.Fatalf("a negative hint should not prevent normal use")
	}
}
