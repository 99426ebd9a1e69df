package progress

import "testing"

func TestNoneHasNoOpinion(t *testing.T) {
	var n None
	if _, ok := n.ParseProgress(); ok {
		t.Fatalf("None.ParseProgress should report ok=false")
	}
	if _, ok := n.ProjectGenProgress(); ok {
		t.Fatalf("None.ProjectGenProgress should report ok=false")
	}
	if _, ok := n.BuildProgress(); ok {
		t.Fatalf("None.BuildProgress should report ok=false")
	}
}

func TestDistBuildProgressNoETA(t *testing.T) {
	if _, ok := DistBuildProgress(5000, 0); ok {
		t.Fatalf("an ETA of 0 should report ok=false")
	}
	if _, ok := DistBuildProgress(5000, -1); ok {
		t.Fatalf("a negative ETA should report ok=false")
	}
}

func TestDistBuildProgressFraction(t *testing.T) {
	frac, ok := DistBuildProgress(3000, 1000)
	if !ok {
		t.Fatalf("expected ok=true with a positive ETA")
	}
	want := 0.75
	if frac != want {
		t.Fatalf("frac = %v, want %v", frac, want)
	}
}

func TestDistBuildProgressClampsToUnitRange(t *testing.T) {
	// elapsedMS already past the reported ETA still clamps to 1.0 rather
	// than overshooting.
	frac, ok := DistBuildProgress(9000, 1000)
	if !ok || frac != 1 {
		t.Fatalf("frac = %v, ok = %v, want 1, true", frac, ok)
	}
}
