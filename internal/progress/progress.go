// Package progress defines the optional fractional-progress collaborator
// the frame composer consults, and the local estimator it falls back to
// for distributed builds.
package progress

// Estimator supplies fractional progress (0 to 1) for the three phases the
// frame composer can annotate with a percentage. A phase with no opinion
// returns ok=false and is rendered without a percentage.
type Estimator interface {
	ParseProgress() (frac float64, ok bool)
	ProjectGenProgress() (frac float64, ok bool)
	BuildProgress() (frac float64, ok bool)
}

// None is an Estimator with no opinion on anything.
type None struct{}

func (None) ParseProgress() (float64, bool)      { return 0, false }
func (None) ProjectGenProgress() (float64, bool) { return 0, false }
func (None) BuildProgress() (float64, bool)      { return 0, false }

// DistBuildProgress computes build progress from a distributed build's
// elapsed time and ETA: elapsed / (elapsed + eta). Returns ok=false when
// no ETA has been reported yet.
func DistBuildProgress(elapsedMS, etaMS int64) (frac float64, ok bool) {
	if etaMS <= 0 {
		return 0, false
	}
	total := float64(elapsedMS + etaMS)
	if total <= 0 {
		return 0, false
	}
	frac = float64(elapsedMS) / total
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}
	return frac, true
}
