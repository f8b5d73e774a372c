package stats

// DriftDetector runs a one-sided CUSUM on the severity stream:
//
//	C_t = max(0, C_{t-1} + (S_t − k))
//
// with slack k absorbing the benign severity floor. When C_t exceeds
// the alarm threshold H a drift event is reported and the statistic
// resets to zero so consecutive events require fresh evidence.
type DriftDetector struct {
	c         float64
	k         float64
	threshold float64
}

// NewDriftDetector returns a detector with slack k and threshold H.
func NewDriftDetector(k, threshold float64) *DriftDetector {
	return &DriftDetector{k: k, threshold: threshold}
}

// Update folds one severity sample into the statistic and reports
// whether a drift event fired on this tick.
func (d *DriftDetector) Update(severity float64) bool {
	d.c += severity - d.k
	if d.c < 0 {
		d.c = 0
	}

	drift := d.c > d.threshold
	if drift {
		d.c = 0
	}
	return drift
}

// Value returns the current CUSUM statistic.
func (d *DriftDetector) Value() float64 { return d.c }
