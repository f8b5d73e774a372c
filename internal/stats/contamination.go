package stats

// IsContaminated reports whether the current sample is itself too
// anomalous to be absorbed into the baseline: S ≥ limit means the
// update must be skipped. The engine applies this gate before calling
// Model.Update, and Model.Update re-checks it.
func IsContaminated(severity, limit float64) bool {
	return severity >= limit
}
