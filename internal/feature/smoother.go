package feature

import "gonum.org/v1/gonum/mat"

// window — fixed-size circular buffer of feature rows. O(1) insert,
// single owner (the engine goroutine), no locking.
type window struct {
	rows [][]float64
	head int
	size int
}

func newWindow(capacity, dim int) *window {
	rows := make([][]float64, capacity)
	for i := range rows {
		rows[i] = make([]float64, dim)
	}
	return &window{rows: rows}
}

func (w *window) add(row []float64) {
	copy(w.rows[w.head], row)
	w.head = (w.head + 1) % len(w.rows)
	if w.size < len(w.rows) {
		w.size++
	}
}

func (w *window) full() bool { return w.size == len(w.rows) }

// mean returns the element-wise mean over every buffered row.
func (w *window) mean(dst []float64) {
	for j := range dst {
		dst[j] = 0
	}
	for i := 0; i < w.size; i++ {
		for j, v := range w.rows[i] {
			dst[j] += v
		}
	}
	for j := range dst {
		dst[j] /= float64(w.size)
	}
}

// Smoother ingests raw metric maps and emits the rolling-window mean
// of the derived feature vectors. While the window is warming up it
// emits nothing: the first N-1 ticks after startup produce no score.
type Smoother struct {
	builder *Builder
	win     *window
}

// NewSmoother returns a Smoother over the given builder with a window
// of windowSize samples.
func NewSmoother(builder *Builder, windowSize int) *Smoother {
	return &Smoother{
		builder: builder,
		win:     newWindow(windowSize, builder.Dim()),
	}
}

// Process builds x_raw from the metrics map, appends it to the window,
// and returns the smoothed vector once the window is full. ok is false
// while the buffer is still warming.
func (s *Smoother) Process(metrics map[string]float64) (x *mat.VecDense, ok bool) {
	raw := s.builder.Vector(metrics)
	s.win.add(raw.RawVector().Data)

	if !s.win.full() {
		return nil, false
	}

	out := make([]float64, s.builder.Dim())
	s.win.mean(out)
	return mat.NewVecDense(len(out), out), true
}
