package analytics

import "math"

// RollingWindow is a fixed-capacity circular buffer of spread values with
// incrementally maintained sum and sum-of-squares, giving O(1) mean/std per
// update. Evicting the oldest value subtracts its contribution exactly, so
// the aggregates always match a from-scratch pass over the retained values
// (see Recompute, used by tests to catch numerical drift).
type RollingWindow struct {
	buf   []float64
	head  int
	n     int
	sum   float64
	sumSq float64
}

// NewRollingWindow creates a window holding up to capacity values.
func NewRollingWindow(capacity int) *RollingWindow {
	return &RollingWindow{buf: make([]float64, capacity)}
}

// Push appends v, evicting the oldest value once the window is full.
func (w *RollingWindow) Push(v float64) {
	if w.n == len(w.buf) {
		old := w.buf[w.head]
		w.sum -= old
		w.sumSq -= old * old
		w.buf[w.head] = v
		w.head = (w.head + 1) % len(w.buf)
	} else {
		w.buf[(w.head+w.n)%len(w.buf)] = v
		w.n++
	}
	w.sum += v
	w.sumSq += v * v
}

// Len returns the number of values currently held.
func (w *RollingWindow) Len() int { return w.n }

// Full reports whether the window has reached its configured size.
func (w *RollingWindow) Full() bool { return w.n == len(w.buf) }

// Mean returns the rolling mean, or 0 when empty.
func (w *RollingWindow) Mean() float64 {
	if w.n == 0 {
		return 0
	}
	return w.sum / float64(w.n)
}

// Std returns the rolling sample standard deviation, or 0 when fewer than
// two values are held.
func (w *RollingWindow) Std() float64 {
	if w.n < 2 {
		return 0
	}
	n := float64(w.n)
	mean := w.sum / n
	variance := (w.sumSq - n*mean*mean) / (n - 1)
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance)
}

// Values returns the retained values, oldest first.
func (w *RollingWindow) Values() []float64 {
	out := make([]float64, w.n)
	for i := 0; i < w.n; i++ {
		out[i] = w.buf[(w.head+i)%len(w.buf)]
	}
	return out
}

// Recompute recalculates mean and std from scratch over the retained values.
// The incremental aggregates must agree with it to floating-point tolerance.
func (w *RollingWindow) Recompute() (mean, std float64) {
	if w.n == 0 {
		return 0, 0
	}
	sum := 0.0
	for i := 0; i < w.n; i++ {
		sum += w.buf[(w.head+i)%len(w.buf)]
	}
	mean = sum / float64(w.n)
	if w.n < 2 {
		return mean, 0
	}
	ss := 0.0
	for i := 0; i < w.n; i++ {
		d := w.buf[(w.head+i)%len(w.buf)] - mean
		ss += d * d
	}
	return mean, math.Sqrt(ss / float64(w.n-1))
}
