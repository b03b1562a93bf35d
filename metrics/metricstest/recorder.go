// Package metricstest provides an in-memory metrics.PointWriter for tests.
package metricstest

import (
	"context"
	"dbmetrics/metrics"
	"sync"
)

// Recorder keeps every written point in order
type Recorder struct {
	mu     sync.Mutex
	points []metrics.Point
	closed bool

	// Err, when set, is returned by WritePoint after FailAfter successful writes
	Err       error
	FailAfter int
}

func (r *Recorder) WritePoint(_ context.Context, point metrics.Point) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.Err != nil && len(r.points) >= r.FailAfter {
		return r.Err
	}
	r.points = append(r.points, point)
	return nil
}

func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

// Points returns a copy of the recorded points
func (r *Recorder) Points() []metrics.Point {
	r.mu.Lock()
	defer r.mu.Unlock()
	points := make([]metrics.Point, len(r.points))
	copy(points, r.points)
	return points
}

// Measurement returns the recorded points of one measurement
func (r *Recorder) Measurement(name string) []metrics.Point {
	var points []metrics.Point
	for _, point := range r.Points() {
		if point.Measurement == name {
			points = append(points, point)
		}
	}
	return points
}

func (r *Recorder) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}
