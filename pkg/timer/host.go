// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package timer

import (
	"time"

	"golang.org/x/sys/unix"
)

// Timeval is a wall-clock instant with microsecond resolution
type Timeval struct {
	Sec  int64
	Usec int64
}

// Since returns the milliseconds elapsed from start to tv. The microsecond
// delta may be negative when the seconds field carried.
func (tv Timeval) Since(start Timeval) float64 {
	return float64(tv.Usec-start.Usec)/1000 + float64(tv.Sec-start.Sec)*1000
}

// Clock returns the current wall-clock time
type Clock interface {
	Now() Timeval
}

// SystemClock reads the time with gettimeofday(2)
type SystemClock struct{}

func (SystemClock) Now() Timeval {
	var tv unix.Timeval
	if err := unix.Gettimeofday(&tv); err != nil {
		now := time.Now()
		return Timeval{Sec: now.Unix(), Usec: int64(now.Nanosecond() / 1000)}
	}
	return Timeval{Sec: int64(tv.Sec), Usec: int64(tv.Usec)}
}

// HostTimer measures wall-clock time around host functions
type HostTimer struct {
	clock Clock
}

// HostOptionFn configures a HostTimer
type HostOptionFn func(*HostTimer)

// WithClock sets the clock used by the HostTimer
func WithClock(c Clock) HostOptionFn {
	return func(ht *HostTimer) {
		ht.clock = c
	}
}

// NewHostTimer returns a HostTimer using the system clock unless overridden
func NewHostTimer(opts ...HostOptionFn) *HostTimer {
	ht := &HostTimer{clock: SystemClock{}}
	for _, opt := range opts {
		opt(ht)
	}
	return ht
}

// Time invokes f once and returns the elapsed milliseconds. A panic in f
// propagates to the caller.
func (ht *HostTimer) Time(f func()) float64 {
	start := ht.clock.Now()
	f()
	end := ht.clock.Now()
	return end.Since(start)
}

// TimeErr invokes f once and returns the elapsed milliseconds along with the
// error returned by f, unchanged.
func (ht *HostTimer) TimeErr(f func() error) (float64, error) {
	var err error
	ms := ht.Time(func() {
		err = f()
	})
	return ms, err
}

var defaultHostTimer = NewHostTimer()

// TimeFunction times f with the system clock
func TimeFunction(f func()) float64 {
	return defaultHostTimer.Time(f)
}

// TimeFunctionErr times f with the system clock and returns its error
func TimeFunctionErr(f func() error) (float64, error) {
	return defaultHostTimer.TimeErr(f)
}
