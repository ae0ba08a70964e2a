// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package timer

import (
	"fmt"
	"time"
	"unsafe"
)

// Status codes returned by FakeRuntime; the values follow the CUDA runtime
const (
	ErrorInvalidValue          Status = 1
	ErrorMemoryAllocation      Status = 2
	ErrorInvalidResourceHandle Status = 400
	ErrorNotReady              Status = 600
	ErrorLaunchFailure         Status = 719
)

var fakeErrorStrings = map[Status]string{
	Success:                    "no error",
	ErrorInvalidValue:          "invalid argument",
	ErrorMemoryAllocation:      "out of memory",
	ErrorInvalidResourceHandle: "invalid resource handle",
	ErrorNotReady:              "device not ready",
	ErrorLaunchFailure:         "unspecified launch failure",
}

// FakeRuntime is an in-process Runtime with a simulated device clock. Every
// launched kernel advances the device clock by its configured duration. It
// records the sequence of calls and can fail a chosen operation.
type FakeRuntime struct {
	// Durations maps a function handle to its simulated execution time
	Durations map[Function]time.Duration
	// DefaultDuration is used for functions missing from Durations
	DefaultDuration time.Duration

	// FailOp names the operation to fail once; FailAfter skips that many
	// successful calls of FailOp first
	FailOp     string
	FailAfter  int
	FailStatus Status

	calls    []string
	next     Event
	live     map[Event]bool
	recorded map[Event]time.Duration
	device   time.Duration
}

var _ Runtime = (*FakeRuntime)(nil)

// NewFakeRuntime returns a FakeRuntime where every kernel takes d
func NewFakeRuntime(d time.Duration) *FakeRuntime {
	return &FakeRuntime{
		Durations:       map[Function]time.Duration{},
		DefaultDuration: d,
		live:            map[Event]bool{},
		recorded:        map[Event]time.Duration{},
	}
}

func (f *FakeRuntime) fail(op string) (Status, bool) {
	f.calls = append(f.calls, op)
	if f.FailOp != op {
		return Success, false
	}
	if f.FailAfter > 0 {
		f.FailAfter--
		return Success, false
	}
	f.FailOp = ""
	st := f.FailStatus
	if st == Success {
		st = ErrorInvalidValue
	}
	return st, true
}

func (f *FakeRuntime) EventCreate() (Event, Status) {
	if st, failed := f.fail(OpEventCreate); failed {
		return 0, st
	}
	f.next++
	f.live[f.next] = true
	return f.next, Success
}

func (f *FakeRuntime) EventDestroy(e Event) Status {
	if st, failed := f.fail(OpEventDestroy); failed {
		return st
	}
	if !f.live[e] {
		return ErrorInvalidResourceHandle
	}
	delete(f.live, e)
	delete(f.recorded, e)
	return Success
}

func (f *FakeRuntime) EventRecord(e Event, _ Stream) Status {
	if st, failed := f.fail(OpEventRecord); failed {
		return st
	}
	if !f.live[e] {
		return ErrorInvalidResourceHandle
	}
	f.recorded[e] = f.device
	return Success
}

func (f *FakeRuntime) LaunchKernel(fn Function, _, _ Dim3, _ []unsafe.Pointer, _ uint64, _ Stream) Status {
	if st, failed := f.fail(OpLaunchKernel); failed {
		return st
	}
	d, ok := f.Durations[fn]
	if !ok {
		d = f.DefaultDuration
	}
	f.device += d
	return Success
}

func (f *FakeRuntime) EventSynchronize(e Event) Status {
	if st, failed := f.fail(OpEventSynchronize); failed {
		return st
	}
	if _, ok := f.recorded[e]; !ok {
		return ErrorInvalidResourceHandle
	}
	return Success
}

func (f *FakeRuntime) EventElapsedTime(start, stop Event) (float32, Status) {
	if st, failed := f.fail(OpEventElapsedTime); failed {
		return 0, st
	}
	t0, ok0 := f.recorded[start]
	t1, ok1 := f.recorded[stop]
	if !ok0 || !ok1 {
		return 0, ErrorNotReady
	}
	return float32(float64(t1-t0) / float64(time.Millisecond)), Success
}

func (f *FakeRuntime) ErrorString(st Status) string {
	if s, ok := fakeErrorStrings[st]; ok {
		return s
	}
	return fmt.Sprintf("unknown error %d", st)
}

// Calls returns the operations invoked so far, in order
func (f *FakeRuntime) Calls() []string {
	return append([]string(nil), f.calls...)
}

// LiveEvents returns the number of created but not destroyed events
func (f *FakeRuntime) LiveEvents() int {
	return len(f.live)
}
