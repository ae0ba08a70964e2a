// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package timer

import "unsafe"

// Status is a runtime return code; zero is success
type Status int

const Success Status = 0

// Event is an opaque timing marker handle
type Event uintptr

// Stream is an opaque execution stream handle; zero is the default stream
type Stream uintptr

// Function is an opaque device function handle
type Function uintptr

// Dim3 is a launch grid or block shape
type Dim3 struct {
	X, Y, Z uint32
}

// Dim returns a one dimensional shape
func Dim(n uint32) Dim3 {
	return Dim3{X: n, Y: 1, Z: 1}
}

// Runtime abstracts the accelerator runtime calls needed to time a kernel.
// Implementations wrap the vendor runtime (CUDA, HIP) and report failures as
// non-zero Status codes.
type Runtime interface {
	EventCreate() (Event, Status)
	EventDestroy(e Event) Status
	EventRecord(e Event, s Stream) Status
	LaunchKernel(fn Function, grid, block Dim3, args []unsafe.Pointer, sharedMem uint64, s Stream) Status
	// EventSynchronize blocks until the event has completed on the device
	EventSynchronize(e Event) Status
	// EventElapsedTime returns milliseconds between two completed events
	EventElapsedTime(start, stop Event) (float32, Status)
	ErrorString(st Status) string
}
