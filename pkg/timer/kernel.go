// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package timer

import (
	"unsafe"
)

const (
	OpEventCreate      = "EventCreate"
	OpEventDestroy     = "EventDestroy"
	OpEventRecord      = "EventRecord"
	OpLaunchKernel     = "LaunchKernel"
	OpEventSynchronize = "EventSynchronize"
	OpEventElapsedTime = "EventElapsedTime"
)

// KernelLaunch describes a single kernel launch
type KernelLaunch struct {
	Func      Function
	Grid      Dim3
	Block     Dim3
	Args      []unsafe.Pointer
	SharedMem uint64
	Stream    Stream
}

// KernelTimer measures device execution time of kernel launches
type KernelTimer struct {
	rt Runtime
}

// NewKernelTimer returns a KernelTimer issuing calls to rt
func NewKernelTimer(rt Runtime) *KernelTimer {
	return &KernelTimer{rt: rt}
}

// Time launches the kernel exactly once on its stream between a start and a
// stop event, waits for the stop event and returns the elapsed device time in
// milliseconds. Both events are released before returning.
//
// There is no timeout; a kernel that never completes blocks forever.
func (kt *KernelTimer) Time(l KernelLaunch) (ms float32, err error) {
	start, err := kt.createEvent()
	if err != nil {
		return 0, err
	}
	defer kt.destroyEvent(start, &ms, &err)

	stop, err := kt.createEvent()
	if err != nil {
		return 0, err
	}
	defer kt.destroyEvent(stop, &ms, &err)

	if st := kt.rt.EventRecord(start, l.Stream); st != Success {
		return 0, newRuntimeError(kt.rt, OpEventRecord, st, 0)
	}
	if st := kt.rt.LaunchKernel(l.Func, l.Grid, l.Block, l.Args, l.SharedMem, l.Stream); st != Success {
		return 0, newRuntimeError(kt.rt, OpLaunchKernel, st, 0)
	}
	if st := kt.rt.EventRecord(stop, l.Stream); st != Success {
		return 0, newRuntimeError(kt.rt, OpEventRecord, st, 0)
	}
	if st := kt.rt.EventSynchronize(stop); st != Success {
		return 0, newRuntimeError(kt.rt, OpEventSynchronize, st, 0)
	}

	elapsed, st := kt.rt.EventElapsedTime(start, stop)
	if st != Success {
		return 0, newRuntimeError(kt.rt, OpEventElapsedTime, st, 0)
	}
	return elapsed, nil
}

func (kt *KernelTimer) createEvent() (Event, error) {
	e, st := kt.rt.EventCreate()
	if st != Success {
		return 0, newRuntimeError(kt.rt, OpEventCreate, st, 1)
	}
	return e, nil
}

// destroyEvent releases e; a failure is reported only if nothing failed before
func (kt *KernelTimer) destroyEvent(e Event, ms *float32, err *error) {
	st := kt.rt.EventDestroy(e)
	if st == Success || *err != nil {
		return
	}
	*ms = 0
	*err = newRuntimeError(kt.rt, OpEventDestroy, st, 0)
}
