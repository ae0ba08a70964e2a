// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package pmcounter

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"time"
)

// ReportEntry is the average power of one probe over the measurement window
type ReportEntry struct {
	Label string
	// Watts is the average power, (ΔE J) / (Δt s)
	Watts float64
	// Energy consumed during the window
	Energy Energy
	// Duration of the window as seen by this probe's counter
	Duration time.Duration
}

// Power returns the average power as a Power value
func (e ReportEntry) Power() Power {
	return FromWatts(e.Watts)
}

// Report computes one entry per probe that has both a start and an end sample,
// in probe order. It is best effort: a disabled set reports the pairs it has.
func (ps *ProbeSet) Report() []ReportEntry {
	n := min(len(ps.probes), len(ps.start), len(ps.end))
	entries := make([]ReportEntry, 0, n)
	for i := range n {
		begin, end := ps.start[i], ps.end[i]
		entries = append(entries, ReportEntry{
			Label:    ps.probes[i].Label,
			Watts:    AveragePower(begin, end),
			Energy:   FromJoules(end.Energy - begin.Energy),
			Duration: windowDuration(begin, end),
		})
	}
	return entries
}

// windowDuration is zero for a timestamp that went backwards or does not fit a
// time.Duration; counter wraparound is not handled.
func windowDuration(begin, end EnergySample) time.Duration {
	if end.Time < begin.Time || end.Time-begin.Time > uint64(math.MaxInt64/int64(time.Microsecond)) {
		return 0
	}
	return time.Duration(end.Time-begin.Time) * time.Microsecond
}

// WriteReport writes one "<label> <watts>" line per report entry and flushes
// once the whole report is written.
func (ps *ProbeSet) WriteReport(w io.Writer) error {
	return WriteEntries(w, ps.Report())
}

// WriteEntries writes entries in the report line format
func WriteEntries(w io.Writer, entries []ReportEntry) error {
	bw := bufio.NewWriter(w)
	for _, e := range entries {
		if _, err := fmt.Fprintf(bw, "%s %f\n", e.Label, e.Watts); err != nil {
			return err
		}
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	if s, ok := w.(interface{ Sync() error }); ok {
		// stdout may be a pipe or terminal where fsync is unsupported
		_ = s.Sync()
	}
	return nil
}
