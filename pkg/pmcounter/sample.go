// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package pmcounter

import (
	"errors"
	"fmt"
	"os"
	"strconv"
)

// ErrReadFailed is returned for any counter read that did not produce a sample.
// A vanished file and an unexpected layout are reported the same way.
var ErrReadFailed = errors.New("energy counter read failed")

// EnergySample is a single reading of a cumulative counter
type EnergySample struct {
	// Energy is the cumulative energy in joules
	Energy uint64
	// Time is the cumulative timestamp in microseconds
	Time uint64
}

// AveragePower returns the average power in watts between two samples of the
// same counter.
func AveragePower(begin, end EnergySample) float64 {
	deltaT := float64(end.Time-begin.Time) * 1e-6
	deltaE := end.Energy - begin.Energy
	return float64(deltaE) / deltaT
}

// readSample reads one sample from a pm_counters file. The layout is
//
//	<energy> J <timestamp> us
//
// where only the two integers are used. An integer ends at the first non-digit
// and whatever follows it up to the next blank is the skipped unit, so "10J"
// reads as 10.
func readSample(path string) (EnergySample, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return EnergySample{}, fmt.Errorf("%w: %w", ErrReadFailed, err)
	}
	return parseSample(string(data))
}

func parseSample(content string) (EnergySample, error) {
	sc := &sampleScanner{s: content}

	energy, err := sc.number()
	if err != nil {
		return EnergySample{}, fmt.Errorf("%w: invalid energy: %w", ErrReadFailed, err)
	}
	if sc.word() == "" {
		return EnergySample{}, fmt.Errorf("%w: missing energy unit", ErrReadFailed)
	}
	ts, err := sc.number()
	if err != nil {
		return EnergySample{}, fmt.Errorf("%w: invalid timestamp: %w", ErrReadFailed, err)
	}

	return EnergySample{Energy: energy, Time: ts}, nil
}

type sampleScanner struct {
	s   string
	pos int
}

func (sc *sampleScanner) skipSpace() {
	for sc.pos < len(sc.s) && isSpace(sc.s[sc.pos]) {
		sc.pos++
	}
}

// number reads an optionally '+' signed run of decimal digits
func (sc *sampleScanner) number() (uint64, error) {
	sc.skipSpace()
	start := sc.pos
	if sc.pos < len(sc.s) && sc.s[sc.pos] == '+' {
		sc.pos++
	}
	digits := sc.pos
	for sc.pos < len(sc.s) && sc.s[sc.pos] >= '0' && sc.s[sc.pos] <= '9' {
		sc.pos++
	}
	if sc.pos == digits {
		sc.pos = start
		return 0, fmt.Errorf("no digits at %q", sc.word())
	}
	return strconv.ParseUint(sc.s[digits:sc.pos], 10, 64)
}

// word reads the next run of non-blank bytes
func (sc *sampleScanner) word() string {
	sc.skipSpace()
	start := sc.pos
	for sc.pos < len(sc.s) && !isSpace(sc.s[sc.pos]) {
		sc.pos++
	}
	return sc.s[start:sc.pos]
}

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}
