// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package pmcounter

// ProbeDescriptor binds a counter file to the domain it measures
type ProbeDescriptor struct {
	// Path is relative to the sysfs mount point
	Path string
	// Label is the domain name used in reports
	Label string
}

// CounterDir is the pm_counters directory relative to the sysfs mount point
const CounterDir = "cray/pm_counters"

// catalog lists every counter published by the supported HPE Cray EX node types.
// A node only exposes a subset:
//
//	gh200: energy, accel[0-3]_energy, cpu[0-3]_energy, cpu_energy
//	a100:  energy, accel[0-3]_energy, cpu_energy, memory_energy
//	mi200: energy, accel[0-3]_energy, cpu_energy, memory_energy
//	zen2:  energy, cpu_energy, memory_energy
var catalog = []ProbeDescriptor{
	{CounterDir + "/energy", "total"},
	{CounterDir + "/memory_energy", "memory"},
	{CounterDir + "/cpu_energy", "cpu"},
	{CounterDir + "/accel0_energy", "gpu0"},
	{CounterDir + "/accel1_energy", "gpu1"},
	{CounterDir + "/accel2_energy", "gpu2"},
	{CounterDir + "/accel3_energy", "gpu3"},
	{CounterDir + "/cpu0_energy", "cpu0"},
	{CounterDir + "/cpu1_energy", "cpu1"},
	{CounterDir + "/cpu2_energy", "cpu2"},
	{CounterDir + "/cpu3_energy", "cpu3"},
}

// Catalog returns a copy of the built-in probe catalog
func Catalog() []ProbeDescriptor {
	ret := make([]ProbeDescriptor, len(catalog))
	copy(ret, catalog)
	return ret
}
