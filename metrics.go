package main

import "context"

// Probe reads live host state. Implementations never fail as a whole: a
// facet that cannot be read is reported as absent (empty string, nil
// pointer or empty slice).
type Probe interface {
	Sample(ctx context.Context) HostFacts
}

// HostFacts holds raw, unformatted host telemetry as reported by a Probe.
type HostFacts struct {
	OS        OSFacts
	CPUs      []CPUFacts
	Memory    MemoryFacts
	Disks     []DiskFacts
	Sensors   []SensorFacts
	Networks  []NetworkFacts
	Processes []ProcessFacts
}

type OSFacts struct {
	Name          string
	Version       string
	KernelVersion string
}

type CPUFacts struct {
	Name         string
	Brand        string
	FrequencyMHz uint64
}

// MemoryFacts values are in bytes.
type MemoryFacts struct {
	Total     uint64
	Used      uint64
	SwapTotal uint64
	SwapUsed  uint64
}

type DiskFacts struct {
	Kind       string
	Name       string
	FileSystem string
	MountPoint string
	Total      uint64
	Available  uint64
	Removable  bool
}

// SensorFacts temperatures are in degrees Celsius. Critical is nil when the
// sensor does not report a critical threshold.
type SensorFacts struct {
	Label       string
	Temperature float64
	Max         float64
	Critical    *float64
}

type NetworkFacts struct {
	Name        string
	Received    uint64
	Transmitted uint64
}

type ProcessFacts struct {
	PID      int32
	Name     string
	Status   string
	RSSBytes uint64
}
