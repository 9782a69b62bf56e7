package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// unknown stands in for any value the probe could not supply.
const unknown = "unknown"

// Snapshot is one complete sample of host telemetry as sent to viewers.
type Snapshot struct {
	OS         OSInfo      `json:"os"`
	Processors []Processor `json:"processors"`
	Memory     Memory      `json:"memory"`
	Disks      []Disk      `json:"disks"`
	Components []Component `json:"components"`
	Networks   []Network   `json:"networks"`
	Processes  []Process   `json:"processes"`
}

type OSInfo struct {
	Name          string `json:"name"`
	Version       string `json:"version"`
	KernelVersion string `json:"kernel_version"`
}

type Processor struct {
	Name      string `json:"name"`
	Brand     string `json:"brand"`
	Frequency uint64 `json:"frequency"`
}

type Memory struct {
	Total     string `json:"total"`
	Used      string `json:"used"`
	SwapTotal string `json:"swap_total"`
	SwapUsed  string `json:"swap_used"`
}

type Disk struct {
	Kind       string `json:"kind"`
	Name       string `json:"name"`
	FileSystem string `json:"filesystem"`
	MountPoint string `json:"mount_point"`
	Total      string `json:"total"`
	Available  string `json:"available"`
	Removable  bool   `json:"removable"`
}

type Component struct {
	Label               string `json:"label"`
	Temperature         string `json:"temperature"`
	MaxTemperature      string `json:"max_temperature"`
	CriticalTemperature string `json:"critical_temperature"`
}

type Network struct {
	Name        string `json:"name"`
	Received    string `json:"received"`
	Transmitted string `json:"transmitted"`
}

type Process struct {
	PID    string `json:"pid"`
	Name   string `json:"name"`
	Status string `json:"status"`
	Memory string `json:"memory"`
}

// CollectionError reports a snapshot that could not be encoded.
type CollectionError struct {
	Err error
}

func (e *CollectionError) Error() string {
	return fmt.Sprintf("encoding snapshot: %v", e.Err)
}

func (e *CollectionError) Unwrap() error {
	return e.Err
}

type Collector struct {
	probe  Probe
	encode func(any) ([]byte, error)
}

func newCollector(probe Probe) *Collector {
	return &Collector{
		probe:  probe,
		encode: json.Marshal,
	}
}

// Collect samples the probe once and returns the encoded snapshot.
func (c *Collector) Collect(ctx context.Context) (string, error) {
	snap := buildSnapshot(c.probe.Sample(ctx))
	data, err := c.encode(snap)
	if err != nil {
		return "", &CollectionError{Err: err}
	}
	return string(data), nil
}

func buildSnapshot(facts HostFacts) Snapshot {
	snap := Snapshot{
		OS: OSInfo{
			Name:          orUnknown(facts.OS.Name),
			Version:       orUnknown(facts.OS.Version),
			KernelVersion: orUnknown(facts.OS.KernelVersion),
		},
		Memory: Memory{
			Total:     formatBytes(facts.Memory.Total),
			Used:      formatBytes(facts.Memory.Used),
			SwapTotal: formatBytes(facts.Memory.SwapTotal),
			SwapUsed:  formatBytes(facts.Memory.SwapUsed),
		},
		Processors: make([]Processor, 0, len(facts.CPUs)),
		Disks:      make([]Disk, 0, len(facts.Disks)),
		Components: make([]Component, 0, len(facts.Sensors)),
		Networks:   make([]Network, 0, len(facts.Networks)),
	}

	for _, c := range facts.CPUs {
		snap.Processors = append(snap.Processors, Processor{
			Name:      orUnknown(c.Name),
			Brand:     orUnknown(c.Brand),
			Frequency: c.FrequencyMHz,
		})
	}

	for _, d := range facts.Disks {
		snap.Disks = append(snap.Disks, Disk{
			Kind:       orUnknown(d.Kind),
			Name:       orUnknown(d.Name),
			FileSystem: orUnknown(d.FileSystem),
			MountPoint: orUnknown(d.MountPoint),
			Total:      formatBytes(d.Total),
			Available:  formatBytes(d.Available),
			Removable:  d.Removable,
		})
	}

	for _, s := range facts.Sensors {
		crit := unknown
		if s.Critical != nil {
			crit = formatCelsius(*s.Critical)
		}
		snap.Components = append(snap.Components, Component{
			Label:               orUnknown(s.Label),
			Temperature:         formatCelsius(s.Temperature),
			MaxTemperature:      formatCelsius(s.Max),
			CriticalTemperature: crit,
		})
	}

	for _, n := range facts.Networks {
		snap.Networks = append(snap.Networks, Network{
			Name:        orUnknown(n.Name),
			Received:    formatBytes(n.Received),
			Transmitted: formatBytes(n.Transmitted),
		})
	}

	snap.Processes = sortedProcesses(facts.Processes)
	return snap
}

// sortedProcesses orders by resident memory, largest first. Equal values
// keep probe order. The raw byte count does not leave this function.
func sortedProcesses(facts []ProcessFacts) []Process {
	ordered := make([]ProcessFacts, len(facts))
	copy(ordered, facts)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].RSSBytes > ordered[j].RSSBytes
	})

	result := make([]Process, 0, len(ordered))
	for _, p := range ordered {
		result = append(result, Process{
			PID:    strconv.FormatInt(int64(p.PID), 10),
			Name:   orUnknown(p.Name),
			Status: orUnknown(p.Status),
			Memory: formatBytes(p.RSSBytes),
		})
	}
	return result
}

func orUnknown(s string) string {
	if s == "" {
		return unknown
	}
	return s
}
