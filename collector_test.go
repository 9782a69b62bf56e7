package main

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProbe struct {
	facts HostFacts
}

func (s *stubProbe) Sample(context.Context) HostFacts {
	return s.facts
}

func TestCollectSortsProcessesByMemory(t *testing.T) {
	probe := &stubProbe{facts: HostFacts{
		Processes: []ProcessFacts{
			{PID: 1, Name: "init", Status: "sleep", RSSBytes: 2048},
			{PID: 2, Name: "small", Status: "sleep", RSSBytes: 10},
			{PID: 3, Name: "big", Status: "running", RSSBytes: 3 * gib},
			{PID: 4, Name: "tie-a", Status: "sleep", RSSBytes: mib},
			{PID: 5, Name: "tie-b", Status: "sleep", RSSBytes: mib},
			{PID: 6, Name: "tie-c", Status: "sleep", RSSBytes: mib},
		},
	}}

	out, err := newCollector(probe).Collect(context.Background())
	require.NoError(t, err)

	var snap Snapshot
	require.NoError(t, json.Unmarshal([]byte(out), &snap))

	var names []string
	for _, p := range snap.Processes {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"big", "tie-a", "tie-b", "tie-c", "init", "small"}, names)
	assert.Equal(t, "3", snap.Processes[0].PID)
	assert.Equal(t, "3.00 GB", snap.Processes[0].Memory)
	assert.Equal(t, "10 bytes", snap.Processes[5].Memory)
}

func TestCollectDoesNotReorderProbeFacts(t *testing.T) {
	facts := []ProcessFacts{{PID: 1, RSSBytes: 1}, {PID: 2, RSSBytes: 2}}
	sortedProcesses(facts)
	assert.Equal(t, int32(1), facts[0].PID)
}

func TestCollectMissingFieldsUseSentinel(t *testing.T) {
	probe := &stubProbe{facts: HostFacts{
		OS:      OSFacts{Name: "debian", Version: "12"},
		Sensors: []SensorFacts{{Label: "acpitz", Temperature: 41, Max: 55}},
		Processes: []ProcessFacts{
			{PID: 7, RSSBytes: 100},
		},
	}}

	out, err := newCollector(probe).Collect(context.Background())
	require.NoError(t, err)

	var snap Snapshot
	require.NoError(t, json.Unmarshal([]byte(out), &snap))

	assert.Equal(t, "debian", snap.OS.Name)
	assert.Equal(t, "12", snap.OS.Version)
	assert.Equal(t, unknown, snap.OS.KernelVersion)

	require.Len(t, snap.Components, 1)
	assert.Equal(t, "41 °C", snap.Components[0].Temperature)
	assert.Equal(t, "55 °C", snap.Components[0].MaxTemperature)
	assert.Equal(t, unknown, snap.Components[0].CriticalTemperature)

	require.Len(t, snap.Processes, 1)
	assert.Equal(t, unknown, snap.Processes[0].Name)
	assert.Equal(t, unknown, snap.Processes[0].Status)
}

func TestCollectUndeterminedDiskFieldsUseSentinel(t *testing.T) {
	src := &stubProbe{facts: HostFacts{
		Disks: []DiskFacts{{Total: gib, Available: 0, Removable: true}},
	}}

	out, err := newCollector(src).Collect(context.Background())
	require.NoError(t, err)

	var snap Snapshot
	require.NoError(t, json.Unmarshal([]byte(out), &snap))
	assert.Equal(t, []Disk{{
		Kind: unknown, Name: unknown, FileSystem: unknown, MountPoint: unknown,
		Total: "1.00 GB", Available: "0 bytes", Removable: true,
	}}, snap.Disks)
}

func TestCollectMapsAllFacets(t *testing.T) {
	crit := 100.0
	probe := &stubProbe{facts: HostFacts{
		OS:   OSFacts{Name: "ubuntu", Version: "24.04", KernelVersion: "6.8.0"},
		CPUs: []CPUFacts{{Name: "cpu0", Brand: "AMD Ryzen", FrequencyMHz: 3600}},
		Memory: MemoryFacts{
			Total:     16 * gib,
			Used:      512 * mib,
			SwapTotal: 0,
			SwapUsed:  0,
		},
		Disks: []DiskFacts{{
			Kind: "SSD", Name: "/dev/nvme0n1p2", FileSystem: "ext4", MountPoint: "/",
			Total: 500 * gib, Available: 100 * gib, Removable: false,
		}},
		Sensors:  []SensorFacts{{Label: "k10temp", Temperature: 48.5, Max: 60, Critical: &crit}},
		Networks: []NetworkFacts{{Name: "eth0", Received: 2048, Transmitted: 512}},
	}}

	out, err := newCollector(probe).Collect(context.Background())
	require.NoError(t, err)

	var snap Snapshot
	require.NoError(t, json.Unmarshal([]byte(out), &snap))

	assert.Equal(t, OSInfo{Name: "ubuntu", Version: "24.04", KernelVersion: "6.8.0"}, snap.OS)
	assert.Equal(t, []Processor{{Name: "cpu0", Brand: "AMD Ryzen", Frequency: 3600}}, snap.Processors)
	assert.Equal(t, Memory{Total: "16.00 GB", Used: "512.00 MB", SwapTotal: "0 bytes", SwapUsed: "0 bytes"}, snap.Memory)
	assert.Equal(t, []Disk{{
		Kind: "SSD", Name: "/dev/nvme0n1p2", FileSystem: "ext4", MountPoint: "/",
		Total: "500.00 GB", Available: "100.00 GB",
	}}, snap.Disks)
	assert.Equal(t, "100 °C", snap.Components[0].CriticalTemperature)
	assert.Equal(t, []Network{{Name: "eth0", Received: "2.00 KB", Transmitted: "512 bytes"}}, snap.Networks)
	assert.Empty(t, snap.Processes)
}

func TestCollectEmptyProbeEncodesEmptyLists(t *testing.T) {
	out, err := newCollector(&stubProbe{}).Collect(context.Background())
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(out), &raw))
	for _, key := range []string{"processors", "disks", "components", "networks", "processes"} {
		assert.JSONEq(t, "[]", string(raw[key]), key)
	}
}

func TestCollectEncodingFailure(t *testing.T) {
	c := newCollector(&stubProbe{})
	c.encode = func(any) ([]byte, error) { return nil, errors.New("boom") }

	out, err := c.Collect(context.Background())
	assert.Empty(t, out)

	var collErr *CollectionError
	require.ErrorAs(t, err, &collErr)
	assert.EqualError(t, collErr.Err, "boom")
}
