package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/net"
	"github.com/shirou/gopsutil/v3/process"
)

// gopsutilProbe samples the local host. Each facet is best effort; errors
// are logged at debug and the facet is left empty.
type gopsutilProbe struct {
	log     zerolog.Logger
	sysRoot string

	// highest temperature seen per sensor label
	mu      sync.Mutex
	maxTemp map[string]float64
}

func newGopsutilProbe(log zerolog.Logger) *gopsutilProbe {
	return &gopsutilProbe{
		log:     log,
		sysRoot: "/sys",
		maxTemp: make(map[string]float64),
	}
}

func (p *gopsutilProbe) Sample(ctx context.Context) HostFacts {
	return HostFacts{
		OS:        p.osInfo(ctx),
		CPUs:      p.cpus(ctx),
		Memory:    p.memory(ctx),
		Disks:     p.disks(ctx),
		Sensors:   p.sensors(ctx),
		Networks:  p.networks(ctx),
		Processes: p.processes(ctx),
	}
}

func (p *gopsutilProbe) osInfo(ctx context.Context) OSFacts {
	info, err := host.InfoWithContext(ctx)
	if err != nil || info == nil {
		p.log.Debug().Err(err).Msg("host info unavailable")
		return OSFacts{}
	}
	return OSFacts{
		Name:          info.Platform,
		Version:       info.PlatformVersion,
		KernelVersion: info.KernelVersion,
	}
}

func (p *gopsutilProbe) cpus(ctx context.Context) []CPUFacts {
	infos, err := cpu.InfoWithContext(ctx)
	if err != nil {
		p.log.Debug().Err(err).Msg("cpu info unavailable")
		return nil
	}
	result := make([]CPUFacts, 0, len(infos))
	for i, c := range infos {
		var mhz uint64
		if c.Mhz > 0 {
			mhz = uint64(c.Mhz)
		}
		result = append(result, CPUFacts{
			Name:         fmt.Sprintf("cpu%d", i),
			Brand:        c.ModelName,
			FrequencyMHz: mhz,
		})
	}
	return result
}

func (p *gopsutilProbe) memory(ctx context.Context) MemoryFacts {
	var m MemoryFacts
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil && vm != nil {
		m.Total, m.Used = vm.Total, vm.Used
	} else {
		p.log.Debug().Err(err).Msg("virtual memory unavailable")
	}
	if sw, err := mem.SwapMemoryWithContext(ctx); err == nil && sw != nil {
		m.SwapTotal, m.SwapUsed = sw.Total, sw.Used
	} else {
		p.log.Debug().Err(err).Msg("swap unavailable")
	}
	return m
}

func (p *gopsutilProbe) disks(ctx context.Context) []DiskFacts {
	parts, err := disk.PartitionsWithContext(ctx, false)
	if err != nil {
		p.log.Debug().Err(err).Msg("disk partitions unavailable")
		return nil
	}
	result := make([]DiskFacts, 0, len(parts))
	for _, part := range parts {
		d := DiskFacts{
			Name:       part.Device,
			FileSystem: part.Fstype,
			MountPoint: part.Mountpoint,
		}
		if usage, err := disk.UsageWithContext(ctx, part.Mountpoint); err == nil && usage != nil {
			d.Total, d.Available = usage.Total, usage.Free
		}
		d.Kind, d.Removable = p.blockDevice(part.Device)
		result = append(result, d)
	}
	return result
}

// blockDevice looks up the rotational and removable flags for device in
// sysfs. Partitions resolve to their parent disk.
func (p *gopsutilProbe) blockDevice(device string) (kind string, removable bool) {
	name := filepath.Base(device)
	if name == "" || name == "." || name == "/" {
		return "", false
	}

	dir := filepath.Join(p.sysRoot, "block", name)
	if _, err := os.Stat(dir); err != nil {
		// sdXN / nvmeXnYpZ partitions live under the parent disk
		link, err := filepath.EvalSymlinks(filepath.Join(p.sysRoot, "class", "block", name))
		if err != nil {
			return "", false
		}
		dir = filepath.Dir(link)
	}

	switch readTrimmed(filepath.Join(dir, "queue", "rotational")) {
	case "0":
		kind = "SSD"
	case "1":
		kind = "HDD"
	}
	removable = readTrimmed(filepath.Join(dir, "removable")) == "1"
	return kind, removable
}

func (p *gopsutilProbe) sensors(ctx context.Context) []SensorFacts {
	temps, err := host.SensorsTemperaturesWithContext(ctx)
	if err != nil {
		// partial readings come back together with a warnings error
		p.log.Debug().Err(err).Msg("sensor read incomplete")
	}

	result := make([]SensorFacts, 0, len(temps))
	for _, t := range temps {
		s := SensorFacts{
			Label:       t.SensorKey,
			Temperature: t.Temperature,
			Max:         p.observeTemp(t.SensorKey, t.Temperature),
		}
		if t.Critical > 0 {
			crit := t.Critical
			s.Critical = &crit
		}
		result = append(result, s)
	}
	return result
}

// observeTemp records a reading and returns the highest seen for label.
func (p *gopsutilProbe) observeTemp(label string, temp float64) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	if prev, ok := p.maxTemp[label]; ok && prev > temp {
		return prev
	}
	p.maxTemp[label] = temp
	return temp
}

func (p *gopsutilProbe) networks(ctx context.Context) []NetworkFacts {
	counters, err := net.IOCountersWithContext(ctx, true)
	if err != nil {
		p.log.Debug().Err(err).Msg("network counters unavailable")
		return nil
	}
	result := make([]NetworkFacts, 0, len(counters))
	for _, c := range counters {
		result = append(result, NetworkFacts{
			Name:        c.Name,
			Received:    c.BytesRecv,
			Transmitted: c.BytesSent,
		})
	}
	return result
}

func (p *gopsutilProbe) processes(ctx context.Context) []ProcessFacts {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		p.log.Debug().Err(err).Msg("process list unavailable")
		return nil
	}
	result := make([]ProcessFacts, 0, len(procs))
	for _, proc := range procs {
		// processes may exit between listing and reading; keep what we got
		name, _ := proc.NameWithContext(ctx)
		status, _ := proc.StatusWithContext(ctx)
		var rss uint64
		if mi, err := proc.MemoryInfoWithContext(ctx); err == nil && mi != nil {
			rss = mi.RSS
		}
		result = append(result, ProcessFacts{
			PID:      proc.Pid,
			Name:     name,
			Status:   strings.Join(status, ","),
			RSSBytes: rss,
		})
	}
	return result
}

func readTrimmed(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
