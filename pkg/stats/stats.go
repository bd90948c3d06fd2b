// Package stats snapshots host memory, disk, CPU and load information
// for a Worker's periodic stats publisher.
package stats

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
)

// MemStat is a memory snapshot, in KiB, matching /proc/meminfo's units.
type MemStat struct {
	Total     uint64 `json:"total"`
	Available uint64 `json:"available"`
	Used      uint64 `json:"used"`
}

// DiskStat is a per-mount total/free snapshot, in bytes.
type DiskStat struct {
	Path  string `json:"path"`
	Total uint64 `json:"total"`
	Free  uint64 `json:"free"`
}

// CPUInfo is static per-host CPU information.
type CPUInfo struct {
	Cores     int     `json:"cores"`
	ModelName string  `json:"model_name"`
	MHz       float64 `json:"mhz"`
}

// CPUUsage is cumulative CPU time, in the unit gopsutil reports
// (fractional seconds since boot).
type CPUUsage struct {
	User   float64 `json:"user"`
	System float64 `json:"system"`
	Idle   float64 `json:"idle"`
	IOWait float64 `json:"iowait"`
}

// LoadAverage is the standard 1/5/15 minute load average triple.
type LoadAverage struct {
	One     float64 `json:"one"`
	Five    float64 `json:"five"`
	Fifteen float64 `json:"fifteen"`
}

// Stats is an immutable snapshot of host resource usage. A new Stats
// value is built and published wholesale; nothing in it is mutated in
// place, so concurrent readers never observe a partial update.
type Stats struct {
	Mem         MemStat      `json:"mem"`
	Disks       []DiskStat   `json:"disks"`
	CPU         CPUInfo      `json:"cpu"`
	CPUUsage    CPUUsage     `json:"cpu_usage"`
	CPUPressure float64      `json:"cpu_pressure"`
	Load        LoadAverage  `json:"load"`
}

// Collect builds a fresh Stats snapshot from the host. It is safe to
// call concurrently; it only reads host state.
func Collect() (Stats, error) {
	var s Stats
	var err error

	if s.Mem, err = collectMem(); err != nil {
		return s, fmt.Errorf("collecting memory stats: %w", err)
	}
	if s.Disks, err = collectDisks(); err != nil {
		return s, fmt.Errorf("collecting disk stats: %w", err)
	}
	if s.CPU, err = collectCPUInfo(); err != nil {
		return s, fmt.Errorf("collecting cpu info: %w", err)
	}
	if s.CPUUsage, err = collectCPUUsage(); err != nil {
		return s, fmt.Errorf("collecting cpu usage: %w", err)
	}
	// CPU pressure is Linux-only and not present in all environments
	// (containers, non-Linux hosts); a missing file is not an error.
	s.CPUPressure, _ = collectCPUPressure()

	if s.Load, err = collectLoad(); err != nil {
		return s, fmt.Errorf("collecting load average: %w", err)
	}

	return s, nil
}

func collectMem() (MemStat, error) {
	v, err := mem.VirtualMemory()
	if err != nil {
		return MemStat{}, err
	}
	const kib = 1024
	return MemStat{
		Total:     v.Total / kib,
		Available: v.Available / kib,
		Used:      v.Used / kib,
	}, nil
}

func collectDisks() ([]DiskStat, error) {
	partitions, err := disk.Partitions(false)
	if err != nil {
		return nil, err
	}

	out := make([]DiskStat, 0, len(partitions))
	for _, p := range partitions {
		usage, err := disk.Usage(p.Mountpoint)
		if err != nil {
			continue
		}
		out = append(out, DiskStat{
			Path:  p.Mountpoint,
			Total: usage.Total,
			Free:  usage.Free,
		})
	}
	return out, nil
}

func collectCPUInfo() (CPUInfo, error) {
	infos, err := cpu.Info()
	if err != nil {
		return CPUInfo{}, err
	}
	cores, err := cpu.Counts(true)
	if err != nil {
		cores = len(infos)
	}

	info := CPUInfo{Cores: cores}
	if len(infos) > 0 {
		info.ModelName = infos[0].ModelName
		info.MHz = infos[0].Mhz
	}
	return info, nil
}

func collectCPUUsage() (CPUUsage, error) {
	times, err := cpu.Times(false)
	if err != nil || len(times) == 0 {
		return CPUUsage{}, err
	}
	t := times[0]
	return CPUUsage{
		User:   t.User,
		System: t.System,
		Idle:   t.Idle,
		IOWait: t.Iowait,
	}, nil
}

func collectLoad() (LoadAverage, error) {
	avg, err := load.Avg()
	if err != nil {
		return LoadAverage{}, err
	}
	return LoadAverage{One: avg.Load1, Five: avg.Load5, Fifteen: avg.Load15}, nil
}

// collectCPUPressure reads the "some" line's avg10 figure from
// /proc/pressure/cpu. No library in this codebase's dependency pack
// parses Linux PSI files, so this one is hand-rolled against the
// stable kernel-documented format:
//
//	some avg10=0.00 avg60=0.00 avg300=0.00 total=0
func collectCPUPressure() (float64, error) {
	f, err := os.Open("/proc/pressure/cpu")
	if err != nil {
		return 0, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "some ") {
			continue
		}
		for _, field := range strings.Fields(line)[1:] {
			kv := strings.SplitN(field, "=", 2)
			if len(kv) != 2 || kv[0] != "avg10" {
				continue
			}
			return strconv.ParseFloat(kv[1], 64)
		}
	}
	return 0, fmt.Errorf("no 'some' line found in /proc/pressure/cpu")
}
