package resource

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"maestro/internal/model"
)

// Sampler produces one snapshot per call. The monitor owns the fallback
// behavior; a sampler just reports what it sees or an error.
type Sampler interface {
	Sample() (Snapshot, error)
}

// ProcSampler reads /proc/meminfo and /proc/stat. CPU utilization is
// computed from the delta against the previous read, so the first sample
// after construction reports 0% CPU.
type ProcSampler struct {
	meminfoPath string
	statPath    string

	mu        sync.Mutex
	prevIdle  uint64
	prevTotal uint64
}

// NewProcSampler returns a sampler over the standard /proc paths.
func NewProcSampler() *ProcSampler {
	return &ProcSampler{meminfoPath: "/proc/meminfo", statPath: "/proc/stat"}
}

func (p *ProcSampler) Sample() (Snapshot, error) {
	mem, err := os.ReadFile(p.meminfoPath)
	if err != nil {
		return Snapshot{}, fmt.Errorf("read meminfo: %w", err)
	}
	fields, err := parseMeminfo(string(mem))
	if err != nil {
		return Snapshot{}, err
	}

	kbToGB := func(kb uint64) float64 { return float64(kb) / (1024 * 1024) }
	total := kbToGB(fields["MemTotal"])
	available := kbToGB(fields["MemAvailable"])
	swapUsed := kbToGB(fields["SwapTotal"] - min64(fields["SwapFree"], fields["SwapTotal"]))

	cpuPct := p.sampleCPU()

	snap := Snapshot{
		Timestamp:   time.Now(),
		TotalGB:     total,
		UsedGB:      total - available,
		AvailableGB: available,
		SwapUsedGB:  swapUsed,
		// Linux has no compressed-memory counter comparable to macOS;
		// zswap-less systems report 0 and the pressure rules degrade cleanly.
		CompressedGB: 0,
		CPUPercent:   cpuPct,
		Thermal:      estimateThermal(cpuPct),
	}
	return snap, nil
}

func (p *ProcSampler) sampleCPU() float64 {
	data, err := os.ReadFile(p.statPath)
	if err != nil {
		return 0
	}
	line, _, _ := strings.Cut(string(data), "\n")
	parts := strings.Fields(line)
	if len(parts) < 5 || parts[0] != "cpu" {
		return 0
	}

	var total, idle uint64
	for i, raw := range parts[1:] {
		v, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return 0
		}
		total += v
		if i == 3 { // idle column
			idle = v
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	dTotal := total - p.prevTotal
	dIdle := idle - p.prevIdle
	first := p.prevTotal == 0
	p.prevTotal, p.prevIdle = total, idle
	if first || dTotal == 0 {
		return 0
	}
	return float64(dTotal-dIdle) / float64(dTotal) * 100
}

func parseMeminfo(text string) (map[string]uint64, error) {
	fields := make(map[string]uint64)
	for _, line := range strings.Split(text, "\n") {
		key, rest, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		parts := strings.Fields(rest)
		if len(parts) == 0 {
			continue
		}
		v, err := strconv.ParseUint(parts[0], 10, 64)
		if err != nil {
			continue
		}
		fields[key] = v
	}
	for _, required := range []string{"MemTotal", "MemAvailable"} {
		if _, found := fields[required]; !found {
			return nil, fmt.Errorf("meminfo missing %s", required)
		}
	}
	return fields, nil
}

func min64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}

// StaticSampler returns a fixed snapshot with a fresh timestamp on each
// call. Used in tests and as the synthetic fallback source.
type StaticSampler struct {
	Snapshot Snapshot
	Err      error
}

func (s StaticSampler) Sample() (Snapshot, error) {
	if s.Err != nil {
		return Snapshot{}, s.Err
	}
	snap := s.Snapshot
	snap.Timestamp = time.Now()
	if snap.Thermal == "" {
		snap.Thermal = model.ThermalNormal
	}
	return snap, nil
}
