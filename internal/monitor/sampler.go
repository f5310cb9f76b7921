package monitor

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/distatus/battery"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
	gopsnet "github.com/shirou/gopsutil/v4/net"
	log "github.com/sirupsen/logrus"
)

// Sample is one point-in-time reading of system health.
type Sample struct {
	CPUPercent     float64
	MemoryPercent  float64
	DiskPercent    float64
	UploadKBps     float64
	DownloadKBps   float64
	Online         bool
	BatteryPercent float64
	OnBattery      bool
	HasBattery     bool
}

// Sampler produces health samples. The production implementation reads the
// host via gopsutil; tests substitute a stub.
type Sampler interface {
	Sample(ctx context.Context) (Sample, error)
}

// SystemSampler reads live host metrics. Network throughput is derived from
// interface counter deltas between consecutive samples, so the first sample
// always reports zero throughput.
type SystemSampler struct {
	diskPath string

	mu        sync.Mutex
	lastNetAt time.Time
	lastSent  uint64
	lastRecv  uint64
}

// NewSystemSampler creates a sampler. diskPath "" defaults to the root
// filesystem.
func NewSystemSampler(diskPath string) *SystemSampler {
	if diskPath == "" {
		diskPath = DefaultDiskPath
	}
	return &SystemSampler{diskPath: diskPath}
}

// Sample reads the host. Individual probe failures degrade to zero values
// rather than failing the whole sample.
func (s *SystemSampler) Sample(ctx context.Context) (Sample, error) {
	var sample Sample

	if percents, err := cpu.PercentWithContext(ctx, 0, false); err != nil {
		log.Debugf("CPU probe failed: %v", err)
	} else if len(percents) > 0 {
		sample.CPUPercent = percents[0]
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err != nil {
		log.Debugf("Memory probe failed: %v", err)
	} else {
		sample.MemoryPercent = vm.UsedPercent
	}

	if usage, err := disk.UsageWithContext(ctx, s.diskPath); err != nil {
		log.Debugf("Disk probe failed: %v", err)
	} else {
		sample.DiskPercent = usage.UsedPercent
	}

	sample.UploadKBps, sample.DownloadKBps = s.throughput(ctx)
	sample.Online = s.online(ctx)

	if batteries, err := battery.GetAll(); err != nil {
		log.Debugf("Battery probe failed: %v", err)
	} else if len(batteries) > 0 {
		b := batteries[0]
		sample.HasBattery = true
		if b.Full > 0 {
			sample.BatteryPercent = b.Current / b.Full * 100
		}
		sample.OnBattery = b.State == battery.Discharging
	}

	return sample, nil
}

// throughput computes KB/s from aggregate interface counter deltas.
func (s *SystemSampler) throughput(ctx context.Context) (upload, download float64) {
	counters, err := gopsnet.IOCountersWithContext(ctx, false)
	if err != nil || len(counters) == 0 {
		log.Debugf("Network counters probe failed: %v", err)
		return 0, 0
	}

	now := time.Now()
	sent := counters[0].BytesSent
	recv := counters[0].BytesRecv

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.lastNetAt.IsZero() {
		elapsed := now.Sub(s.lastNetAt).Seconds()
		if elapsed > 0 && sent >= s.lastSent && recv >= s.lastRecv {
			upload = float64(sent-s.lastSent) / 1024 / elapsed
			download = float64(recv-s.lastRecv) / 1024 / elapsed
		}
	}

	s.lastNetAt = now
	s.lastSent = sent
	s.lastRecv = recv
	return upload, download
}

// online reports whether any non-loopback interface is up.
func (s *SystemSampler) online(ctx context.Context) bool {
	interfaces, err := gopsnet.InterfacesWithContext(ctx)
	if err != nil {
		log.Debugf("Interface probe failed: %v", err)
		return true // inconclusive, don't alarm
	}

	for _, iface := range interfaces {
		up, loopback := false, false
		for _, flag := range iface.Flags {
			switch strings.ToLower(flag) {
			case "up":
				up = true
			case "loopback":
				loopback = true
			}
		}
		if up && !loopback {
			return true
		}
	}
	return false
}
