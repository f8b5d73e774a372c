// Package collect samples host telemetry once per tick and exposes it
// as a flat metrics map keyed by the canonical feature names.
package collect

import (
	"fmt"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/net"
	"github.com/shirou/gopsutil/v4/sensors"
)

// Collector is the boundary contract consumed by the engine: one raw
// metrics sample per tick. Implementations must return a fresh map on
// every call; the engine publishes it inside immutable snapshots.
type Collector interface {
	Collect() (map[string]float64, error)
}

// SystemCollector samples OS counters via gopsutil and converts the
// monotonic I/O counters into bytes-per-second rates over the tick
// delta. Owned by the engine goroutine; not safe for concurrent use.
type SystemCollector struct {
	lastTime time.Time

	lastDiskRead  uint64
	lastDiskWrite uint64
	lastNetSent   uint64
	lastNetRecv   uint64
}

// NewSystemCollector primes the counter baselines so the first real
// sample produces sane rates, and primes the CPU percent calculation
// (gopsutil reports utilisation since the previous call).
func NewSystemCollector() (*SystemCollector, error) {
	c := &SystemCollector{lastTime: time.Now()}

	if _, err := cpu.Percent(0, false); err != nil {
		return nil, fmt.Errorf("collect: cpu priming failed: %w", err)
	}

	read, write, err := diskTotals()
	if err != nil {
		return nil, fmt.Errorf("collect: disk priming failed: %w", err)
	}
	sent, recv, err := netTotals()
	if err != nil {
		return nil, fmt.Errorf("collect: net priming failed: %w", err)
	}

	c.lastDiskRead, c.lastDiskWrite = read, write
	c.lastNetSent, c.lastNetRecv = sent, recv
	return c, nil
}

// Collect samples the system. Must be called approximately once per
// second; a non-positive delta (clock oddity, re-entrant call) is
// treated as one second to keep the rates finite.
func (c *SystemCollector) Collect() (map[string]float64, error) {
	now := time.Now()
	dt := now.Sub(c.lastTime).Seconds()
	if dt <= 0 {
		dt = 1.0
	}

	cpuPct, err := cpu.Percent(0, false)
	if err != nil {
		return nil, fmt.Errorf("collect: cpu: %w", err)
	}
	vm, err := mem.VirtualMemory()
	if err != nil {
		return nil, fmt.Errorf("collect: memory: %w", err)
	}
	read, write, err := diskTotals()
	if err != nil {
		return nil, fmt.Errorf("collect: disk: %w", err)
	}
	sent, recv, err := netTotals()
	if err != nil {
		return nil, fmt.Errorf("collect: net: %w", err)
	}

	metrics := map[string]float64{
		"cpu_percent":         firstOrZero(cpuPct),
		"ram_percent":         vm.UsedPercent,
		"disk_read_rate":      counterRate(read, c.lastDiskRead, dt),
		"disk_write_rate":     counterRate(write, c.lastDiskWrite, dt),
		"net_bytes_sent_rate": counterRate(sent, c.lastNetSent, dt),
		"net_bytes_recv_rate": counterRate(recv, c.lastNetRecv, dt),
		"cpu_temperature":     cpuTemperature(),
	}

	c.lastTime = now
	c.lastDiskRead, c.lastDiskWrite = read, write
	c.lastNetSent, c.lastNetRecv = sent, recv

	return metrics, nil
}

func diskTotals() (read, write uint64, err error) {
	counters, err := disk.IOCounters()
	if err != nil {
		return 0, 0, err
	}
	for _, s := range counters {
		read += s.ReadBytes
		write += s.WriteBytes
	}
	return read, write, nil
}

func netTotals() (sent, recv uint64, err error) {
	counters, err := net.IOCounters(false)
	if err != nil {
		return 0, 0, err
	}
	for _, s := range counters {
		sent += s.BytesSent
		recv += s.BytesRecv
	}
	return sent, recv, nil
}

// counterRate converts a monotonic counter delta into a per-second
// rate. Counter resets (reboot of a device, driver reload) would show
// as cur < last; they clamp to zero rather than going negative.
func counterRate(cur, last uint64, dt float64) float64 {
	if cur < last {
		return 0
	}
	return float64(cur-last) / dt
}

// cpuTemperature reads the package temperature, preferring the
// coretemp sensor and falling back to the first thermal zone. Sensors
// are optional hardware; any failure reports 0.
func cpuTemperature() float64 {
	temps, err := sensors.SensorsTemperatures()
	if err != nil || len(temps) == 0 {
		return 0
	}
	for _, t := range temps {
		if strings.Contains(t.SensorKey, "coretemp") {
			return t.Temperature
		}
	}
	return temps[0].Temperature
}

func firstOrZero(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	return vals[0]
}
