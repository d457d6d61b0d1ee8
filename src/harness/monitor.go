package harness

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/mem"
	gopsnet "github.com/shirou/gopsutil/v3/net"
	"github.com/sirupsen/logrus"
)

// monitorInterval is the sampling period of the host monitors.
const monitorInterval = 5 * time.Second

// startMonitors launches the two host monitors. They are decoupled from
// the main loop: no ordering, and their failure never affects it. Both
// are owned by ctx and joined through wg when the harness shuts down.
func (h *Harness) startMonitors(ctx context.Context, wg *sync.WaitGroup) {
	memLog := h.monitorLogger("mem_monitor.log", "mem")
	netLog := h.monitorLogger("net_monitor.log", "net")

	wg.Add(2)
	go func() {
		defer wg.Done()
		monitorMemory(ctx, memLog)
	}()
	go func() {
		defer wg.Done()
		monitorNetwork(ctx, netLog)
	}()
}

// monitorLogger builds a logger writing to its own file under LogDir,
// falling back to the harness logger's output when the file cannot be
// opened.
func (h *Harness) monitorLogger(name, prefix string) *logrus.Entry {
	logger := logrus.New()
	logger.Level = logrus.InfoLevel
	logger.Formatter = &logrus.TextFormatter{}

	if h.conf.LogDir != "" {
		if f, err := openLogFile(filepath.Join(h.conf.LogDir, name)); err == nil {
			logger.Out = f
			return logger.WithField("prefix", prefix)
		}
	}

	return h.logger.WithField("prefix", prefix)
}

func openLogFile(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
}

func monitorMemory(ctx context.Context, logger *logrus.Entry) {
	ticker := time.NewTicker(monitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		vm, err := mem.VirtualMemoryWithContext(ctx)
		if err != nil {
			logger.Warn("sampling memory: ", err)
			continue
		}

		logger.WithFields(logrus.Fields{
			"total":        vm.Total,
			"available":    vm.Available,
			"used_percent": vm.UsedPercent,
		}).Info("memory")
	}
}

func monitorNetwork(ctx context.Context, logger *logrus.Entry) {
	ticker := time.NewTicker(monitorInterval)
	defer ticker.Stop()

	// Seed the baseline so the first logged sample is a delta over one
	// interval, not the counters' lifetime totals.
	var prev gopsnet.IOCountersStat
	if counters, err := gopsnet.IOCountersWithContext(ctx, false); err == nil && len(counters) > 0 {
		prev = counters[0]
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		counters, err := gopsnet.IOCountersWithContext(ctx, false)
		if err != nil {
			logger.Warn("sampling network: ", err)
			continue
		}
		if len(counters) == 0 {
			logger.Warn("no network counters reported")
			continue
		}

		logger.WithFields(networkFields(prev, counters[0])).Info("network")
		prev = counters[0]
	}
}

// networkFields turns two consecutive counter samples into the per-interval
// deltas the monitor logs.
func networkFields(prev, cur gopsnet.IOCountersStat) logrus.Fields {
	return logrus.Fields{
		"bytes_sent": cur.BytesSent - prev.BytesSent,
		"bytes_recv": cur.BytesRecv - prev.BytesRecv,
		"errin":      cur.Errin,
		"errout":     cur.Errout,
	}
}
