package shell

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// monitor samples a child process's RSS and CPU usage on a timer, tracking
// the peak values seen over its lifetime. Sampling never blocks the
// process's Wait: it runs on its own goroutine and is stopped explicitly.
type monitor struct {
	pid    int
	mu     sync.Mutex
	peakRSS uint64
	peakCPU float64
	stopCh chan struct{}
	doneCh chan struct{}
}

func startMonitor(pid int) *monitor {
	m := &monitor{
		pid:    pid,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	go m.run()
	return m
}

func (m *monitor) run() {
	defer close(m.doneCh)
	ticker := time.NewTicker(sampleInterval)
	defer ticker.Stop()

	var lastCPUTicks uint64
	var lastSample time.Time

	sample := func() {
		rss, cpuTicks, ok := readProcStat(m.pid)
		if !ok {
			return
		}
		now := time.Now()
		m.mu.Lock()
		if rss > m.peakRSS {
			m.peakRSS = rss
		}
		if !lastSample.IsZero() && cpuTicks >= lastCPUTicks {
			elapsed := now.Sub(lastSample).Seconds()
			if elapsed > 0 {
				deltaTicks := float64(cpuTicks - lastCPUTicks)
				pct := (deltaTicks / clockTicksPerSec / elapsed) * 100
				if pct > m.peakCPU {
					m.peakCPU = pct
				}
			}
		}
		m.mu.Unlock()
		lastCPUTicks = cpuTicks
		lastSample = now
	}

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			sample()
		}
	}
}

func (m *monitor) stop() {
	close(m.stopCh)
	<-m.doneCh
}

func (m *monitor) peaks() (uint64, float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.peakRSS, m.peakCPU
}

const clockTicksPerSec = 100 // USER_HZ on virtually every Linux build.

// readProcStat reads RSS (bytes) and cumulative CPU ticks (utime+stime) for
// pid from /proc. It returns ok=false on any non-Linux platform or if the
// process has already exited; resource sampling is best-effort.
func readProcStat(pid int) (rssBytes uint64, cpuTicks uint64, ok bool) {
	statPath := fmt.Sprintf("/proc/%d/stat", pid)
	f, err := os.Open(statPath) //nolint:gosec // path built from a known-good pid
	if err != nil {
		return 0, 0, false
	}
	defer f.Close() //nolint:errcheck

	r := bufio.NewReader(f)
	line, err := r.ReadString('\n')
	if err != nil && line == "" {
		return 0, 0, false
	}

	// Fields after the parenthesized comm name are space-separated; comm
	// itself may contain spaces, so split on the last ')'.
	idx := strings.LastIndex(line, ")")
	if idx == -1 {
		return 0, 0, false
	}
	fields := strings.Fields(line[idx+1:])
	// Per proc(5), field 14 is utime, 15 is stime, counting from the comm
	// field as index 2; after stripping "pid (comm)" fields[0] is state (3rd
	// overall), so utime is fields[11], stime fields[12] (0-indexed).
	const (
		utimeIdx = 11
		stimeIdx = 12
		rssIdx   = 21
	)
	if len(fields) <= rssIdx {
		return 0, 0, false
	}
	utime, err1 := strconv.ParseUint(fields[utimeIdx], 10, 64)
	stime, err2 := strconv.ParseUint(fields[stimeIdx], 10, 64)
	rssPages, err3 := strconv.ParseUint(fields[rssIdx], 10, 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return 0, 0, false
	}

	return rssPages * uint64(os.Getpagesize()), utime + stime, true
}
