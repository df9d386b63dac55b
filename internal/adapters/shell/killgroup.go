package shell

import (
	"syscall"
	"time"
)

// killProcessGroup sends SIGTERM to the process group rooted at pid, waits
// up to grace for it to exit, then sends SIGKILL. Errors are ignored: the
// group may already be gone by the time either signal is sent.
func killProcessGroup(pid int, grace time.Duration) {
	_ = syscall.Kill(-pid, syscall.SIGTERM)

	deadline := time.Now().Add(grace)
	for time.Now().Before(deadline) {
		if err := syscall.Kill(-pid, 0); err != nil {
			return // group is gone
		}
		time.Sleep(50 * time.Millisecond)
	}

	_ = syscall.Kill(-pid, syscall.SIGKILL)
}
