//go:build !windows

package pipeline

import (
	"os/exec"
	"syscall"
)

// setProcessGroup places the transcoder in its own process group so that
// termination reaches helper processes it spawns, not just the direct child.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// signalGroup delivers sig to the transcoder's whole process group.
func signalGroup(cmd *exec.Cmd, sig syscall.Signal) error {
	return syscall.Kill(-cmd.Process.Pid, sig)
}
