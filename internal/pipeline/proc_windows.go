//go:build windows

package pipeline

import (
	"os/exec"
	"syscall"
)

func setProcessGroup(_ *exec.Cmd) {}

// signalGroup has no graduated form on Windows; any signal is a hard kill
// of the direct child.
func signalGroup(cmd *exec.Cmd, _ syscall.Signal) error {
	return cmd.Process.Kill()
}
