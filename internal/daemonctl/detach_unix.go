//go:build unix

package daemonctl

import (
	"os/exec"
	"syscall"
)

// detach starts the daemon in its own session so it survives the CLI's
// terminal closing.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}
