//go:build unix

package alpr

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
)

// killProcessGroup runs alpr in its own process group so cancellation also
// reaches anything a wrapper script started.
func killProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		if errors.Is(err, syscall.ESRCH) {
			return os.ErrProcessDone
		}
		return err
	}
}
