//go:build !windows

package tools

import (
	"os"
	"syscall"
)

func platformProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true}
}

func killTree(proc *os.Process) error {
	return syscall.Kill(-proc.Pid, syscall.SIGKILL)
}
