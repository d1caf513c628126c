//go:build windows

package tools

import (
	"os"
	"syscall"
)

func platformProcAttr() *syscall.SysProcAttr {
	return nil
}

func killTree(proc *os.Process) error {
	return proc.Kill()
}
