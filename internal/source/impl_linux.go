//go:build linux

package source

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// 父进程退出时内核会杀掉 xinput 子进程, 不留孤儿
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Pdeathsig: unix.SIGKILL}
}
