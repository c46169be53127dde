//go:build !linux

package source

import "syscall"

func sysProcAttr() *syscall.SysProcAttr { return nil }
