//go:build unix

package main

import (
	"os"
	"syscall"
)

func pauseSignals() []os.Signal { return []os.Signal{syscall.SIGUSR1} }
