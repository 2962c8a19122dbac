//go:build !linux

package hasher

import "os"

func adviseSequential(_ *os.File) {}
