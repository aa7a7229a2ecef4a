//go:build !windows

package terminal

func enableVT() {}
