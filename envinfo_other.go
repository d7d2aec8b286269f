//go:build !linux

package annbench

func fillSysinfo(info *EnvInfo) {}
