//go:build linux

package annbench

import "golang.org/x/sys/unix"

func fillSysinfo(info *EnvInfo) {
	var si unix.Sysinfo_t
	if err := unix.Sysinfo(&si); err != nil {
		return
	}
	info.RAMGB = float64(si.Totalram) * float64(si.Unit) / (1 << 30)
	// Loads are fixed-point with a 16-bit fractional part.
	info.Load15 = float64(si.Loads[2]) / float64(1<<16)
}
