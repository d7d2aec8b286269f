package annbench

import (
	"os"
	"runtime"
)

// EnvInfo describes the machine a sweep ran on. It is logged at the start of
// a run so results files can be traced back to the hardware that produced
// the numbers.
type EnvInfo struct {
	Hostname  string  `json:"hostname"`
	OS        string  `json:"os"`
	Arch      string  `json:"arch"`
	NumCPU    int     `json:"num_cpu"`
	RAMGB     float64 `json:"ram_gb"`
	Load15    float64 `json:"load_15"`
	GoVersion string  `json:"go_version"`
}

// CollectEnvInfo gathers environment details. Fields that cannot be read on
// the current platform are left at their zero value.
func CollectEnvInfo() EnvInfo {
	info := EnvInfo{
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
		NumCPU:    runtime.NumCPU(),
		GoVersion: runtime.Version(),
	}
	if host, err := os.Hostname(); err == nil {
		info.Hostname = host
	}
	fillSysinfo(&info)
	return info
}
