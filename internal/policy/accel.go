package policy

import (
	"fmt"
	"strings"
)

// HWAccel selects the encoding backend for the whole process.
type HWAccel int

const (
	// AccelNVIDIA encodes with NVENC and requires the CUDA toolkit.
	AccelNVIDIA HWAccel = iota
	// AccelIntel encodes with Quick Sync Video.
	AccelIntel
	// AccelAMD encodes with AMF.
	AccelAMD
	// AccelCPU encodes in software with libx265. Very slow.
	AccelCPU

	accelCount
)

var accelNames = [...]string{
	AccelNVIDIA: "nvidia",
	AccelIntel:  "intel",
	AccelAMD:    "amd",
	AccelCPU:    "cpu",
}

var accelEncoders = [...]string{
	AccelNVIDIA: "hevc_nvenc",
	AccelIntel:  "hevc_qsv",
	AccelAMD:    "hevc_amf",
	AccelCPU:    "libx265",
}

// Each table must have exactly accelCount entries. A missing entry makes one
// of these array lengths negative and the package fails to compile.
var (
	_ [len(accelNames) - int(accelCount)]struct{}
	_ [int(accelCount) - len(accelNames)]struct{}
	_ [len(accelEncoders) - int(accelCount)]struct{}
	_ [int(accelCount) - len(accelEncoders)]struct{}
)

var accelAliases = map[string]HWAccel{
	"nvenc":    AccelNVIDIA,
	"cuda":     AccelNVIDIA,
	"qsv":      AccelIntel,
	"amf":      AccelAMD,
	"software": AccelCPU,
	"libx265":  AccelCPU,
}

// ParseHWAccel parses an accelerator name (case-insensitive).
func ParseHWAccel(s string) (HWAccel, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range accelNames {
		if n == name {
			return HWAccel(i), nil
		}
	}
	if a, ok := accelAliases[name]; ok {
		return a, nil
	}
	return 0, fmt.Errorf("unknown hardware accelerator %q (want one of %s)", s, strings.Join(accelNames[:], ", "))
}

// Valid reports whether a is one of the declared accelerators.
func (a HWAccel) Valid() bool {
	return a >= 0 && a < accelCount
}

// Encoder returns the ffmpeg encoder identifier for the accelerator.
func (a HWAccel) Encoder() string {
	if !a.Valid() {
		return ""
	}
	return accelEncoders[a]
}

// Toolkit returns the command that must be present for this accelerator to
// work, or "" if none is required.
func (a HWAccel) Toolkit() string {
	if a == AccelNVIDIA {
		return "nvcc"
	}
	return ""
}

func (a HWAccel) String() string {
	if !a.Valid() {
		return fmt.Sprintf("unknown(%d)", int(a))
	}
	return accelNames[a]
}
