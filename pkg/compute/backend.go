package compute

import (
	"fmt"
	"strings"

	"github.com/AndreeSalazar/Super-C-Runtime-Governed-by-Rust/pkg/ast"
)

// Backend is the label of the execution path chosen for a run. Only PureCpu
// and AsmSimd correspond to code paths in this interpreter; the GPU kinds are
// labels for a run that still executes on the CPU.
type Backend int

const (
	CudaGpu Backend = iota
	HipGpu
	HipCpu
	AsmSimd
	PureCpu
)

var backendIDs = [...]string{"CudaGpu", "HipGpu", "HipCpu", "AsmSimd", "PureCpu"}

var backendNames = [...]string{"CUDA GPU", "HIP GPU (AMD)", "HIP-CPU", "ASM SIMD (AVX)", "Pure CPU"}

func (b Backend) String() string {
	if b < 0 || int(b) >= len(backendIDs) {
		return fmt.Sprintf("Backend(%d)", int(b))
	}
	return backendIDs[b]
}

// DisplayName is the human readable backend name.
func (b Backend) DisplayName() string {
	if b < 0 || int(b) >= len(backendNames) {
		return b.String()
	}
	return backendNames[b]
}

// Preference steers backend selection.
type Preference int

const (
	PreferAuto Preference = iota
	PreferGpu
	PreferCpu
	PreferAsm
	PreferLowPower
)

var preferenceNames = map[Preference]string{
	PreferAuto:     "auto",
	PreferGpu:      "gpu",
	PreferCpu:      "cpu",
	PreferAsm:      "asm",
	PreferLowPower: "low-power",
}

func (p Preference) String() string {
	if name, ok := preferenceNames[p]; ok {
		return name
	}
	return fmt.Sprintf("Preference(%d)", int(p))
}

// MarshalText renders the preference name.
func (p Preference) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText parses a preference name.
func (p *Preference) UnmarshalText(text []byte) error {
	v, err := ParsePreference(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// ParsePreference accepts auto, gpu, cpu, asm and low-power (case-insensitive).
func ParsePreference(s string) (Preference, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if key == "lowpower" || key == "low_power" {
		key = "low-power"
	}
	for p, name := range preferenceNames {
		if name == key {
			return p, nil
		}
	}
	return PreferAuto, fmt.Errorf("unknown preference %q (want auto, gpu, cpu, asm or low-power)", s)
}

// Workload size thresholds for automatic selection.
const (
	GpuThreshold  = 100_000
	SimdThreshold = 1_000
)

// DetectBackends reports the backends this host can label. No GPU probing
// is done, so the GPU kinds are never reported.
func DetectBackends() []Backend {
	return []Backend{PureCpu, AsmSimd, HipCpu}
}

func contains(available []Backend, b Backend) bool {
	for _, a := range available {
		if a == b {
			return true
		}
	}
	return false
}

// bestGpu returns the preferred GPU kind present in available.
func bestGpu(available []Backend) (Backend, bool) {
	for _, b := range []Backend{CudaGpu, HipGpu} {
		if contains(available, b) {
			return b, true
		}
	}
	return 0, false
}

// SelectBackend maps a preference and workload size to a backend label.
func SelectBackend(pref Preference, available []Backend, workload int) Backend {
	switch pref {
	case PreferGpu:
		if b, ok := bestGpu(available); ok {
			return b
		}
		return HipCpu
	case PreferAsm:
		return AsmSimd
	case PreferCpu, PreferLowPower:
		return PureCpu
	}

	switch {
	case workload > GpuThreshold:
		if b, ok := bestGpu(available); ok {
			return b
		}
		return AsmSimd
	case workload > SimdThreshold:
		return AsmSimd
	}
	return PureCpu
}

// AnalyzeWorkload returns the largest array size among top-level data
// declarations, or 0 when there are none.
func AnalyzeWorkload(program *ast.Program) int {
	size := 0
	for _, stmt := range program.Statements {
		decl, ok := stmt.(*ast.DataDecl)
		if ok && decl.Type.IsArray() && decl.Type.Size > size {
			size = decl.Type.Size
		}
	}
	return size
}
