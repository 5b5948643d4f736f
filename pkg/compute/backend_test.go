package compute

import (
	"testing"

	"github.com/AndreeSalazar/Super-C-Runtime-Governed-by-Rust/pkg/parser"
)

func TestSelectBackend(t *testing.T) {
	cpuOnly := DetectBackends()
	withCuda := []Backend{CudaGpu, HipGpu, PureCpu, AsmSimd}
	withHip := []Backend{HipGpu, PureCpu}

	tests := []struct {
		name      string
		pref      Preference
		available []Backend
		workload  int
		want      Backend
	}{
		{"small auto", PreferAuto, cpuOnly, 5, PureCpu},
		{"simd threshold is exclusive", PreferAuto, cpuOnly, SimdThreshold, PureCpu},
		{"medium auto", PreferAuto, cpuOnly, 5000, AsmSimd},
		{"large auto without gpu", PreferAuto, cpuOnly, 200_000, AsmSimd},
		{"large auto with cuda", PreferAuto, withCuda, 200_000, CudaGpu},
		{"large auto with hip", PreferAuto, withHip, 200_000, HipGpu},
		{"gpu threshold is exclusive", PreferAuto, withCuda, GpuThreshold, AsmSimd},
		{"gpu preference without gpu", PreferGpu, cpuOnly, 5, HipCpu},
		{"gpu preference with cuda", PreferGpu, withCuda, 5, CudaGpu},
		{"asm preference", PreferAsm, cpuOnly, 5, AsmSimd},
		{"cpu preference", PreferCpu, withCuda, 200_000, PureCpu},
		{"low power", PreferLowPower, withCuda, 200_000, PureCpu},
		{"empty program", PreferAuto, cpuOnly, 0, PureCpu},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SelectBackend(tt.pref, tt.available, tt.workload); got != tt.want {
				t.Errorf("SelectBackend(%s, %d) = %s, want %s", tt.pref, tt.workload, got, tt.want)
			}
		})
	}
}

func TestAnalyzeWorkload(t *testing.T) {
	tests := []struct {
		src  string
		want int
	}{
		{"", 0},
		{"data s: f32", 0},
		{"data a: f32[10]\ndata b: f64[300]\ndata c: i32[7]", 300},
		{"seq {\n  data big: f32[100000]\n}\ndata a: f32[4]", 4},
	}
	for _, tt := range tests {
		prog, diags := parser.Parse(tt.src, "w.sc")
		if len(diags) > 0 {
			t.Fatalf("parse %q: %v", tt.src, diags)
		}
		if got := AnalyzeWorkload(prog); got != tt.want {
			t.Errorf("AnalyzeWorkload(%q) = %d, want %d", tt.src, got, tt.want)
		}
	}
}

func TestParsePreference(t *testing.T) {
	tests := map[string]Preference{
		"auto":      PreferAuto,
		"GPU":       PreferGpu,
		" cpu ":     PreferCpu,
		"asm":       PreferAsm,
		"low-power": PreferLowPower,
		"lowpower":  PreferLowPower,
		"low_power": PreferLowPower,
	}
	for in, want := range tests {
		got, err := ParsePreference(in)
		if err != nil {
			t.Errorf("ParsePreference(%q): %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ParsePreference(%q) = %s, want %s", in, got, want)
		}
	}
	if _, err := ParsePreference("quantum"); err == nil {
		t.Error("expected error for unknown preference")
	}
}

func TestBackendNames(t *testing.T) {
	tests := []struct {
		b           Backend
		id, display string
	}{
		{CudaGpu, "CudaGpu", "CUDA GPU"},
		{HipGpu, "HipGpu", "HIP GPU (AMD)"},
		{HipCpu, "HipCpu", "HIP-CPU"},
		{AsmSimd, "AsmSimd", "ASM SIMD (AVX)"},
		{PureCpu, "PureCpu", "Pure CPU"},
	}
	for _, tt := range tests {
		if tt.b.String() != tt.id || tt.b.DisplayName() != tt.display {
			t.Errorf("%d: got %s / %s", int(tt.b), tt.b.String(), tt.b.DisplayName())
		}
	}
	if got := Backend(42).String(); got != "Backend(42)" {
		t.Errorf("out of range backend = %q", got)
	}
}
