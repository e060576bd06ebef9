// Package config loads harpy.yaml, the VM tuning knobs a compiled image
// runs under: operand-stack capacity, initial heap/GC threshold, and the
// call-stack frame limit.
//
// Grounded on funxy's internal/ext config loader (gopkg.in/yaml.v3 against
// a project-root YAML file); harpy.yaml plays the same role funxy.yaml
// plays there, scoped to the VM instead of the module/extension system.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// VM holds the tunables the interpreter reads at startup.
type VM struct {
	OperandStackSize int `yaml:"operand_stack_size"`
	InitialHeapBytes int `yaml:"initial_heap_bytes"`
	GCGrowthFactor   int `yaml:"gc_growth_factor"`
	CallStackFrames  int `yaml:"call_stack_frames"`
}

// Config is the top-level harpy.yaml document.
type Config struct {
	VM VM `yaml:"vm"`
}

// Default returns the tunables spec.md §4.6 assumes when no harpy.yaml is
// present: a 32-slot operand stack, a 1024-byte initial GC threshold.
func Default() *Config {
	return &Config{VM: VM{
		OperandStackSize: 32,
		InitialHeapBytes: 1024,
		GCGrowthFactor:   2,
		CallStackFrames:  256,
	}}
}

// Load reads harpy.yaml from path, falling back to Default() field-by-field
// for anything the file leaves zero.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	var onDisk Config
	if err := yaml.Unmarshal(data, &onDisk); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if onDisk.VM.OperandStackSize > 0 {
		cfg.VM.OperandStackSize = onDisk.VM.OperandStackSize
	}
	if onDisk.VM.InitialHeapBytes > 0 {
		cfg.VM.InitialHeapBytes = onDisk.VM.InitialHeapBytes
	}
	if onDisk.VM.GCGrowthFactor > 0 {
		cfg.VM.GCGrowthFactor = onDisk.VM.GCGrowthFactor
	}
	if onDisk.VM.CallStackFrames > 0 {
		cfg.VM.CallStackFrames = onDisk.VM.CallStackFrames
	}
	return cfg, nil
}
