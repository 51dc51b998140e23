package sched

import (
	"errors"
	"fmt"
	"os"

	yaml "github.com/goccy/go-yaml"
	"github.com/inhies/go-bytesize"
)

const (
	// TableCapacity bounds the task table, idle task included.
	TableCapacity = 16

	MinStackSize     = 256
	DefaultStackSize = 1024
	DefaultHeapSize  = 16 * 1024
)

// Config mirrors the scheduler section of a scenario file.
type Config struct {
	TickMS              int    `yaml:"tick_ms"`              // 1 (by default)
	Capacity            int    `yaml:"capacity"`             // 16 (by default), never more
	Policy              string `yaml:"policy"`               // "first-match" (by default) or "highest"
	PriorityInheritance bool   `yaml:"priority_inheritance"` // off (by default)
	StackSize           string `yaml:"stack_size"`           // "1KB" (by default)
	HeapSize            string `yaml:"heap_size"`            // "16KB" (by default)
}

// If the config file is not found, we use default values
func DefaultConfig() Config {
	return Config{
		TickMS:    1,
		Capacity:  TableCapacity,
		Policy:    PolicyFirstMatch.String(),
		StackSize: "1KB",
		HeapSize:  "16KB",
	}
}

// Load reads YAML and overrides defaults; empty path = defaults only.
// A missing or unreadable file yields the defaults together with the error.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("parse %s: %w", path, err)
	}
	if cfg, err = cfg.clamp(); err != nil {
		return DefaultConfig(), fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// sanity clamps. An invalid field falls back to its own default and is
// reported; the other fields are kept.
func (c Config) clamp() (Config, error) {
	def := DefaultConfig()
	var errs []error
	if c.TickMS <= 0 {
		c.TickMS = def.TickMS
	}
	if c.Capacity <= 1 || c.Capacity > TableCapacity {
		c.Capacity = TableCapacity
	}
	if c.Policy == "" {
		c.Policy = def.Policy
	}
	if _, err := ParsePolicy(c.Policy); err != nil {
		c.Policy = def.Policy
		errs = append(errs, err)
	}
	if c.StackSize == "" {
		c.StackSize = def.StackSize
	}
	if _, err := parseSize(c.StackSize); err != nil {
		c.StackSize = def.StackSize
		errs = append(errs, fmt.Errorf("stack_size: %w", err))
	}
	if c.HeapSize == "" {
		c.HeapSize = def.HeapSize
	}
	if _, err := parseSize(c.HeapSize); err != nil {
		c.HeapSize = def.HeapSize
		errs = append(errs, fmt.Errorf("heap_size: %w", err))
	}
	return c, errors.Join(errs...)
}

// SelectionPolicy returns the parsed policy, falling back to first-match.
func (c Config) SelectionPolicy() Policy {
	p, err := ParsePolicy(c.Policy)
	if err != nil {
		return PolicyFirstMatch
	}
	return p
}

// StackBytes is the default stack size for tasks that do not set one.
func (c Config) StackBytes() int {
	n, err := parseSize(c.StackSize)
	if err != nil || n < MinStackSize {
		return DefaultStackSize
	}
	return n
}

func (c Config) HeapBytes() int {
	n, err := parseSize(c.HeapSize)
	if err != nil || n <= 0 {
		return DefaultHeapSize
	}
	return n
}

func parseSize(s string) (int, error) {
	b, err := bytesize.Parse(s)
	if err != nil {
		return 0, err
	}
	return int(b), nil
}
