package monitor

import "time"

// SignalKind categorizes a health signal.
type SignalKind string

const (
	SignalNetwork SignalKind = "network"
	SignalPower   SignalKind = "power"
	SignalCPU     SignalKind = "cpu"
	SignalMemory  SignalKind = "memory"
	SignalStorage SignalKind = "storage"
)

// Signal codes forwarded to alert callbacks.
const (
	CodeNetwork = 101
	CodePower   = 102
	CodeCPU     = 103
	CodeMemory  = 104
	CodeStorage = 105
)

// Code returns the numeric code for a signal kind, or 0 for unknown kinds.
func (k SignalKind) Code() int {
	switch k {
	case SignalNetwork:
		return CodeNetwork
	case SignalPower:
		return CodePower
	case SignalCPU:
		return CodeCPU
	case SignalMemory:
		return CodeMemory
	case SignalStorage:
		return CodeStorage
	}
	return 0
}

// KindForCode is the inverse of Code. Returns "" for unknown codes.
func KindForCode(code int) SignalKind {
	switch code {
	case CodeNetwork:
		return SignalNetwork
	case CodePower:
		return SignalPower
	case CodeCPU:
		return SignalCPU
	case CodeMemory:
		return SignalMemory
	case CodeStorage:
		return SignalStorage
	}
	return ""
}

// Signal is one detected threshold breach. Signals are ephemeral: produced
// by a monitoring pass and handed to the alert callback, never stored.
type Signal struct {
	Kind      SignalKind `json:"kind"`
	Message   string     `json:"message"`
	Code      int        `json:"code"`
	Timestamp time.Time  `json:"timestamp"`
}

// RuleConfig is an operator-defined alert rule: an expr condition evaluated
// against each sample, a static message, and the code to fire with.
type RuleConfig struct {
	Condition string `yaml:"condition" json:"condition"`
	Message   string `yaml:"message" json:"message"`
	Code      int    `yaml:"code" json:"code"`
}

// Config tunes the monitor. Zero values select defaults.
type Config struct {
	Interval         time.Duration `yaml:"interval" json:"interval"`
	CPUThreshold     float64       `yaml:"cpu_threshold" json:"cpu_threshold"`
	MemoryThreshold  float64       `yaml:"memory_threshold" json:"memory_threshold"`
	DiskThreshold    float64       `yaml:"disk_threshold" json:"disk_threshold"`
	BatteryThreshold float64       `yaml:"battery_threshold" json:"battery_threshold"`
	DiskPath         string        `yaml:"disk_path" json:"disk_path"`
	Rules            []RuleConfig  `yaml:"rules" json:"rules"`
}

// Default monitor tuning.
const (
	DefaultInterval         = 10 * time.Second
	DefaultCPUThreshold     = 90.0
	DefaultMemoryThreshold  = 90.0
	DefaultDiskThreshold    = 90.0
	DefaultBatteryThreshold = 20.0
	DefaultDiskPath         = "/"
)

// DefaultConfig returns the default monitor configuration.
func DefaultConfig() Config {
	return Config{
		Interval:         DefaultInterval,
		CPUThreshold:     DefaultCPUThreshold,
		MemoryThreshold:  DefaultMemoryThreshold,
		DiskThreshold:    DefaultDiskThreshold,
		BatteryThreshold: DefaultBatteryThreshold,
		DiskPath:         DefaultDiskPath,
	}
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.CPUThreshold <= 0 {
		c.CPUThreshold = DefaultCPUThreshold
	}
	if c.MemoryThreshold <= 0 {
		c.MemoryThreshold = DefaultMemoryThreshold
	}
	if c.DiskThreshold <= 0 {
		c.DiskThreshold = DefaultDiskThreshold
	}
	if c.BatteryThreshold <= 0 {
		c.BatteryThreshold = DefaultBatteryThreshold
	}
	if c.DiskPath == "" {
		c.DiskPath = DefaultDiskPath
	}
	return c
}
