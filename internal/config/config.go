package config

import (
	"fmt"

	"github.com/unixpickle/dnc"
)

// Config holds all dnc configuration.
type Config struct {
	Machine    MachineConfig
	Server     ServerConfig
	Checkpoint CheckpointConfig
	Run        RunConfig
}

// MachineConfig describes the memory geometry and the
// controller built around it.
type MachineConfig struct {
	MemorySize int // N, number of locations
	WordSize   int // W, width of a location
	ReadHeads  int // R
	InputSize  int // external input width, excluding read vectors
	HiddenSize int // LSTM state size
	OutputSize int
}

type ServerConfig struct {
	Bind string
	Port int
}

type CheckpointConfig struct {
	Path string // empty means checkpoint.DefaultDBPath()
}

type RunConfig struct {
	Sequences int
	Steps     int
	Seed      int64
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Machine: MachineConfig{
			MemorySize: 256,
			WordSize:   64,
			ReadHeads:  4,
			InputSize:  32,
			HiddenSize: 128,
			OutputSize: 32,
		},
		Server: ServerConfig{
			Bind: "127.0.0.1",
			Port: 37780,
		},
		Run: RunConfig{
			Sequences: 1,
			Steps:     20,
			Seed:      1,
		},
	}
}

// Memory returns the memory geometry.
func (m MachineConfig) Memory() dnc.Config {
	return dnc.Config{
		MemorySize: m.MemorySize,
		WordSize:   m.WordSize,
		ReadHeads:  m.ReadHeads,
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if err := c.Machine.Memory().Validate(); err != nil {
		return err
	}
	sizes := []struct {
		name string
		val  int
	}{
		{"input size", c.Machine.InputSize},
		{"hidden size", c.Machine.HiddenSize},
		{"output size", c.Machine.OutputSize},
		{"sequence count", c.Run.Sequences},
		{"step count", c.Run.Steps},
	}
	for _, s := range sizes {
		if s.val <= 0 {
			return fmt.Errorf("invalid %s: %d", s.name, s.val)
		}
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	return nil
}

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}

// NewMachine builds a freshly initialized machine with an
// LSTM controller.
func (m MachineConfig) NewMachine() (*dnc.Machine, error) {
	ctrl, err := dnc.NewLSTMController(m.Memory(), m.InputSize, m.HiddenSize, m.OutputSize)
	if err != nil {
		return nil, err
	}
	return dnc.NewMachine(m.Memory(), ctrl)
}
