package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/unixpickle/dnc"
	"github.com/unixpickle/dnc/internal/checkpoint"
	"github.com/unixpickle/dnc/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "dnc",
	Short: "Differentiable neural computer memory engine",
	Long:  "dnc runs a recurrent controller coupled to a differentiable external memory, locally or over HTTP.",
}

var cfg = config.Default()

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfg.Checkpoint.Path, "db", "", "Checkpoint database path (default ~/.dnc/checkpoints.db)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(checkpointsCmd)
}

// addMachineFlags binds the machine geometry flags of cmd to cfg.
func addMachineFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.IntVarP(&cfg.Machine.MemorySize, "memory-size", "N", cfg.Machine.MemorySize, "Number of memory locations")
	f.IntVarP(&cfg.Machine.WordSize, "word-size", "W", cfg.Machine.WordSize, "Width of each memory location")
	f.IntVarP(&cfg.Machine.ReadHeads, "read-heads", "R", cfg.Machine.ReadHeads, "Number of read heads")
	f.IntVar(&cfg.Machine.InputSize, "input-size", cfg.Machine.InputSize, "External input width")
	f.IntVar(&cfg.Machine.HiddenSize, "hidden-size", cfg.Machine.HiddenSize, "LSTM state size")
	f.IntVar(&cfg.Machine.OutputSize, "output-size", cfg.Machine.OutputSize, "Output width")
}

func openDB() (*checkpoint.DB, error) {
	path := cfg.Checkpoint.Path
	if path == "" {
		var err error
		path, err = checkpoint.DefaultDBPath()
		if err != nil {
			return nil, fmt.Errorf("resolve db path: %w", err)
		}
	}
	db, err := checkpoint.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

// loadMachine returns the checkpointed machine with the given id, or
// a fresh machine built from cfg when id is empty.
func loadMachine(db *checkpoint.DB, id string) (*dnc.Machine, error) {
	if id == "" {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return cfg.Machine.NewMachine()
	}
	m, _, err := db.Load(id)
	return m, err
}
