package cli

import (
	"fmt"
	"log"
	"math"
	"math/rand"

	"github.com/spf13/cobra"
	"github.com/unixpickle/dnc"
	"github.com/unixpickle/dnc/internal/checkpoint"
	"github.com/unixpickle/num-analysis/linalg"
)

var (
	runCheckpoint string
	runSave       string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Roll a machine out on random input sequences",
	Long: `Run feeds random input sequences through a machine and logs how
the memory is used at every step.

The machine is built from the geometry flags with freshly drawn
parameters, or loaded with --checkpoint.`,
	RunE: runRun,
}

func init() {
	addMachineFlags(runCmd)
	f := runCmd.Flags()
	f.IntVarP(&cfg.Run.Sequences, "sequences", "s", cfg.Run.Sequences, "Number of sequences to run")
	f.IntVarP(&cfg.Run.Steps, "steps", "t", cfg.Run.Steps, "Timesteps per sequence")
	f.Int64Var(&cfg.Run.Seed, "seed", cfg.Run.Seed, "Random seed")
	f.StringVar(&runCheckpoint, "checkpoint", "", "Load the machine from this checkpoint id")
	f.StringVar(&runSave, "save", "", "Save the machine as a checkpoint with this name")
}

func runRun(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	var db *checkpoint.DB
	if runCheckpoint != "" || runSave != "" {
		var err error
		db, err = openDB()
		if err != nil {
			return err
		}
		defer db.Close()
	}

	m, err := loadMachine(db, runCheckpoint)
	if err != nil {
		return fmt.Errorf("load machine: %w", err)
	}
	gen := rand.New(rand.NewSource(cfg.Run.Seed))
	if runCheckpoint == "" {
		m.Controller.ResetParameters(gen)
	}

	inSize := m.Controller.InputSize()
	seqs := make([][]linalg.Vector, cfg.Run.Sequences)
	for i := range seqs {
		seqs[i] = make([]linalg.Vector, cfg.Run.Steps)
		for t := range seqs[i] {
			in := make(linalg.Vector, inSize)
			for j := range in {
				in[j] = gen.NormFloat64()
			}
			seqs[i][t] = in
		}
	}

	log.Printf("run: N=%d W=%d R=%d, %d sequence(s) of %d steps",
		m.Config.MemorySize, m.Config.WordSize, m.Config.ReadHeads, len(seqs), cfg.Run.Steps)

	runner := dnc.NewRunner(m)
	for t, in := range seqs[0] {
		out := runner.StepTime(in)
		state := runner.State()
		log.Printf("run: t=%d usage=%.3f alloc-peak=%d write-peak=%d |out|=%.4f",
			t, sum(state.Sequence.Usage), argmax(state.Allocation),
			argmax(state.Sequence.WriteWeighting), norm(out))
	}

	if len(seqs) > 1 {
		outs := m.RunAll(seqs)
		for i, seqOut := range outs {
			last := seqOut[len(seqOut)-1]
			log.Printf("run: sequence %d final |out|=%.4f", i, norm(last))
		}
	}

	if runSave != "" {
		cp, err := db.Save(runSave, m)
		if err != nil {
			return err
		}
		fmt.Println(cp.ID)
	}
	return nil
}

func sum(v linalg.Vector) float64 {
	var res float64
	for _, x := range v {
		res += x
	}
	return res
}

func norm(v linalg.Vector) float64 {
	return math.Sqrt(v.Dot(v))
}

func argmax(v linalg.Vector) int {
	idx := 0
	for i, x := range v {
		if x > v[idx] {
			idx = i
		}
	}
	return idx
}
