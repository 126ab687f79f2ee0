// Command mipspipe assembles and cycle-step simulates a MIPS32 source
// file through the five-stage pipeline, printing per-cycle register
// and memory state to standard output.
package main

import (
	"fmt"
	"os"

	"github.com/sarchlab/mipspipe/asm"
	"github.com/sarchlab/mipspipe/isa"
	"github.com/sarchlab/mipspipe/pipeline"
	"github.com/sarchlab/mipspipe/predictor"
	"github.com/sarchlab/mipspipe/simerr"
	"github.com/spf13/cobra"
)

func main() {
	var predictorName string
	var combinedSize int
	var verbose bool

	run := func(cmd *cobra.Command, args []string) error {
		path := args[0]
		return runSimulation(path, predictorName, combinedSize, verbose)
	}

	rootCmd := &cobra.Command{
		Use:   "mipspipe <file>",
		Short: "Simulate a MIPS32 program through a 5-stage in-order pipeline",
		Args:  cobra.ExactArgs(1),
		RunE:  run,
	}
	rootCmd.Flags().StringVar(&predictorName, "predictor", "", "branch predictor: saturating, bhr, or combined (omit for ID-resolved baseline)")
	rootCmd.Flags().IntVar(&combinedSize, "combined-size", 0, "combination table size for --predictor combined (default 1<<14, max 1<<16)")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "echo load/entry diagnostics to stderr")

	runCmd := &cobra.Command{
		Use:   "run <file>",
		Short: "Simulate a MIPS32 program (same as the root command)",
		Args:  cobra.ExactArgs(1),
		RunE:  run,
	}
	runCmd.Flags().StringVar(&predictorName, "predictor", "", "branch predictor: saturating, bhr, or combined (omit for ID-resolved baseline)")
	runCmd.Flags().IntVar(&combinedSize, "combined-size", 0, "combination table size for --predictor combined (default 1<<14, max 1<<16)")
	runCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "echo load/entry diagnostics to stderr")
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runSimulation(path, predictorName string, combinedSize int, verbose bool) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if verbose {
		fmt.Fprintf(os.Stderr, "mipspipe: loading %s\n", path)
	}

	prog, err := asm.Parse(f)
	if err != nil {
		return fmt.Errorf("mipspipe: %w", err)
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "mipspipe: %d instructions, %d labels\n", len(prog.Instructions), len(prog.Labels))
	}

	sim, simErr := buildSimulator(prog.Instructions, prog.Labels, predictorName, combinedSize)
	if simErr != nil {
		reportFatal(simErr)
		os.Exit(simerr.ExitCode(simErr))
	}

	for !sim.Done() {
		sim.Tick()
		if err := sim.Err(); err != nil {
			if writeErr := pipeline.WriteCycleReport(os.Stdout, sim); writeErr != nil {
				return writeErr
			}
			reportFatal(err)
			os.Exit(simerr.ExitCode(err))
		}
		if err := pipeline.WriteCycleReport(os.Stdout, sim); err != nil {
			return err
		}
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "mipspipe: finished after %d cycles\n", sim.Cycle())
	}
	return nil
}

func buildSimulator(program []isa.Instruction, labels map[string]int, predictorName string, combinedSize int) (*pipeline.Simulator, error) {
	if predictorName == "" {
		return pipeline.New(program, labels)
	}

	cfg := predictor.DefaultConfig()
	cfg.Strategy = predictor.Strategy(predictorName)
	if combinedSize > 0 {
		cfg.CombinedSize = combinedSize
	}
	pred, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("mipspipe: %w", err)
	}
	return pipeline.NewPredicting(program, labels, pred)
}

func reportFatal(err error) {
	var se *simerr.Error
	if e, ok := err.(*simerr.Error); ok {
		se = e
	}
	if se != nil {
		fmt.Fprint(os.Stderr, se.Report())
		return
	}
	fmt.Fprintf(os.Stderr, "\nmipspipe: %v\n", err)
}
