// Package main provides the entry point for the Tomasulo dynamic
// scheduling simulator.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/archsim/tomasulo/config"
	"github.com/archsim/tomasulo/core"
)

var (
	configPath = flag.String("config", "", "Path to core configuration JSON file")
	maxCycles  = flag.Uint64("max-cycles", 100000, "Safety cap on simulated cycles")
	verbose    = flag.Bool("v", false, "Verbose output")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: tomasulo [options] <program.json>\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	programPath := flag.Arg(0)

	cfg, err := loadCoreConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	program, opts, err := loadProgram(programPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading program: %v\n", err)
		os.Exit(1)
	}

	c, err := core.New(cfg, program, opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error constructing core: %v\n", err)
		os.Exit(1)
	}

	if *verbose {
		fmt.Printf("Loaded: %s\n", programPath)
		fmt.Printf("Instructions: %d\n", len(program))
	}

	snaps := c.Run(*maxCycles)

	if !c.Done() {
		fmt.Fprintf(os.Stderr, "Warning: simulation did not terminate within %d cycles\n", *maxCycles)
	}

	stats := c.Stats()
	fmt.Printf("\n")
	fmt.Printf("Program: %s\n", programPath)
	fmt.Printf("Cycles: %d\n", stats.Cycles)
	fmt.Printf("Instructions completed: %d\n", stats.InstructionsCompleted)
	fmt.Printf("CPI: %.2f\n", stats.CPI())

	if *verbose {
		fmt.Printf("\nStation utilization (busy cycles):\n")
		for kind, n := range stats.StationUtilization {
			fmt.Printf("  %-16s %d\n", kind, n)
		}
		if len(snaps) > 0 {
			last := snaps[len(snaps)-1]
			fmt.Printf("\nFinal log:\n")
			for _, line := range last.Log {
				fmt.Printf("  %s\n", line)
			}
		}
	}
}

func loadCoreConfig() (*config.CoreConfig, error) {
	if *configPath == "" {
		return config.DefaultCoreConfig(), nil
	}
	return config.LoadConfig(*configPath)
}
