package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/archsim/tomasulo/core"
	"github.com/archsim/tomasulo/isa"
)

// programFile is the JSON program representation this harness reads.
// Decoding an assembly mnemonic stream is explicitly out of scope (the
// core consumes an already-decoded []isa.Instruction); this is one
// concrete example of the "external collaborator that supplies a
// Program" spec.md's external-interfaces section describes, not a
// general-purpose assembler.
type programFile struct {
	Instructions []instructionJSON `json:"instructions"`

	InitialIntRegisters map[string]int64   `json:"initial_int_registers,omitempty"`
	InitialFPRegisters  map[string]float64 `json:"initial_fp_registers,omitempty"`
	InitialMemoryDouble map[string]float64 `json:"initial_memory_doubles,omitempty"`
	InitialMemoryWord   map[string]uint32  `json:"initial_memory_words,omitempty"`
}

type instructionJSON struct {
	Op        string `json:"op"`
	DestReg   int    `json:"dest_reg,omitempty"`
	SrcReg1   int    `json:"src_reg1,omitempty"`
	SrcReg2   int    `json:"src_reg2,omitempty"`
	BaseReg   int    `json:"base_reg,omitempty"`
	Offset    int64  `json:"offset,omitempty"`
	Immediate int64  `json:"immediate,omitempty"`
}

var opcodeByMnemonic = map[string]isa.Opcode{
	"LW":    isa.OpLW,
	"L.D":   isa.OpLD,
	"SW":    isa.OpSW,
	"S.D":   isa.OpSD,
	"DADD":  isa.OpDADD,
	"DSUB":  isa.OpDSUB,
	"DADDI": isa.OpDADDI,
	"DSUBI": isa.OpDSUBI,
	"AND":   isa.OpAND,
	"OR":    isa.OpOR,
	"XOR":   isa.OpXOR,
	"MULT":  isa.OpMULT,
	"DIV":   isa.OpDIV,
	"ADD.D": isa.OpADDD,
	"SUB.D": isa.OpSUBD,
	"MUL.D": isa.OpMULD,
	"DIV.D": isa.OpDIVD,
	"BEQ":   isa.OpBEQ,
	"BNE":   isa.OpBNE,
}

// loadProgram reads a JSON program file and returns the decoded
// instruction stream plus the CoreOptions needed to seed initial state.
func loadProgram(path string) ([]isa.Instruction, []core.CoreOption, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read program file: %w", err)
	}

	var pf programFile
	if err := json.Unmarshal(data, &pf); err != nil {
		return nil, nil, fmt.Errorf("failed to parse program file: %w", err)
	}

	program := make([]isa.Instruction, len(pf.Instructions))
	for i, ij := range pf.Instructions {
		op, ok := opcodeByMnemonic[ij.Op]
		if !ok {
			return nil, nil, fmt.Errorf("unknown opcode %q at instruction %d", ij.Op, i)
		}
		program[i] = isa.Instruction{
			Op:        op,
			DestReg:   ij.DestReg,
			SrcReg1:   ij.SrcReg1,
			SrcReg2:   ij.SrcReg2,
			BaseReg:   ij.BaseReg,
			Offset:    ij.Offset,
			Immediate: ij.Immediate,
		}
	}

	var opts []core.CoreOption
	for idx, v := range pf.InitialIntRegisters {
		i, err := parseIndex(idx)
		if err != nil {
			return nil, nil, fmt.Errorf("initial_int_registers: %w", err)
		}
		opts = append(opts, core.WithInitialIntRegister(i, v))
	}
	for idx, v := range pf.InitialFPRegisters {
		i, err := parseIndex(idx)
		if err != nil {
			return nil, nil, fmt.Errorf("initial_fp_registers: %w", err)
		}
		opts = append(opts, core.WithInitialRegister(i, v))
	}
	for idx, v := range pf.InitialMemoryDouble {
		addr, err := parseAddr(idx)
		if err != nil {
			return nil, nil, fmt.Errorf("initial_memory_doubles: %w", err)
		}
		opts = append(opts, core.WithInitialMemoryDouble(addr, v))
	}
	for idx, v := range pf.InitialMemoryWord {
		addr, err := parseAddr(idx)
		if err != nil {
			return nil, nil, fmt.Errorf("initial_memory_words: %w", err)
		}
		opts = append(opts, core.WithInitialMemoryWord(addr, v))
	}

	return program, opts, nil
}

func parseIndex(s string) (int, error) {
	var i int
	if _, err := fmt.Sscanf(s, "%d", &i); err != nil {
		return 0, fmt.Errorf("invalid register index %q: %w", s, err)
	}
	return i, nil
}

func parseAddr(s string) (uint64, error) {
	var a uint64
	if _, err := fmt.Sscanf(s, "%d", &a); err != nil {
		return 0, fmt.Errorf("invalid address %q: %w", s, err)
	}
	return a, nil
}
