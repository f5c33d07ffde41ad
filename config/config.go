// Package config holds the core's tunable structural parameters: how many
// of each reservation station/buffer/unit exist, and every latency
// (§4.5's "Latency table", §4.7's cache parameters).
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/archsim/tomasulo/isa"
)

// CoreConfig holds the structural and timing parameters of one core
// instance. All values are loaded, validated, and cloned as a unit.
type CoreConfig struct {
	// NumIntRS is the number of integer ALU reservation stations.
	NumIntRS int `json:"num_int_rs"`
	// NumFPAddSubRS is the number of FP add/sub reservation stations.
	NumFPAddSubRS int `json:"num_fp_add_sub_rs"`
	// NumFPMulDivRS is the number of FP mul/div reservation stations.
	NumFPMulDivRS int `json:"num_fp_mul_div_rs"`
	// NumLoadBuffers is the number of load buffer slots.
	NumLoadBuffers int `json:"num_load_buffers"`
	// NumStoreBuffers is the number of store buffer slots.
	NumStoreBuffers int `json:"num_store_buffers"`
	// NumBranchHandlers is almost always 1 (§4.8: only one branch may be
	// outstanding at a time), but is left configurable.
	NumBranchHandlers int `json:"num_branch_handlers"`
	// NumAddressUnits is the number of address-computation units shared
	// by load and store buffers.
	NumAddressUnits int `json:"num_address_units"`

	// IntALULatency is the execution latency of DADD/DSUB/DADDI/DSUBI/
	// AND/OR/XOR/MULT/DIV, in cycles.
	IntALULatency uint64 `json:"int_alu_latency"`
	// FPAddSubLatency is the execution latency of ADD.D/SUB.D.
	FPAddSubLatency uint64 `json:"fp_add_sub_latency"`
	// FPMulLatency is the execution latency of MUL.D.
	FPMulLatency uint64 `json:"fp_mul_latency"`
	// FPDivLatency is the execution latency of DIV.D.
	FPDivLatency uint64 `json:"fp_div_latency"`
	// AddressLatency is the latency of the address computation unit.
	AddressLatency uint64 `json:"address_latency"`

	// CacheSize is the total cache capacity in bytes.
	CacheSize int `json:"cache_size"`
	// CacheBlockSize is the cache line size in bytes.
	CacheBlockSize int `json:"cache_block_size"`
	// CacheHitLatency is the cache access latency in cycles on a hit.
	CacheHitLatency uint64 `json:"cache_hit_latency"`
	// CacheMissPenalty is the additional latency in cycles on a miss.
	CacheMissPenalty uint64 `json:"cache_miss_penalty"`

	// MemorySize is the size in bytes of the backing memory.
	MemorySize int `json:"memory_size"`

	// NumIntRegs and NumFPRegs size the register file's two halves.
	NumIntRegs int `json:"num_int_regs"`
	NumFPRegs  int `json:"num_fp_regs"`
}

// DefaultCoreConfig returns a CoreConfig with reasonable, small defaults
// suitable for the §8 example programs.
func DefaultCoreConfig() *CoreConfig {
	return &CoreConfig{
		NumIntRS:          3,
		NumFPAddSubRS:     3,
		NumFPMulDivRS:     3,
		NumLoadBuffers:    2,
		NumStoreBuffers:   2,
		NumBranchHandlers: 1,
		NumAddressUnits:   1,

		IntALULatency:   1,
		FPAddSubLatency: 2,
		FPMulLatency:    10,
		FPDivLatency:    40,
		AddressLatency:  1,

		CacheSize:        256,
		CacheBlockSize:   8,
		CacheHitLatency:  1,
		CacheMissPenalty: 10,

		MemorySize: 4096,

		NumIntRegs: 32,
		NumFPRegs:  32,
	}
}

// LoadConfig loads a CoreConfig from a JSON file, starting from
// DefaultCoreConfig so an incomplete file still yields a valid config.
func LoadConfig(path string) (*CoreConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read core config file: %w", err)
	}

	cfg := DefaultCoreConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse core config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid core config: %w", err)
	}

	return cfg, nil
}

// SaveConfig writes c to a JSON file.
func (c *CoreConfig) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize core config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write core config file: %w", err)
	}

	return nil
}

// Validate checks structural counts are positive, latencies are nonzero,
// and the cache geometry is sane (§4.7: block size must divide evenly
// into a power-of-two cache size for the index/tag split to be well
// defined).
func (c *CoreConfig) Validate() error {
	if c.NumIntRS <= 0 {
		return fmt.Errorf("num_int_rs must be > 0")
	}
	if c.NumFPAddSubRS <= 0 {
		return fmt.Errorf("num_fp_add_sub_rs must be > 0")
	}
	if c.NumFPMulDivRS <= 0 {
		return fmt.Errorf("num_fp_mul_div_rs must be > 0")
	}
	if c.NumLoadBuffers <= 0 {
		return fmt.Errorf("num_load_buffers must be > 0")
	}
	if c.NumStoreBuffers <= 0 {
		return fmt.Errorf("num_store_buffers must be > 0")
	}
	if c.NumBranchHandlers <= 0 {
		return fmt.Errorf("num_branch_handlers must be > 0")
	}
	if c.NumAddressUnits <= 0 {
		return fmt.Errorf("num_address_units must be > 0")
	}
	if c.IntALULatency == 0 {
		return fmt.Errorf("int_alu_latency must be > 0")
	}
	if c.FPAddSubLatency == 0 {
		return fmt.Errorf("fp_add_sub_latency must be > 0")
	}
	if c.FPMulLatency == 0 {
		return fmt.Errorf("fp_mul_latency must be > 0")
	}
	if c.FPDivLatency == 0 {
		return fmt.Errorf("fp_div_latency must be > 0")
	}
	if c.AddressLatency == 0 {
		return fmt.Errorf("address_latency must be > 0")
	}
	if !isPowerOfTwo(c.CacheSize) {
		return fmt.Errorf("cache_size must be a power of two")
	}
	if !isPowerOfTwo(c.CacheBlockSize) {
		return fmt.Errorf("cache_block_size must be a power of two")
	}
	if c.CacheBlockSize > c.CacheSize {
		return fmt.Errorf("cache_block_size must be <= cache_size")
	}
	if c.CacheHitLatency == 0 {
		return fmt.Errorf("cache_hit_latency must be > 0")
	}
	if c.MemorySize <= 0 {
		return fmt.Errorf("memory_size must be > 0")
	}
	if c.MemorySize%c.CacheBlockSize != 0 {
		return fmt.Errorf("memory_size must be a multiple of cache_block_size")
	}
	if c.NumIntRegs <= 0 {
		return fmt.Errorf("num_int_regs must be > 0")
	}
	if c.NumFPRegs <= 0 {
		return fmt.Errorf("num_fp_regs must be > 0")
	}
	return nil
}

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// Clone returns a deep copy of c. CoreConfig has no reference fields, so
// this is a plain value copy, matching the teacher's Clone semantics.
func (c *CoreConfig) Clone() *CoreConfig {
	clone := *c
	return &clone
}

// LatencyFor returns the configured execution latency for op, dispatching
// on its functional unit class (§4.5's latency table). fu.Unit is
// deliberately config-agnostic, so core wires this in as the
// fu.LatencyFunc for every functional unit pool it builds.
func (c *CoreConfig) LatencyFor(op isa.Opcode) uint64 {
	switch isa.ClassOf(op) {
	case isa.FUIntALU:
		return c.IntALULatency
	case isa.FUFPAddSub:
		return c.FPAddSubLatency
	case isa.FUFPMulDiv:
		if op == isa.OpDIVD {
			return c.FPDivLatency
		}
		return c.FPMulLatency
	default:
		return 1
	}
}
