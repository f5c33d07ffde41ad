package memsys

import (
	"math"

	akitacache "github.com/sarchlab/akita/v4/mem/cache"
)

// CacheConfig holds direct-mapped cache configuration. Size and BlockSize
// must both be powers of two with BlockSize <= Size (enforced by
// config.CoreConfig.Validate before a Cache is ever constructed).
type CacheConfig struct {
	// Size is the total cache capacity in bytes.
	Size int
	// BlockSize is the cache line size in bytes.
	BlockSize int
	// HitLatency is the access latency in cycles on a hit.
	HitLatency uint64
	// MissPenalty is the additional latency in cycles on a miss, on top
	// of HitLatency (§4.7: "hitLatency + missPenalty on miss").
	MissPenalty uint64
}

// AccessResult reports the outcome of a single cache access.
type AccessResult struct {
	Hit     bool
	Latency uint64
}

// Statistics tracks cache access counts, mirroring the invariant in §8
// ("total bytes == cacheSize") with read/write/hit/miss/writeback
// counters for external observation.
type Statistics struct {
	Reads      uint64
	Writes     uint64
	Hits       uint64
	Misses     uint64
	Writebacks uint64
}

// Cache is a direct-mapped, write-back, write-allocate cache in front of a
// Memory backing store. Direct-mapped is modeled as the one-way-
// associative case of Akita's set-associative cache directory, so no
// hand-rolled tag/valid/dirty bookkeeping or victim selection is needed.
type Cache struct {
	config CacheConfig

	directory *akitacache.DirectoryImpl
	dataStore [][]byte

	backing *Memory
	stats   Statistics
}

// NewCache creates a direct-mapped cache of the given configuration backed
// by mem. config.Size and config.BlockSize are assumed already validated
// to be powers of two with BlockSize <= Size.
func NewCache(config CacheConfig, mem *Memory) *Cache {
	numBlocks := config.Size / config.BlockSize

	dataStore := make([][]byte, numBlocks)
	for i := range dataStore {
		dataStore[i] = make([]byte, config.BlockSize)
	}

	return &Cache{
		config: config,
		directory: akitacache.NewDirectory(
			numBlocks, // numSets: one set per block, since associativity is 1
			1,         // Associativity: direct-mapped
			config.BlockSize,
			akitacache.NewLRUVictimFinder(),
		),
		dataStore: dataStore,
		backing:   mem,
	}
}

// Config returns the cache's configuration.
func (c *Cache) Config() CacheConfig { return c.config }

// Stats returns a copy of the cache's access statistics.
func (c *Cache) Stats() Statistics { return c.stats }

func (c *Cache) blockAddr(addr uint64) uint64 {
	bs := uint64(c.config.BlockSize)
	return (addr / bs) * bs
}

func (c *Cache) blockIndex(block *akitacache.Block) int {
	return block.SetID*1 + block.WayID
}

// probe performs the lookup-or-miss-fetch sequence shared by every load
// and store, returning the resident block's data slice and whether the
// access was a hit. On miss, it evicts (with writeback if dirty) and
// fetches the new block from the backing store before returning, exactly
// as §4.7 specifies.
func (c *Cache) probe(addr uint64) (data []byte, offset uint64, hit bool) {
	blockAddr := c.blockAddr(addr)
	offset = addr - blockAddr

	block := c.directory.Lookup(0, blockAddr)
	if block != nil && block.IsValid {
		c.directory.Visit(block)
		return c.dataStore[c.blockIndex(block)], offset, true
	}

	victim := c.directory.FindVictim(blockAddr)
	victimData := c.dataStore[c.blockIndex(victim)]

	if victim.IsValid && victim.IsDirty {
		c.backing.Write(victim.Tag, victimData)
		c.stats.Writebacks++
	}

	fresh := c.backing.Read(blockAddr, c.config.BlockSize)
	copy(victimData, fresh)

	victim.Tag = blockAddr
	victim.IsValid = true
	victim.IsDirty = false
	c.directory.Visit(victim)

	return victimData, offset, false
}

// accessLatency returns the cycle cost of an access given its hit/miss
// outcome (§4.7).
func (c *Cache) accessLatency(hit bool) uint64 {
	if hit {
		return c.config.HitLatency
	}
	return c.config.HitLatency + c.config.MissPenalty
}

// readBytes copies n bytes starting at addr out of the cache, probing and
// copying a line at a time. A word or double need not fall within a
// single line (block=8B with an address that is 4 mod 8, §8's own
// scenarios, puts half a double in each of two lines); the loop below
// walks into however many lines the access actually touches. The overall
// access counts as a hit only if every line it touched was a hit.
func (c *Cache) readBytes(addr uint64, n int) (out []byte, hit bool) {
	out = make([]byte, n)
	hit = true
	bs := uint64(c.config.BlockSize)
	remaining, cur, pos := uint64(n), addr, 0
	for remaining > 0 {
		data, offset, lineHit := c.probe(cur)
		chunk := bs - offset
		if chunk > remaining {
			chunk = remaining
		}
		copy(out[pos:pos+int(chunk)], data[offset:offset+chunk])
		if !lineHit {
			hit = false
		}
		cur += chunk
		pos += int(chunk)
		remaining -= chunk
	}
	return out, hit
}

// writeBytes is readBytes's write-side counterpart: it copies in over
// however many lines the access touches, marking each dirty.
func (c *Cache) writeBytes(addr uint64, in []byte) (hit bool) {
	hit = true
	bs := uint64(c.config.BlockSize)
	remaining, cur, pos := uint64(len(in)), addr, 0
	for remaining > 0 {
		data, offset, lineHit := c.probe(cur)
		chunk := bs - offset
		if chunk > remaining {
			chunk = remaining
		}
		copy(data[offset:offset+chunk], in[pos:pos+int(chunk)])
		c.markDirty(cur)
		if !lineHit {
			hit = false
		}
		cur += chunk
		pos += int(chunk)
		remaining -= chunk
	}
	return hit
}

// LoadWord reads a 32-bit word at addr.
func (c *Cache) LoadWord(addr uint64) (value uint32, result AccessResult) {
	c.stats.Reads++
	data, hit := c.readBytes(addr, 4)
	if hit {
		c.stats.Hits++
	} else {
		c.stats.Misses++
	}
	return littleEndianWord(data), AccessResult{Hit: hit, Latency: c.accessLatency(hit)}
}

// StoreWord writes a 32-bit word at addr, marking the line(s) it touches
// dirty.
func (c *Cache) StoreWord(addr uint64, value uint32) AccessResult {
	c.stats.Writes++
	data := make([]byte, 4)
	putLittleEndianWord(data, value)
	hit := c.writeBytes(addr, data)
	if hit {
		c.stats.Hits++
	} else {
		c.stats.Misses++
	}
	return AccessResult{Hit: hit, Latency: c.accessLatency(hit)}
}

// LoadDouble reads a 64-bit IEEE-754 double at addr.
func (c *Cache) LoadDouble(addr uint64) (value float64, result AccessResult) {
	c.stats.Reads++
	data, hit := c.readBytes(addr, 8)
	if hit {
		c.stats.Hits++
	} else {
		c.stats.Misses++
	}
	bits := littleEndianDouble(data)
	return math.Float64frombits(bits), AccessResult{Hit: hit, Latency: c.accessLatency(hit)}
}

// StoreDouble writes a 64-bit IEEE-754 double at addr, marking the
// line(s) it touches dirty.
func (c *Cache) StoreDouble(addr uint64, value float64) AccessResult {
	c.stats.Writes++
	data := make([]byte, 8)
	putLittleEndianDouble(data, math.Float64bits(value))
	hit := c.writeBytes(addr, data)
	if hit {
		c.stats.Hits++
	} else {
		c.stats.Misses++
	}
	return AccessResult{Hit: hit, Latency: c.accessLatency(hit)}
}

func (c *Cache) markDirty(addr uint64) {
	block := c.directory.Lookup(0, c.blockAddr(addr))
	if block != nil {
		block.IsDirty = true
	}
}

// Flush writes back every dirty line and invalidates the cache.
func (c *Cache) Flush() {
	for _, set := range c.directory.GetSets() {
		for _, block := range set.Blocks {
			if block.IsValid && block.IsDirty {
				c.backing.Write(block.Tag, c.dataStore[c.blockIndex(block)])
				c.stats.Writebacks++
			}
			block.IsValid = false
			block.IsDirty = false
		}
	}
}

// Reset invalidates the cache without writeback and clears statistics.
func (c *Cache) Reset() {
	c.directory.Reset()
	c.stats = Statistics{}
}

func littleEndianWord(data []byte) uint32 {
	return uint32(data[0]) | uint32(data[1])<<8 |
		uint32(data[2])<<16 | uint32(data[3])<<24
}

func putLittleEndianWord(data []byte, v uint32) {
	data[0] = byte(v)
	data[1] = byte(v >> 8)
	data[2] = byte(v >> 16)
	data[3] = byte(v >> 24)
}

func littleEndianDouble(data []byte) uint64 {
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(data[i])
	}
	return v
}

func putLittleEndianDouble(data []byte, v uint64) {
	for i := 0; i < 8; i++ {
		data[i] = byte(v)
		v >>= 8
	}
}
