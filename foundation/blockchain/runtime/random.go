package runtime

import (
	"encoding/binary"
	"math/big"
)

// Parameters of the Lehmer generator behind Random.
const (
	randomMultiplier = 48271
	randomModulus    = 2147483647
)

// Random returns the next number of a deterministic sequence seeded from the
// transaction hash, the script bytes and the block time. Every node
// replaying the transaction draws the same numbers. Nested runtimes share
// the sequence of the outermost runtime.
func (rt *Runtime) Random() *big.Int {
	root := rt.root()

	if root.seed == nil {
		root.seed = root.initialSeed()
	}

	root.seed.Mul(root.seed, big.NewInt(randomMultiplier))
	root.seed.Mod(root.seed, big.NewInt(randomModulus))

	return new(big.Int).Set(root.seed)
}

// initialSeed mixes the inputs into 32 bytes and reduces them into the
// range of the generator. Zero would repeat forever, so it becomes one.
func (rt *Runtime) initialSeed() *big.Int {
	var buf [32]byte

	if tx := rt.cfg.Transaction; tx != nil {
		buf = tx.Hash()
	}

	for i, b := range rt.cfg.Script {
		buf[i%len(buf)] ^= b
	}

	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], rt.cfg.Time)
	for i := range ts {
		buf[i] ^= ts[i]
	}

	seed := new(big.Int).SetBytes(buf[:])
	seed.Mod(seed, big.NewInt(randomModulus))
	if seed.Sign() == 0 {
		seed.SetInt64(1)
	}

	return seed
}
