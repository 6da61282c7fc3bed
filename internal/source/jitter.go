package source

import (
	"encoding/binary"
	"math/rand"

	"github.com/cespare/xxhash/v2"
)

// recordRand returns a generator seeded from seed and parts. The same inputs
// always yield the same sequence, so an unchanged record is synthesised
// identically on every fetch.
func recordRand(seed int64, parts ...string) *rand.Rand {
	d := xxhash.New()
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(seed))
	d.Write(b[:])
	for _, p := range parts {
		d.WriteString(p)
		d.Write([]byte{0})
	}
	return rand.New(rand.NewSource(int64(d.Sum64())))
}
