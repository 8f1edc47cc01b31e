package systems

import (
	"bytes"
	"fmt"
	"math/rand"
)

// Genome is a fixed-length program of gene symbols, read cyclically.
type Genome []byte

// ParseGenome validates s against the gene alphabet.
func ParseGenome(s string, alphabet []byte) (Genome, error) {
	g := Genome(s)
	for i, sym := range g {
		if bytes.IndexByte(alphabet, sym) < 0 {
			return nil, fmt.Errorf("genome %q: symbol %q at %d not in alphabet %q", s, sym, i, alphabet)
		}
	}
	return g, nil
}

// String returns the genome as text.
func (g Genome) String() string { return string(g) }

// Clone returns an independent copy.
func (g Genome) Clone() Genome {
	out := make(Genome, len(g))
	copy(out, g)
	return out
}

// Mutate returns a copy with one uniformly chosen position set to a uniformly
// chosen alphabet symbol, and the mutated index. The symbol may equal the old one.
func (g Genome) Mutate(rng *rand.Rand, alphabet []byte) (Genome, int) {
	out := g.Clone()
	if len(out) == 0 || len(alphabet) == 0 {
		return out, -1
	}
	i := rng.Intn(len(out))
	out[i] = alphabet[rng.Intn(len(alphabet))]
	return out, i
}

// Diff returns the number of positions where g and other differ.
// Genomes of unequal length differ everywhere beyond the shorter one.
func (g Genome) Diff(other Genome) int {
	n := 0
	for i := 0; i < len(g) || i < len(other); i++ {
		if i >= len(g) || i >= len(other) || g[i] != other[i] {
			n++
		}
	}
	return n
}
