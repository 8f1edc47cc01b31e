package components

// Energy is an organism's energy store. It never goes negative.
type Energy struct {
	Units int
}

// Age counts ticks survived since birth or the last division.
type Age struct {
	Ticks int
}

// Program is an organism's genome and the index of its next gene.
type Program struct {
	Genes []byte
	PC    int // always within [0, len(Genes))
}

// Owner links a plant cell to the plant that grew it.
type Owner struct {
	Plant uint32
}
