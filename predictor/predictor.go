// Package predictor implements the branch direction predictors usable
// by the pipeline's fetch stage: a saturating-counter table, a
// history-register table, and a table that combines the two.
package predictor

// Predictor guesses whether a branch at pc will be taken, and learns
// from the actual outcome once EX resolves it.
type Predictor interface {
	Predict(pc int) bool
	Update(pc int, taken bool)
}

// counterState is a 2-bit saturating counter: 0/1 predict not-taken,
// 2/3 predict taken.
type counterState uint8

const (
	stateStronglyNotTaken counterState = 0
	stateWeaklyNotTaken   counterState = 1
	stateWeaklyTaken      counterState = 2
	stateStronglyTaken    counterState = 3
)

func (c counterState) taken() bool { return c == stateWeaklyTaken || c == stateStronglyTaken }

func (c counterState) next(taken bool) counterState {
	if taken {
		if c == stateStronglyNotTaken {
			return stateWeaklyNotTaken
		}
		if c == stateWeaklyNotTaken {
			return stateStronglyTaken
		}
		return c
	}
	if c == stateStronglyTaken {
		return stateWeaklyTaken
	}
	if c == stateWeaklyTaken {
		return stateStronglyNotTaken
	}
	return c
}

// saturatingTableSize is the number of pc-indexed entries in the
// saturating predictor's table: 2^14, with the index taken from the
// low 14 bits of pc.
const saturatingTableSize = 1 << 14

// Saturating predicts purely from pc: a 2-bit saturating counter per
// table entry, indexed by the low bits of pc.
type Saturating struct {
	table [saturatingTableSize]counterState
}

// NewSaturating creates a saturating predictor with every counter
// initialized to the given 2-bit value.
func NewSaturating(initial int) *Saturating {
	p := &Saturating{}
	init := counterState(initial & 0x3)
	for i := range p.table {
		p.table[i] = init
	}
	return p
}

func (p *Saturating) index(pc int) int { return pc & (saturatingTableSize - 1) }

// Predict returns the direction predicted for the branch at pc.
func (p *Saturating) Predict(pc int) bool { return p.table[p.index(pc)].taken() }

// Update records the actual outcome of the branch at pc.
func (p *Saturating) Update(pc int, taken bool) {
	i := p.index(pc)
	p.table[i] = p.table[i].next(taken)
}

// bhrTableSize is the number of entries addressed by the 2-bit branch
// history register: 2^2.
const bhrTableSize = 1 << 2

// BHR predicts from a single global 2-bit branch history register,
// ignoring pc entirely.
type BHR struct {
	table [bhrTableSize]counterState
	bhr   counterState
}

// NewBHR creates a history-register predictor with the table and the
// history register both seeded to the given 2-bit value.
func NewBHR(initial int) *BHR {
	init := counterState(initial & 0x3)
	b := &BHR{bhr: init}
	for i := range b.table {
		b.table[i] = init
	}
	return b
}

func (p *BHR) index() int { return int(p.bhr) }

// Predict returns the direction predicted by the current history
// register's table entry. pc is accepted to satisfy Predictor but
// unused: this predictor only looks at branch history.
func (p *BHR) Predict(int) bool { return p.table[p.index()].taken() }

// Update records the actual outcome. The history register's table
// entry is updated; the register itself is never advanced, matching
// the reference predictor it is modeled on.
func (p *BHR) Update(_ int, taken bool) {
	i := p.index()
	p.table[i] = p.table[i].next(taken)
}

// combinedBHRSize/combinedPCSize mirror Saturating/BHR's table sizes;
// the combination table is caller-sized (bounded at 2^16) and indexed
// by XOR-ing the two.
const (
	combinedBHRSize = 1 << 2
	combinedPCSize  = 1 << 14
	maxCombinedSize = 1 << 16
)

// Combined predicts from a table indexed by XOR-ing a branch-history
// entry with a pc-indexed entry, so it can capture correlations
// between recent branch history and the branch's own location.
type Combined struct {
	bhrTable    [combinedBHRSize]counterState
	bhr         counterState
	pcTable     [combinedPCSize]counterState
	combination []counterState
}

// NewCombined creates a combined predictor with every table seeded to
// the given 2-bit value. size is the combination table's length and
// must not exceed 2^16.
func NewCombined(initial, size int) *Combined {
	if size > maxCombinedSize {
		size = maxCombinedSize
	}
	init := counterState(initial & 0x3)
	c := &Combined{bhr: init, combination: make([]counterState, size)}
	for i := range c.bhrTable {
		c.bhrTable[i] = init
	}
	for i := range c.pcTable {
		c.pcTable[i] = init
	}
	for i := range c.combination {
		c.combination[i] = init
	}
	return c
}

func (p *Combined) indices(pc int) (bhrIdx, pcIdx, combIdx int) {
	bhrIdx = int(p.bhr)
	pcIdx = pc & (combinedPCSize - 1)
	combIdx = (int(p.bhr) << 14) ^ (int(p.pcTable[pcIdx]) << 2)
	if len(p.combination) > 0 {
		combIdx %= len(p.combination)
	}
	return bhrIdx, pcIdx, combIdx
}

// Predict returns the direction predicted by the combination table
// entry selected by the current history and pc.
func (p *Combined) Predict(pc int) bool {
	_, _, combIdx := p.indices(pc)
	return p.combination[combIdx].taken()
}

// Update records the actual outcome of the branch at pc, advancing the
// branch-history table, the pc table, and the combination table.
func (p *Combined) Update(pc int, taken bool) {
	bhrIdx, pcIdx, combIdx := p.indices(pc)
	p.bhrTable[bhrIdx] = p.bhrTable[bhrIdx].next(taken)
	p.pcTable[pcIdx] = p.pcTable[pcIdx].next(taken)
	p.combination[combIdx] = p.combination[combIdx].next(taken)
}
