package results

import "github.com/agenthands/cogniscan/internal/model"

// Batch is an immutable record sequence together with everything derived from
// it. A new sequence is a new Batch; nothing is patched in place.
type Batch struct {
	Generation   uint64
	Records      []model.PredictionRecord
	Distribution []ClassShare
	Breakdowns   []Breakdown
}

// NewBatch copies records and computes the derived projections once.
func NewBatch(generation uint64, records []model.PredictionRecord) *Batch {
	owned := make([]model.PredictionRecord, len(records))
	copy(owned, records)
	return &Batch{
		Generation:   generation,
		Records:      owned,
		Distribution: Distribution(owned),
		Breakdowns:   Breakdowns(owned),
	}
}

func (b *Batch) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Records)
}

// ValidCount is the number of records that entered the distribution.
func (b *Batch) ValidCount() int {
	if b == nil {
		return 0
	}
	n := 0
	for _, s := range b.Distribution {
		n += s.Count
	}
	return n
}
