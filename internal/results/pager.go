package results

import "github.com/agenthands/cogniscan/internal/model"

const DefaultPageSize = 50

// Pager walks a batch's raw records. It is bound to one batch; a new batch
// needs a new pager.
type Pager struct {
	batch    *Batch
	pageSize int
	page     int
}

func NewPager(batch *Batch, pageSize int) *Pager {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Pager{batch: batch, pageSize: pageSize, page: 1}
}

func (p *Pager) Batch() *Batch { return p.batch }

func (p *Pager) TotalPages() int {
	n := p.batch.Len()
	return (n + p.pageSize - 1) / p.pageSize
}

func (p *Pager) Page() int { return p.page }

// Goto clamps page into [1, TotalPages].
func (p *Pager) Goto(page int) int {
	last := p.TotalPages()
	if page > last {
		page = last
	}
	if page < 1 {
		page = 1
	}
	p.page = page
	return p.page
}

func (p *Pager) Next() int { return p.Goto(p.page + 1) }
func (p *Pager) Prev() int { return p.Goto(p.page - 1) }

func (p *Pager) HasNext() bool { return p.page < p.TotalPages() }
func (p *Pager) HasPrev() bool { return p.page > 1 }

// Window returns the records on the current page, out-of-range labels included.
func (p *Pager) Window() []model.PredictionRecord {
	if p.batch == nil {
		return nil
	}
	start := (p.page - 1) * p.pageSize
	if start >= len(p.batch.Records) {
		return nil
	}
	end := start + p.pageSize
	if end > len(p.batch.Records) {
		end = len(p.batch.Records)
	}
	return p.batch.Records[start:end]
}
