package corectx

import "github.com/hydraflowx/mevcore/internal/opportunity"

// scratchPool recycles the backing array AnalyzeBatch accumulates
// results into, adapted from the reference corpus's generic ObjectPool
// (internal/common/pool/object_pool.go) but narrowed to the one hot
// allocation the detection path actually repeats: a growing
// []opportunity.Opportunity slice rebuilt on every batch call.
type scratchPool struct {
	free chan *[]opportunity.Opportunity
}

func newScratchPool(size int) *scratchPool {
	p := &scratchPool{free: make(chan *[]opportunity.Opportunity, size)}
	for i := 0; i < size; i++ {
		buf := make([]opportunity.Opportunity, 0, 16)
		p.free <- &buf
	}
	return p
}

func (p *scratchPool) get() *[]opportunity.Opportunity {
	select {
	case buf := <-p.free:
		return buf
	default:
		buf := make([]opportunity.Opportunity, 0, 16)
		return &buf
	}
}

func (p *scratchPool) put(buf *[]opportunity.Opportunity) {
	*buf = (*buf)[:0]
	select {
	case p.free <- buf:
	default:
	}
}
