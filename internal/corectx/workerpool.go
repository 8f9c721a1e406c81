package corectx

import (
	"errors"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

// analysisPool wraps a single ants.Pool sized to worker_thread_count,
// adapted from the reference corpus's WorkerPoolFactory but narrowed
// to the one pool the core actually needs (the shared analysis queue);
// the per-name pool registry the teacher builds has no use here since
// CoreContext owns exactly one queue.
type analysisPool struct {
	logger *zap.Logger
	pool   *ants.Pool
}

func newAnalysisPool(size int, logger *zap.Logger) (*analysisPool, error) {
	if size <= 0 {
		size = ants.DefaultAntsPoolSize
	}
	options := ants.Options{
		ExpiryDuration:   10 * time.Minute,
		PreAlloc:         true,
		MaxBlockingTasks: 1000,
		PanicHandler: func(rec interface{}) {
			logger.Error("analysis task panicked", zap.Any("recover", rec))
		},
	}
	p, err := ants.NewPool(size, ants.WithOptions(options))
	if err != nil {
		return nil, err
	}
	return &analysisPool{logger: logger, pool: p}, nil
}

// Submit runs task on the pool, returning ErrPoolClosed/ErrPoolOverloaded
// translated from ants' sentinel errors.
func (p *analysisPool) Submit(task func()) error {
	err := p.pool.Submit(task)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ants.ErrPoolClosed):
		return ErrPoolClosed
	case errors.Is(err, ants.ErrPoolOverload):
		return ErrPoolOverloaded
	default:
		return err
	}
}

func (p *analysisPool) Running() int { return p.pool.Running() }
func (p *analysisPool) Cap() int     { return p.pool.Cap() }

func (p *analysisPool) Release() {
	p.pool.Release()
}
