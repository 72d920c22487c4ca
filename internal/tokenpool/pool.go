// Package tokenpool bounds the number of concurrently outstanding deliveries.
//
// A Pool holds a fixed number of tokens. Acquire blocks while every token is
// held, which is the only intentional backpressure point of the sink: a
// saturated pool stalls whoever is trying to dispatch rather than queueing
// work without bound.
package tokenpool

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Pool is a bounded counting semaphore of delivery tokens.
type Pool struct {
	sem   *semaphore.Weighted
	max   int64
	inUse atomic.Int64
}

// Token authorizes one outstanding delivery. Release returns it to the pool.
type Token struct {
	pool *Pool
	once sync.Once
}

// New creates a pool holding max tokens.
func New(max int) (*Pool, error) {
	if max <= 0 {
		return nil, fmt.Errorf("pool max must be positive, got %d", max)
	}
	return &Pool{
		sem: semaphore.NewWeighted(int64(max)),
		max: int64(max),
	}, nil
}

// Acquire blocks until a token is available or ctx is done.
func (p *Pool) Acquire(ctx context.Context) (*Token, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	p.inUse.Add(1)
	return &Token{pool: p}, nil
}

// TryAcquire returns a token without blocking, or nil if none is available.
func (p *Pool) TryAcquire() *Token {
	if !p.sem.TryAcquire(1) {
		return nil
	}
	p.inUse.Add(1)
	return &Token{pool: p}
}

// Release returns the token to its pool. Only the first call has an effect.
func (t *Token) Release() {
	t.once.Do(func() {
		t.pool.inUse.Add(-1)
		t.pool.sem.Release(1)
	})
}

// Max returns the pool capacity.
func (p *Pool) Max() int {
	return int(p.max)
}

// InUse returns the number of tokens currently held.
func (p *Pool) InUse() int {
	return int(p.inUse.Load())
}

// Available returns the number of tokens that can be acquired right now.
func (p *Pool) Available() int {
	return int(p.max - p.inUse.Load())
}

// Drain blocks until every token is back in the pool or ctx is done.
// Acquire calls made while Drain is waiting queue behind it.
func (p *Pool) Drain(ctx context.Context) error {
	if err := p.sem.Acquire(ctx, p.max); err != nil {
		return err
	}
	p.sem.Release(p.max)
	return nil
}
