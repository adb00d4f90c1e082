package server

import (
	"sync"
)

const DefaultPoolSize = 64

// WorkerPool runs at most Size jobs at a time. Submit blocks while the
// pool is saturated, so callers never queue more work than it can run.
type WorkerPool struct {
	cwork chan int
	wg    sync.WaitGroup
}

// NewWorkerPool returns a pool of the given size, or DefaultPoolSize when
// size is not positive.
func NewWorkerPool(size int) *WorkerPool {

	if size <= 0 {
		size = DefaultPoolSize
	}

	return &WorkerPool{
		cwork: make(chan int, size),
	}
}

// Submit starts job once a slot is free.
func (wp *WorkerPool) Submit(job func()) {

	wp.cwork <- 1 // add work
	wp.wg.Add(1)

	go func() {
		defer func() {
			<-wp.cwork // remove work
			wp.wg.Done()
		}()
		job()
	}()
}

func (wp *WorkerPool) Size() int { return cap(wp.cwork) }

// Running reports how many jobs currently hold a slot.
func (wp *WorkerPool) Running() int { return len(wp.cwork) }

// Wait blocks until every submitted job has returned. It must not race
// with Submit.
func (wp *WorkerPool) Wait() {
	wp.wg.Wait()
}
