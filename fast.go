package main

import (
	"context"
	"io"
	"math"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
)

type pairSource interface {
	Next() (ReadPair, error)
}

type chunkWriter interface {
	writeChunk(pairs []ReadPair) error
}

// chunk is owned by one goroutine at a time: producer, worker, then writer
type chunk struct {
	seq   int64
	pairs []ReadPair
	out   chan chunkResult
}

type chunkResult struct {
	kept []ReadPair
	err  error
}

// haltFlag holds the first chunk that must not be written. Only chunks
// before it reach the output, so a failed run still writes an input prefix.
type haltFlag struct {
	at atomic.Int64

	mu    sync.Mutex
	err   error
	errAt int64
}

func newHaltFlag() *haltFlag {
	h := &haltFlag{errAt: math.MaxInt64}
	h.at.Store(math.MaxInt64)
	return h
}

func (h *haltFlag) trip(at int64, err error) {
	h.mu.Lock()
	if at < h.errAt {
		h.errAt = at
		h.err = err
	}
	h.mu.Unlock()

	for {
		cur := h.at.Load()
		if at >= cur || h.at.CompareAndSwap(cur, at) {
			return
		}
	}
}

func (h *haltFlag) tripped() bool {
	return h.at.Load() != math.MaxInt64
}

func (h *haltFlag) admits(seq int64) bool {
	return seq < h.at.Load()
}

func (h *haltFlag) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

type dispatcher struct {
	predicate *MatchPredicate
	workers   int
	chunkSize int
	queueSize int
}

func newDispatcher(predicate *MatchPredicate, workers, chunkSize, queueSize int) *dispatcher {
	workers = maxInt(workers, 1)
	if queueSize <= 0 {
		queueSize = 2 * workers
	}
	return &dispatcher{
		predicate: predicate,
		workers:   workers,
		chunkSize: maxInt(chunkSize, 1),
		queueSize: queueSize,
	}
}

// run filters every pair of src exactly once and hands kept pairs to sink
// in input order
func (d *dispatcher) run(ctx context.Context, src pairSource, sink chunkWriter) (Stats, error) {
	if d.workers == 1 {
		return d.runSequential(ctx, src, sink)
	}
	return d.runParallel(ctx, src, sink)
}

func (d *dispatcher) runParallel(ctx context.Context, src pairSource, sink chunkWriter) (Stats, error) {
	halt := newHaltFlag()
	jobs := make(chan *chunk, d.queueSize)
	// a chunk enters ordered before jobs, so the writer always waits on a
	// chunk that is queued or being processed
	ordered := make(chan *chunk, d.queueSize+d.workers)

	var stats Stats
	go d.produce(ctx, src, halt, jobs, ordered, &stats)

	var wg sync.WaitGroup
	for i := 0; i < d.workers; i++ {
		wg.Add(1)
		go d.work(i, jobs, halt, &wg)
	}

	var kept int64
	for c := range ordered {
		res := <-c.out
		if res.err != nil {
			halt.trip(c.seq, res.err)
			continue
		}
		if !halt.admits(c.seq) {
			continue
		}
		if err := sink.writeChunk(res.kept); err != nil {
			halt.trip(c.seq, err)
			continue
		}
		kept += int64(len(res.kept))
	}
	wg.Wait()

	stats.Kept = kept
	return stats, halt.Err()
}

// produce batches pairs into chunks until src ends, fails or the run halts
func (d *dispatcher) produce(ctx context.Context, src pairSource, halt *haltFlag, jobs, ordered chan<- *chunk, stats *Stats) {
	defer close(jobs)
	defer close(ordered)

	var seq int64
	for !halt.tripped() {
		if err := ctx.Err(); err != nil {
			halt.trip(seq, errors.Wrap(err, "interrupted"))
			return
		}

		pairs, err := readChunk(src, d.chunkSize)
		if len(pairs) > 0 {
			c := &chunk{seq: seq, pairs: pairs, out: make(chan chunkResult, 1)}
			ordered <- c
			jobs <- c
			seq++
			stats.Chunks++
			stats.Pairs += int64(len(pairs))
		}

		if err == io.EOF {
			return
		}
		if err != nil {
			halt.trip(seq, err)
			return
		}
	}
}

func (d *dispatcher) work(id int, jobs <-chan *chunk, halt *haltFlag, wg *sync.WaitGroup) {
	defer wg.Done()

	for c := range jobs {
		if !halt.admits(c.seq) {
			c.out <- chunkResult{}
			continue
		}

		kept, err := filterChunk(d.predicate, c.pairs)
		if err != nil {
			err = errors.Wrapf(err, "chunk %d", c.seq)
			halt.trip(c.seq, err)
		}
		sugar.Debugf("worker %d: chunk %d kept %d of %d pairs", id, c.seq, len(kept), len(c.pairs))
		c.pairs = nil
		c.out <- chunkResult{kept: kept, err: err}
	}
}

// readChunk returns up to n pairs and the error that ended the chunk early
func readChunk(src pairSource, n int) ([]ReadPair, error) {
	pairs := make([]ReadPair, 0, n)
	for len(pairs) < n {
		p, err := src.Next()
		if err != nil {
			return pairs, err
		}
		pairs = append(pairs, p)
	}
	return pairs, nil
}
