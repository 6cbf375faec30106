package main

import (
	"context"
	"io"

	"github.com/pkg/errors"
)

// runSequential is the single worker path, nothing runs concurrently
func (d *dispatcher) runSequential(ctx context.Context, src pairSource, sink chunkWriter) (Stats, error) {
	var stats Stats

	for {
		if err := ctx.Err(); err != nil {
			return stats, errors.Wrap(err, "interrupted")
		}

		pairs, err := readChunk(src, d.chunkSize)
		if len(pairs) > 0 {
			kept, ferr := filterChunk(d.predicate, pairs)
			if ferr != nil {
				return stats, errors.Wrapf(ferr, "chunk %d", stats.Chunks)
			}
			if werr := sink.writeChunk(kept); werr != nil {
				return stats, werr
			}
			sugar.Debugf("chunk %d kept %d of %d pairs", stats.Chunks, len(kept), len(pairs))

			stats = stats.add(Stats{Pairs: int64(len(pairs)), Kept: int64(len(kept)), Chunks: 1})
		}

		if err == io.EOF {
			return stats, nil
		}
		if err != nil {
			return stats, err
		}
	}
}
