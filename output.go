package main

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/biogo/hts/bgzf"
	"github.com/klauspost/pgzip"
	"github.com/pkg/errors"
	"github.com/shenwei356/bio/seq"
	"github.com/shenwei356/bio/seqio/fastx"
)

type compression int

const (
	plainText compression = iota
	gzipCompression
	bgzfCompression
)

func compressionFor(path string, gzipStdout bool) compression {
	switch {
	case strings.HasSuffix(path, ".bgz"):
		return bgzfCompression
	case strings.HasSuffix(path, ".gz"):
		return gzipCompression
	case (path == "" || path == "-") && gzipStdout:
		return gzipCompression
	}
	return plainText
}

// output writes fastq records to one destination
type output struct {
	name   string
	w      *bufio.Writer
	zw     io.WriteCloser
	closer io.Closer
	n      int64
}

// openOutput creates path, - is stdout
func openOutput(path string, gzipStdout bool, workers int) (*output, error) {
	c := compressionFor(path, gzipStdout)
	if path == "" || path == "-" {
		return newOutput("stdout", os.Stdout, nil, c, workers)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, newError(IOError, errors.Wrapf(err, "failed to create output directory for %s", path))
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, newError(IOError, errors.Wrapf(err, "failed to create %s", path))
	}

	o, err := newOutput(path, f, f, c, workers)
	if err != nil {
		f.Close()
		return nil, err
	}
	return o, nil
}

func newOutput(name string, w io.Writer, closer io.Closer, c compression, workers int) (*output, error) {
	o := &output{name: name, closer: closer}

	switch c {
	case gzipCompression:
		zw, err := pgzip.NewWriterLevel(w, pgzip.BestSpeed)
		if err != nil {
			return nil, newError(IOError, errors.Wrapf(err, "failed to create gzip writer for %s", name))
		}
		o.zw = zw
		w = zw
	case bgzfCompression:
		zw := bgzf.NewWriter(w, maxInt(workers, 1))
		o.zw = zw
		w = zw
	}

	o.w = bufio.NewWriterSize(w, 1<<16)
	return o, nil
}

// writeRecord writes r as a four line fastq record
func (o *output) writeRecord(r *Record) error {
	qual := r.Qual
	if qual == nil {
		qual = bytes.Repeat([]byte{PlaceholderQuality}, len(r.Seq))
	}

	var err error
	if len(r.Seq) == 0 {
		// fastx formats a record without quality as fasta
		_, err = fmt.Fprintf(o.w, "@%s\n\n+\n\n", r.ID)
	} else {
		record := &fastx.Record{Name: r.ID, Seq: &seq.Seq{Seq: r.Seq, Qual: qual}}
		_, err = o.w.Write(record.Format(0))
	}
	if err != nil {
		return newError(IOError, errors.Wrapf(err, "failed to write %s", o.name))
	}
	o.n++
	return nil
}

// Close flushes the buffer and the compressor before closing the file
func (o *output) Close() error {
	err := o.w.Flush()
	if o.zw != nil {
		if zerr := o.zw.Close(); err == nil {
			err = zerr
		}
	}
	if o.closer != nil {
		if cerr := o.closer.Close(); err == nil {
			err = cerr
		}
	}
	if err != nil {
		return newError(IOError, errors.Wrapf(err, "failed to close %s", o.name))
	}
	return nil
}

// pairWriter is the only writer of the outputs. Without a second output
// paired reads are interleaved.
type pairWriter struct {
	r1 *output
	r2 *output
}

// writeChunk writes kept pairs in order
func (w *pairWriter) writeChunk(pairs []ReadPair) error {
	for _, p := range pairs {
		if p.R1 != nil {
			if err := w.r1.writeRecord(p.R1); err != nil {
				return err
			}
		}
		if p.R2 != nil {
			dst := w.r2
			if dst == nil {
				dst = w.r1
			}
			if err := dst.writeRecord(p.R2); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close as name says
func (w *pairWriter) Close() error {
	err := w.r1.Close()
	if w.r2 != nil {
		if err2 := w.r2.Close(); err == nil {
			err = err2
		}
	}
	return err
}

// isBrokenPipe reports whether downstream (like `head`) closed stdout early
func isBrokenPipe(err error) bool {
	return err != nil && (errors.Is(err, syscall.EPIPE) || errors.Is(err, io.ErrClosedPipe))
}
