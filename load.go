package main

import (
	"bufio"
	"io"
	"os"

	"github.com/klauspost/pgzip"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"github.com/shenwei356/bio/seq"
	"github.com/shenwei356/bio/seqio/fastx"
)

// input is a possibly gzipped fastq stream
type input struct {
	name   string
	r      io.Reader
	gz     *pgzip.Reader
	closer io.Closer
	bar    *progressbar.ProgressBar
}

type progressReader struct {
	r   io.Reader
	bar *progressbar.ProgressBar
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		_ = p.bar.Add(n)
	}
	return n, err
}

// openInput opens path, - is stdin
func openInput(path string, progress bool) (*input, error) {
	if path == "" || path == "-" {
		return newInput("stdin", os.Stdin, nil, nil)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, newError(IOError, errors.Wrapf(err, "failed to open %s", path))
	}

	var r io.Reader = f
	var bar *progressbar.ProgressBar
	if progress {
		size := int64(-1)
		if stats, err := f.Stat(); err == nil && stats.Mode().IsRegular() {
			size = stats.Size()
		}
		bar = progressbar.NewOptions64(
			size,
			progressbar.OptionSetDescription(path),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowBytes(true),
		)
		r = &progressReader{r: f, bar: bar}
	}

	in, err := newInput(path, r, f, bar)
	if err != nil {
		f.Close()
		return nil, err
	}
	return in, nil
}

// newInput sniffs the gzip magic bytes of r, the file suffix is not trusted
func newInput(name string, r io.Reader, closer io.Closer, bar *progressbar.ProgressBar) (*input, error) {
	in := &input{name: name, closer: closer, bar: bar}

	br := bufio.NewReaderSize(r, 1<<16)
	magic, err := br.Peek(2)
	if err != nil && err != io.EOF {
		return nil, newError(IOError, errors.Wrapf(err, "failed to read %s", name))
	}

	if len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := pgzip.NewReader(br)
		if err != nil {
			return nil, newError(IOError, errors.Wrapf(err, "failed to open gzip stream %s", name))
		}
		sugar.Debugf("%s is gzip compressed", name)
		in.gz = gz
		in.r = gz
	} else {
		in.r = br
	}
	return in, nil
}

func (in *input) Read(p []byte) (int, error) {
	return in.r.Read(p)
}

// Close as name says
func (in *input) Close() error {
	var err error
	if in.gz != nil {
		err = in.gz.Close()
	}
	if in.bar != nil {
		_ = in.bar.Finish()
	}
	if in.closer != nil {
		if cerr := in.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// RecordSource yields records in input order and io.EOF at the end
type RecordSource interface {
	Next() (*Record, error)
}

func init() {
	// records are filtered, not checked against an alphabet
	seq.ValidateSeq = false
}

// fastqSource adapts a fastx reader to RecordSource. Records are copied out
// of the reader, so they stay valid after the next call.
type fastqSource struct {
	name string
	r    *fastx.Reader
	n    int64
}

func newFastqSource(in *input) (*fastqSource, error) {
	s := &fastqSource{name: in.name}

	br := bufio.NewReaderSize(in, 1<<16)
	if _, err := br.Peek(1); err == io.EOF {
		// empty input has no records
		return s, nil
	} else if err != nil {
		return nil, newError(IOError, errors.Wrapf(err, "failed to read %s", in.name))
	}

	r, err := fastx.NewReaderFromIO(nil, br, fastx.DefaultIDRegexp)
	if err != nil {
		return nil, newError(ParseError, errors.Wrapf(err, "%s", in.name))
	}
	s.r = r
	return s, nil
}

// Next returns the next record or io.EOF
func (s *fastqSource) Next() (*Record, error) {
	if s.r == nil {
		return nil, io.EOF
	}

	record, err := s.r.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, newError(ParseError, errors.Wrapf(err, "%s: record %d", s.name, s.n+1))
	}
	if len(record.Seq.Qual) != len(record.Seq.Seq) {
		return nil, newError(ParseError, errors.Errorf("%s: record %d: sequence length %d but quality length %d",
			s.name, s.n+1, len(record.Seq.Seq), len(record.Seq.Qual)))
	}

	s.n++
	return &Record{
		ID:   append([]byte(nil), record.Name...),
		Seq:  append([]byte(nil), record.Seq.Seq...),
		Qual: append([]byte(nil), record.Seq.Qual...),
	}, nil
}

// PairSynchronizer advances one or two record sources in lock step
type PairSynchronizer struct {
	r1, r2 RecordSource
	n      int64
	err    error
}

// NewPairSynchronizer as name says, r2 is nil for single end input
func NewPairSynchronizer(r1, r2 RecordSource) *PairSynchronizer {
	return &PairSynchronizer{r1: r1, r2: r2}
}

// Next returns the next pair or io.EOF. Once it failed it keeps failing.
func (s *PairSynchronizer) Next() (ReadPair, error) {
	if s.err != nil {
		return ReadPair{}, s.err
	}

	rec1, err1 := s.r1.Next()
	if err1 != nil && err1 != io.EOF {
		s.err = err1
		return ReadPair{}, s.err
	}

	if s.r2 == nil {
		if err1 == io.EOF {
			s.err = io.EOF
			return ReadPair{}, s.err
		}
		s.n++
		return ReadPair{R1: rec1}, nil
	}

	rec2, err2 := s.r2.Next()
	if err2 != nil && err2 != io.EOF {
		s.err = err2
		return ReadPair{}, s.err
	}

	switch {
	case err1 == io.EOF && err2 == io.EOF:
		s.err = io.EOF
	case err1 == io.EOF:
		s.err = newErrorf(ShapeMismatchError, "R1 ended after %d records while R2 continues", s.n)
	case err2 == io.EOF:
		s.err = newErrorf(ShapeMismatchError, "R2 ended after %d records while R1 continues", s.n)
	}
	if s.err != nil {
		return ReadPair{}, s.err
	}

	s.n++
	return ReadPair{R1: rec1, R2: rec2}, nil
}

// Pairs is the number of pairs produced so far
func (s *PairSynchronizer) Pairs() int64 {
	return s.n
}
