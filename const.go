package main

import (
	"bytes"
	"fmt"
	"runtime"
	"time"

	"github.com/voxelbrain/goptions"
	"go.uber.org/zap"
)

var logger *zap.Logger
var sugar *zap.SugaredLogger
var conf config

const (
	// VERSION is just the version number
	VERSION = "0.2.0"

	// DefaultChunkSize is the number of read pairs handed to a worker at once
	DefaultChunkSize = 1024

	// PlaceholderQuality is written for every base of a record without quality
	PlaceholderQuality = 'I'
)

type config struct {
	Config  string `goptions:"-c, --config, description='TOML config file, flags take precedence'" toml:"-"`
	Version bool   `goptions:"--version, description='Show version'" toml:"-"`
	Debug   bool   `goptions:"--debug, description='Show debug info'" toml:"debug"`

	Input   string `goptions:"-i, --input, description='Input fastq (R1), - for stdin'" toml:"input"`
	Input2  string `goptions:"-I, --input2, description='Input fastq R2, enables paired mode'" toml:"input2"`
	Output  string `goptions:"-o, --output, description='Output file, - for stdout; R1 output when -O is set'" toml:"output"`
	Output2 string `goptions:"-O, --output2, description='Output file for R2, paired reads are interleaved into -o without it'" toml:"output2"`
	Gzip    bool   `goptions:"-z, --gzip, description='Compress output written to stdout'" toml:"gzip"`

	Pat1 string `goptions:"-e, --pat1, description='Fixed string pattern to search for in R1'" toml:"pat1"`
	Pat2 string `goptions:"-E, --pat2, description='Fixed string pattern to search for in R2'" toml:"pat2"`
	Pat  string `goptions:"-F, --pat, description='Fixed string pattern to search for in either read'" toml:"pat"`
	Reg1 string `goptions:"-r, --reg1, description='Regex to search for in R1'" toml:"reg1"`
	Reg2 string `goptions:"-R, --reg2, description='Regex to search for in R2'" toml:"reg2"`
	Reg  string `goptions:"-P, --reg, description='Regex to search for in either read'" toml:"reg"`
	Both bool   `goptions:"-B, --both, description='Require both R1 and R2 to match'" toml:"both"`

	Invert bool `goptions:"-v, --invert, description='Invert pattern criteria (like grep -v)'" toml:"invert"`

	Process   int  `goptions:"-p, --process, description='How many workers to use'" toml:"process"`
	ChunkSize int  `goptions:"--chunk-size, description='Read pairs per work chunk'" toml:"chunk_size"`
	QueueSize int  `goptions:"--queue-size, description='Chunks queued ahead of the workers, 0 for twice the workers'" toml:"queue_size"`
	Progress  bool `goptions:"--progress, description='Show progress of input bytes on stderr'" toml:"progress"`

	Log  string        `goptions:"--log, description='Save log to file'" toml:"log"`
	Help goptions.Help `goptions:"-h, --help, description='Show this help'" toml:"-"`
}

func defaultConfig() config {
	return config{
		Input: "-", Output: "-",
		Process: runtime.NumCPU(), ChunkSize: DefaultChunkSize,
	}
}

// Record is a single fastq record
type Record struct {
	ID   []byte // header line without the leading '@'
	Seq  []byte
	Qual []byte // nil when the record carries no quality
}

// String as name says
func (r *Record) String() string {
	return fmt.Sprintf("@%s %s", r.ID, r.Seq)
}

// Name returns the identifier up to the first whitespace
func (r *Record) Name() string {
	if i := bytes.IndexAny(r.ID, " \t"); i >= 0 {
		return string(r.ID[:i])
	}
	return string(r.ID)
}

// ReadPair is the unit of filtering, R2 is nil for single end input
type ReadPair struct {
	R1 *Record
	R2 *Record
}

// Paired is true when both mates are present
func (p ReadPair) Paired() bool {
	return p.R1 != nil && p.R2 != nil
}

// Stats as name says, counters collected over one run
type Stats struct {
	Pairs  int64
	Kept   int64
	Chunks int64
}

func (s Stats) add(o Stats) Stats {
	return Stats{Pairs: s.Pairs + o.Pairs, Kept: s.Kept + o.Kept, Chunks: s.Chunks + o.Chunks}
}

// TicTocTimer is structure for timer
type TicTocTimer struct {
	duration time.Duration
	start    time.Time
	repeats  int64
}

// InitTimer is constructor with default values for timer
func InitTimer() *TicTocTimer {
	return &TicTocTimer{duration: 0, start: time.Now(), repeats: 0}
}

// Tic is start timer
func (timer *TicTocTimer) Tic() {
	timer.start = time.Now()
}

// Toc is pause timer
func (timer *TicTocTimer) Toc() {
	timer.duration += time.Since(timer.start)
	timer.repeats++
}

// TicToc is total time of timer
func (timer *TicTocTimer) TicToc() time.Duration {
	return timer.duration
}
