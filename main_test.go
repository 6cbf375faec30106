package main

import (
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/pgzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeFile(t *testing.T, dir, name, text string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(text), 0644))
	return path
}

func writeGzipFile(t *testing.T, dir, name, text string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := pgzip.NewWriter(f)
	_, err = zw.Write([]byte(text))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return path
}

func readOutput(t *testing.T, path string) []*Record {
	t.Helper()
	in, err := openInput(path, false)
	require.NoError(t, err)
	defer in.Close()

	src, err := newFastqSource(in)
	require.NoError(t, err)
	recs, err := readAll(t, src)
	require.NoError(t, err)
	return recs
}

func names(recs []*Record) []string {
	res := make([]string, 0, len(recs))
	for _, r := range recs {
		res = append(res, r.Name())
	}
	return res
}

func planOf(t *testing.T, c config) *plan {
	t.Helper()
	p, err := newPlan(c)
	require.NoError(t, err)
	return p
}

func TestRunSingleEnd(t *testing.T) {
	dir := t.TempDir()

	for _, workers := range []int{1, 3} {
		c := defaultConfig()
		c.Input = writeFile(t, dir, "in.fq", fastq(
			"r1", "TTTTTT", "r2", "AACGTA", "r3", "GGGGGG", "r4", "CCCCCC", "r5", "acgttt"))
		c.Output = filepath.Join(dir, "out.fq")
		c.Pat1 = "ACGT"
		c.Process = workers
		c.ChunkSize = 2

		stats, err := run(context.Background(), planOf(t, c))
		require.NoError(t, err)
		assert.Equal(t, Stats{Pairs: 5, Kept: 2, Chunks: 3}, stats)

		recs := readOutput(t, c.Output)
		assert.Equal(t, []string{"r2", "r5"}, names(recs))
		assert.Equal(t, "acgttt", string(recs[1].Seq), "records are written unchanged")
	}
}

func TestRunPairedSplit(t *testing.T) {
	dir := t.TempDir()

	c := defaultConfig()
	c.Input = writeGzipFile(t, dir, "r1.fq.gz", fastq("p1", "TACT", "p2", "TACT", "p3", "TTTT", "p4", "ACGT"))
	c.Input2 = writeFile(t, dir, "r2.fq", fastq("p1", "AGTA", "p2", "AAAA", "p3", "AGTA", "p4", "GTGT"))
	c.Output = filepath.Join(dir, "out", "r1.fq.gz")
	c.Output2 = filepath.Join(dir, "out", "r2.fq.bgz")
	c.Pat1, c.Pat2, c.Both = "AC", "GT", true
	c.Process = 2
	c.ChunkSize = 1

	stats, err := run(context.Background(), planOf(t, c))
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Kept)

	r1, r2 := readOutput(t, c.Output), readOutput(t, c.Output2)
	assert.Equal(t, []string{"p1", "p4"}, names(r1))
	assert.Equal(t, names(r1), names(r2))
	assert.Equal(t, "GTGT", string(r2[1].Seq))

	// .gz output is a plain gzip stream
	f, err := os.Open(c.Output)
	require.NoError(t, err)
	defer f.Close()
	zr, err := gzip.NewReader(f)
	require.NoError(t, err)
	text, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Equal(t, fastq("p1", "TACT", "p4", "ACGT"), string(text))
}

func TestRunPairedInterleaved(t *testing.T) {
	dir := t.TempDir()

	c := defaultConfig()
	c.Input = writeFile(t, dir, "r1.fq", fastq("p1", "TTTT", "p2", "TACT", "p3", "TTTT", "p4", "GGGG"))
	c.Input2 = writeFile(t, dir, "r2.fq", fastq("p1", "AAAA", "p2", "AAAA", "p3", "CCCC", "p4", "AAAA"))
	c.Output = filepath.Join(dir, "out.fq")
	c.Pat1, c.Pat2, c.Invert = "AC", "GT", true
	c.Process = 4
	c.ChunkSize = 1

	stats, err := run(context.Background(), planOf(t, c))
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Kept)

	recs := readOutput(t, c.Output)
	assert.Equal(t, []string{"p1", "p1", "p3", "p3", "p4", "p4"}, names(recs))
	assert.Equal(t, "TTTT", string(recs[0].Seq))
	assert.Equal(t, "AAAA", string(recs[1].Seq))
}

func TestRunShapeMismatch(t *testing.T) {
	dir := t.TempDir()

	for _, workers := range []int{1, 4} {
		c := defaultConfig()
		c.Input = writeFile(t, dir, "r1.fq", fastq("p1", "ACAC", "p2", "ACAC", "p3", "ACAC"))
		c.Input2 = writeFile(t, dir, "r2.fq", fastq("p1", "ACAC", "p2", "ACAC"))
		c.Output = filepath.Join(dir, "r1.out.fq")
		c.Output2 = filepath.Join(dir, "r2.out.fq")
		c.Pat = "AC"
		c.Process = workers

		_, err := run(context.Background(), planOf(t, c))
		require.Error(t, err)
		assert.Equal(t, ShapeMismatchError, KindOf(err))
		assert.Equal(t, 1, exitCode(err))

		r1, r2 := readOutput(t, c.Output), readOutput(t, c.Output2)
		assert.LessOrEqual(t, len(r1), 2)
		assert.Equal(t, names(r1), names(r2))
	}
}

func TestRunParseError(t *testing.T) {
	dir := t.TempDir()

	c := defaultConfig()
	c.Input = writeFile(t, dir, "in.fq", fastq("r1", "ACGT")+"@r2\nACGT\n+\nII\n")
	c.Output = filepath.Join(dir, "out.fq")
	c.Pat1 = "ACGT"
	c.Process = 2

	_, err := run(context.Background(), planOf(t, c))
	require.Error(t, err)
	assert.Equal(t, ParseError, KindOf(err))
	assert.Equal(t, []string{"r1"}, names(readOutput(t, c.Output)))
}

func TestRunMissingInput(t *testing.T) {
	dir := t.TempDir()

	c := defaultConfig()
	c.Input = filepath.Join(dir, "missing.fq")
	c.Output = filepath.Join(dir, "out.fq")
	c.Pat1 = "ACGT"

	_, err := run(context.Background(), planOf(t, c))
	require.Error(t, err)
	assert.Equal(t, IOError, KindOf(err))

	_, statErr := os.Stat(c.Output)
	assert.True(t, os.IsNotExist(statErr), "outputs are not created when inputs fail")
}

func quietLogger() {
	logger = zap.NewNop()
	sugar = logger.Sugar()
}

func TestFqgrepClosedStdout(t *testing.T) {
	defer quietLogger()
	dir := t.TempDir()

	input := writeFile(t, dir, "in.fq", strings.Repeat(fastq("r", "ACGTACGTAC"), 20000))
	log := filepath.Join(dir, "fqgrep.log")

	r, w, err := os.Pipe()
	require.NoError(t, err)
	require.NoError(t, r.Close())
	defer w.Close()

	stdout := os.Stdout
	os.Stdout = w
	defer func() { os.Stdout = stdout }()

	code := fqgrep([]string{"-i", input, "-e", "ACGT", "-p", "4", "--chunk-size", "64", "--log", log})
	assert.Equal(t, 0, code)

	data, err := os.ReadFile(log)
	require.NoError(t, err)
	assert.Contains(t, string(data), "output closed early")
}

func TestFqgrepExitCodes(t *testing.T) {
	defer quietLogger()
	dir := t.TempDir()
	log := filepath.Join(dir, "fqgrep.log")

	code := fqgrep([]string{"-i", "r1.fq", "-E", "GT", "--log", log})
	assert.Equal(t, 2, code)
	data, err := os.ReadFile(log)
	require.NoError(t, err)
	assert.Contains(t, string(data), "needs paired input")

	code = fqgrep([]string{"-e", "AC", "-e", "GT"})
	assert.Equal(t, 2, code)

	input := writeFile(t, dir, "in.fq", fastq("r1", "ACGT")+"@r2\nACGT\n+\nII\n")
	code = fqgrep([]string{"-i", input, "-o", filepath.Join(dir, "out.fq"), "-e", "AC", "--log", log})
	assert.Equal(t, 1, code)

	code = fqgrep([]string{"-i", input, "-o", filepath.Join(dir, "out.fq"), "-e", "TTTT"})
	assert.Equal(t, 1, code, "the parse error is fatal even when nothing matches")
}
