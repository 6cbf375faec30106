package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/voxelbrain/goptions"
)

// run streams the inputs of p through the dispatcher into its outputs
func run(ctx context.Context, p *plan) (Stats, error) {
	in1, err := openInput(p.input1, p.progress)
	if err != nil {
		return Stats{}, err
	}
	defer in1.Close()

	var src2 RecordSource
	if p.paired() {
		in2, err := openInput(p.input2, false)
		if err != nil {
			return Stats{}, err
		}
		defer in2.Close()
		if src2, err = newFastqSource(in2); err != nil {
			return Stats{}, err
		}
	}

	src1, err := newFastqSource(in1)
	if err != nil {
		return Stats{}, err
	}

	out1, err := openOutput(p.output1, p.gzip, p.workers)
	if err != nil {
		return Stats{}, err
	}
	w := &pairWriter{r1: out1}
	if p.output2 != "" {
		out2, err := openOutput(p.output2, p.gzip, p.workers)
		if err != nil {
			out1.Close()
			return Stats{}, err
		}
		w.r2 = out2
	}

	sugar.Infof("write into %s", p.output1)
	if w.r2 != nil {
		sugar.Infof("write R2 into %s", p.output2)
	}

	d := newDispatcher(p.predicate, p.workers, p.chunkSize, p.queueSize)
	pairs := NewPairSynchronizer(src1, src2)

	stats, err := d.run(ctx, pairs, w)
	if cerr := w.Close(); err == nil {
		err = cerr
	}

	if err != nil {
		sugar.Debugf("stopped after %d read pairs", pairs.Pairs())
	}
	sugar.Debugf("%d records in %s", w.r1.n, w.r1.name)
	if w.r2 != nil {
		sugar.Debugf("%d records in %s", w.r2.n, w.r2.name)
	}
	return stats, err
}

// fqgrep runs the command line args and returns the exit code
func fqgrep(args []string) int {
	var err error
	var fs *goptions.FlagSet

	conf, fs, err = parseConfig(args)
	if err != nil {
		if err == goptions.ErrHelpRequest {
			fs.PrintHelp(os.Stdout)
			return 0
		}
		fmt.Fprintf(os.Stderr, "Error parsing command line: %s\n", err)
		fs.PrintHelp(os.Stderr)
		return 2
	}

	setLogger(conf.Debug, conf.Log)
	defer logger.Sync()

	if conf.Version {
		sugar.Infof("current version: %v", VERSION)
		return 0
	}

	p, err := newPlan(conf)
	if err != nil {
		sugar.Error(err)
		return exitCode(err)
	}

	sugar.Infof("Filtering %s with %d workers", p.input1, p.workers)
	if p.paired() {
		sugar.Infof("Paired with %s", p.input2)
	}
	sugar.Infof("Match target %s, R1 %s, R2 %s, invert %v",
		p.predicate.Target(), p.predicate.r1, p.predicate.r2, p.predicate.invert)

	// a closed stdout surfaces as EPIPE from write instead of killing the process
	signal.Ignore(syscall.SIGPIPE)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	timer := InitTimer()
	timer.Tic()
	stats, err := run(ctx, p)
	timer.Toc()

	if err != nil {
		if isBrokenPipe(err) {
			sugar.Warnf("output closed early after %s read pairs", humanize.Comma(stats.Pairs))
			return 0
		}
		sugar.Error(err)
		return exitCode(err)
	}

	sugar.Infof("kept %s of %s read pairs (%.2f%%) in %s chunks",
		humanize.Comma(stats.Kept), humanize.Comma(stats.Pairs),
		100*prop(stats.Pairs, stats.Kept), humanize.Comma(stats.Chunks))
	sugar.Info(timer.TicToc())
	return 0
}

func main() {
	os.Exit(fqgrep(os.Args[1:]))
}
