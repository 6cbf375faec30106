package main

import (
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"github.com/voxelbrain/goptions"
)

// plan is a validated config, ready to run
type plan struct {
	input1, input2   string
	output1, output2 string
	gzip             bool
	progress         bool

	predicate *MatchPredicate

	workers   int
	chunkSize int
	queueSize int
}

func (p *plan) paired() bool {
	return p.input2 != ""
}

// parseConfig parses args (without the program name). When --config is given
// the file replaces the defaults and args are parsed again, so flags win.
func parseConfig(args []string) (config, *goptions.FlagSet, error) {
	c := defaultConfig()
	fs := goptions.NewFlagSet("fqgrep", &c)
	if err := checkRepeatedPatterns(args); err != nil {
		return c, fs, err
	}
	if err := fs.Parse(args); err != nil {
		return c, fs, err
	}
	if c.Config == "" {
		return c, fs, nil
	}

	base, err := loadConfigFile(c.Config, defaultConfig())
	if err != nil {
		return c, fs, err
	}
	fs = goptions.NewFlagSet("fqgrep", &base)
	if err := fs.Parse(args); err != nil {
		return base, fs, err
	}
	return base, fs, nil
}

// patternFlags pairs the short and long names of every pattern flag
var patternFlags = [][2]string{
	{"-e", "--pat1"}, {"-E", "--pat2"}, {"-F", "--pat"},
	{"-r", "--reg1"}, {"-R", "--reg2"}, {"-P", "--reg"},
}

// checkRepeatedPatterns rejects a pattern flag given more than once
func checkRepeatedPatterns(args []string) error {
	for _, names := range patternFlags {
		n := 0
		for i := 0; i < len(args); i++ {
			arg := args[i]
			if arg == "--" {
				break
			}
			if arg == names[0] || arg == names[1] || strings.HasPrefix(arg, names[1]+"=") {
				n++
				if !strings.Contains(arg, "=") {
					// skip the value, it may look like a flag
					i++
				}
			}
		}
		if n > 1 {
			return newErrorf(ConfigurationError, "%s/%s given %d times, only one pattern per flag is allowed", names[0], names[1], n)
		}
	}
	return nil
}

// loadConfigFile decodes a TOML file over c, keys are the toml tags of config
func loadConfigFile(path string, c config) (config, error) {
	f, err := os.Open(path)
	if err != nil {
		return c, newError(ConfigurationError, errors.Wrapf(err, "failed to open config %s", path))
	}
	defer f.Close()

	if err := toml.NewDecoder(f).DisallowUnknownFields().Decode(&c); err != nil {
		return c, newError(ConfigurationError, errors.Wrapf(err, "failed to decode config %s", path))
	}
	return c, nil
}

func sidePattern(side, fixed, regex string) (*Pattern, error) {
	switch {
	case fixed != "" && regex != "":
		return nil, newErrorf(ConfigurationError, "%s: fixed string and regex patterns are mutually exclusive", side)
	case fixed != "":
		if bad := nonNucleotides(fixed); len(bad) > 0 {
			sugar.Warnf("%s pattern %q contains non nucleotide characters %q, fixed strings have no wildcards", side, fixed, bad)
		}
		return NewFixedPattern(fixed)
	case regex != "":
		return NewRegexPattern(regex)
	}
	return nil, nil
}

// newPlan validates c and compiles its patterns
func newPlan(c config) (*plan, error) {
	p := &plan{
		input1: c.Input, input2: c.Input2,
		output1: c.Output, output2: c.Output2,
		gzip: c.Gzip, progress: c.Progress,
		workers: c.Process, chunkSize: c.ChunkSize, queueSize: c.QueueSize,
	}

	if p.input1 == "" {
		p.input1 = "-"
	}
	if p.output1 == "" {
		p.output1 = "-"
	}
	if p.paired() && (p.input1 == "-" || p.input2 == "-") {
		return nil, newErrorf(ConfigurationError, "paired input must be read from files, not stdin")
	}
	if p.output2 != "" && !p.paired() {
		return nil, newErrorf(ConfigurationError, "--output2 needs paired input (--input2)")
	}
	if p.output2 != "" && p.output2 == p.output1 {
		return nil, newErrorf(ConfigurationError, "R1 and R2 outputs must differ")
	}
	if p.workers < 1 {
		return nil, newErrorf(ConfigurationError, "--process must be at least 1, got %d", p.workers)
	}
	if p.chunkSize < 1 {
		return nil, newErrorf(ConfigurationError, "--chunk-size must be at least 1, got %d", p.chunkSize)
	}
	if p.queueSize < 0 {
		return nil, newErrorf(ConfigurationError, "--queue-size must not be negative, got %d", p.queueSize)
	}

	r1, err := sidePattern("R1", c.Pat1, c.Reg1)
	if err != nil {
		return nil, err
	}
	r2, err := sidePattern("R2", c.Pat2, c.Reg2)
	if err != nil {
		return nil, err
	}
	either, err := sidePattern("either", c.Pat, c.Reg)
	if err != nil {
		return nil, err
	}

	if either != nil {
		if r1 != nil || r2 != nil {
			return nil, newErrorf(ConfigurationError, "either patterns (-F, -P) can not be combined with R1 or R2 patterns")
		}
		r1, r2 = either, either
	}

	var target MatchTarget
	switch {
	case c.Both:
		target = TargetBoth
	case r1 != nil && r2 != nil:
		target = TargetEither
	case r1 != nil:
		target = TargetR1
	case r2 != nil:
		target = TargetR2
	default:
		return nil, newErrorf(ConfigurationError, "at least one pattern must be specified")
	}

	if !p.paired() && (target == TargetR2 || target == TargetBoth) {
		return nil, newErrorf(ConfigurationError, "match target %s needs paired input (--input2)", target)
	}

	p.predicate, err = NewMatchPredicate(r1, r2, target, c.Invert)
	if err != nil {
		return nil, err
	}
	return p, nil
}
