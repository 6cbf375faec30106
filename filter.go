package main

import (
	"bytes"
	"regexp"

	"github.com/pkg/errors"
)

type patternKind uint8

const (
	fixedPattern patternKind = iota + 1
	regexPattern
)

// Pattern is either a fixed string or a compiled regex, both case insensitive
type Pattern struct {
	kind  patternKind
	text  string
	fixed []byte // upper case
	re    *regexp.Regexp
}

// NewFixedPattern builds a substring pattern
func NewFixedPattern(s string) (*Pattern, error) {
	if s == "" {
		return nil, newErrorf(ConfigurationError, "empty fixed string pattern")
	}
	return &Pattern{kind: fixedPattern, text: s, fixed: bytes.ToUpper([]byte(s))}, nil
}

// NewRegexPattern compiles expr, the pattern matches if expr is found anywhere in a sequence
func NewRegexPattern(expr string) (*Pattern, error) {
	if expr == "" {
		return nil, newErrorf(ConfigurationError, "empty regex pattern")
	}
	re, err := regexp.Compile("(?i)" + expr)
	if err != nil {
		return nil, newError(PatternCompileError, errors.Wrapf(err, "invalid regex %q", expr))
	}
	return &Pattern{kind: regexPattern, text: expr, re: re}, nil
}

// Match reports whether seq contains the pattern
func (p *Pattern) Match(seq []byte) bool {
	switch p.kind {
	case fixedPattern:
		return containsFold(seq, p.fixed)
	case regexPattern:
		return p.re.Match(seq)
	}
	return false
}

func (p *Pattern) String() string {
	if p == nil {
		return "-"
	}
	if p.kind == regexPattern {
		return "/" + p.text + "/"
	}
	return p.text
}

// MatchTarget selects which reads of a pair are evaluated
type MatchTarget int

const (
	// TargetR1 evaluates R1 only
	TargetR1 MatchTarget = iota
	// TargetR2 evaluates R2 only
	TargetR2
	// TargetEither keeps a pair when any side matches
	TargetEither
	// TargetBoth keeps a pair when both sides match
	TargetBoth
)

func (t MatchTarget) String() string {
	switch t {
	case TargetR1:
		return "R1"
	case TargetR2:
		return "R2"
	case TargetEither:
		return "either"
	case TargetBoth:
		return "both"
	}
	return "unknown"
}

// MatchPredicate decides whether a read pair is kept. It holds no mutable
// state and may be shared between workers.
type MatchPredicate struct {
	r1     *Pattern
	r2     *Pattern
	target MatchTarget
	invert bool
}

// NewMatchPredicate checks that target has the patterns it needs
func NewMatchPredicate(r1, r2 *Pattern, target MatchTarget, invert bool) (*MatchPredicate, error) {
	switch target {
	case TargetR1:
		if r1 == nil {
			return nil, newErrorf(ConfigurationError, "target R1 needs an R1 pattern")
		}
	case TargetR2:
		if r2 == nil {
			return nil, newErrorf(ConfigurationError, "target R2 needs an R2 pattern")
		}
	case TargetEither:
		if r1 == nil && r2 == nil {
			return nil, newErrorf(ConfigurationError, "at least one pattern must be specified")
		}
	case TargetBoth:
		if r1 == nil || r2 == nil {
			return nil, newErrorf(ConfigurationError, "target both needs an R1 and an R2 pattern")
		}
	default:
		return nil, newErrorf(ConfigurationError, "unknown match target %d", target)
	}
	return &MatchPredicate{r1: r1, r2: r2, target: target, invert: invert}, nil
}

// Target as name says
func (m *MatchPredicate) Target() MatchTarget {
	return m.target
}

// Keep returns the keep decision for pair. A pair lacking a read the target
// requires is a shape error.
func (m *MatchPredicate) Keep(pair ReadPair) (bool, error) {
	var keep bool

	switch m.target {
	case TargetR1:
		if pair.R1 == nil {
			return false, newErrorf(ShapeMismatchError, "target R1 but pair has no R1 read")
		}
		keep = m.r1.Match(pair.R1.Seq)
	case TargetR2:
		if pair.R2 == nil {
			return false, newErrorf(ShapeMismatchError, "target R2 but pair has no R2 read")
		}
		keep = m.r2.Match(pair.R2.Seq)
	case TargetEither:
		keep = matchSide(m.r1, pair.R1) || matchSide(m.r2, pair.R2)
	case TargetBoth:
		if !pair.Paired() {
			return false, newErrorf(ShapeMismatchError, "target both but pair is missing a read")
		}
		keep = m.r1.Match(pair.R1.Seq) && m.r2.Match(pair.R2.Seq)
	}

	if m.invert {
		keep = !keep
	}
	return keep, nil
}

func matchSide(p *Pattern, r *Record) bool {
	if p == nil || r == nil {
		return false
	}
	return p.Match(r.Seq)
}

// filterChunk returns the kept pairs of chunk in their original order
func filterChunk(m *MatchPredicate, pairs []ReadPair) ([]ReadPair, error) {
	kept := make([]ReadPair, 0, len(pairs))
	for _, pair := range pairs {
		ok, err := m.Keep(pair)
		if err != nil {
			return nil, err
		}
		if ok {
			kept = append(kept, pair)
		}
	}
	return kept, nil
}
