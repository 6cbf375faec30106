package main

import (
	"bytes"

	"github.com/biogo/biogo/alphabet"
	"github.com/golang-collections/collections/set"
)

func maxInt(i, j int) int {
	if i > j {
		return i
	}
	return j
}

func prop(tot, va int64) float64 {
	if tot == 0 {
		return 0.0
	}

	return float64(va) / float64(tot)
}

func toUpper(b byte) byte {
	if 'a' <= b && b <= 'z' {
		return b - ('a' - 'A')
	}
	return b
}

func hasLower(s []byte) bool {
	for _, b := range s {
		if 'a' <= b && b <= 'z' {
			return true
		}
	}
	return false
}

// containsFold reports whether upper is within s, ignoring the case of s
func containsFold(s, upper []byte) bool {
	if len(upper) == 0 {
		return true
	}
	if bytes.Contains(s, upper) {
		return true
	}
	if !hasLower(s) {
		return false
	}

	n := len(upper)
	for i := 0; i+n <= len(s); i++ {
		if toUpper(s[i]) != upper[0] {
			continue
		}
		j := 1
		for j < n && toUpper(s[i+j]) == upper[j] {
			j++
		}
		if j == n {
			return true
		}
	}
	return false
}

// nonNucleotides returns the distinct characters of pattern outside the
// redundant DNA alphabet, gaps included
func nonNucleotides(pattern string) []byte {
	seen := set.New()
	res := make([]byte, 0)
	for i := 0; i < len(pattern); i++ {
		b := pattern[i]
		if alphabet.DNAredundant.IndexOf(alphabet.Letter(toUpper(b))) >= 0 || seen.Has(b) {
			continue
		}
		seen.Insert(b)
		res = append(res, b)
	}
	return res
}
