// Package rules parses and validates the rule language embedded in column
// generation rules: @name column references, @RANDOM_INT_N single-bound
// random commands and @RANDOM_INT_N_M range-bound random commands.
package rules

import (
	"regexp"
	"sort"
	"strconv"
)

// TokenKind classifies a rule token.
type TokenKind string

const (
	TokenColumnReference TokenKind = "column_reference"
	TokenRandomSingle    TokenKind = "random_single"
	TokenRandomRange     TokenKind = "random_range"
)

// Token is one recognized occurrence in a rule string. Start and End are
// byte offsets into the rule text, [Start, End). Text is the literal match.
//
// For TokenColumnReference, Name holds the referenced column name.
// For TokenRandomSingle, Bound holds N of @RANDOM_INT_N (value in [0, N)).
// For TokenRandomRange, Low and High hold N and M of @RANDOM_INT_N_M
// (value in [N, M]).
type Token struct {
	Kind  TokenKind
	Text  string
	Start int
	End   int
	Name  string
	Bound int64
	Low   int64
	High  int64
}

var (
	randomRangePattern  = regexp.MustCompile(`@RANDOM_INT_(\d+)_(\d+)`)
	randomSinglePattern = regexp.MustCompile(`@RANDOM_INT_(\d+)`)
	referencePattern    = regexp.MustCompile(`@(\w+)`)
)

// Tokenize scans a rule string and returns its tokens ordered by start
// offset. No two returned tokens overlap: range-bound random commands take
// precedence over single-bound ones, and random commands take precedence
// over the generic reference pattern. Unmatched @ sequences produce no
// token; there is no failure mode.
func Tokenize(rule string) []Token {
	var tokens []Token

	for _, m := range randomRangePattern.FindAllStringSubmatchIndex(rule, -1) {
		low, err1 := strconv.ParseInt(rule[m[2]:m[3]], 10, 64)
		high, err2 := strconv.ParseInt(rule[m[4]:m[5]], 10, 64)
		if err1 != nil || err2 != nil {
			continue
		}
		tokens = append(tokens, Token{
			Kind:  TokenRandomRange,
			Text:  rule[m[0]:m[1]],
			Start: m[0],
			End:   m[1],
			Low:   low,
			High:  high,
		})
	}

	for _, m := range randomSinglePattern.FindAllStringSubmatchIndex(rule, -1) {
		if overlapsAny(tokens, m[0], m[1]) {
			continue
		}
		bound, err := strconv.ParseInt(rule[m[2]:m[3]], 10, 64)
		if err != nil {
			continue
		}
		tokens = append(tokens, Token{
			Kind:  TokenRandomSingle,
			Text:  rule[m[0]:m[1]],
			Start: m[0],
			End:   m[1],
			Bound: bound,
		})
	}

	for _, m := range referencePattern.FindAllStringSubmatchIndex(rule, -1) {
		if overlapsAny(tokens, m[0], m[1]) {
			continue
		}
		tokens = append(tokens, Token{
			Kind:  TokenColumnReference,
			Text:  rule[m[0]:m[1]],
			Start: m[0],
			End:   m[1],
			Name:  rule[m[2]:m[3]],
		})
	}

	sort.Slice(tokens, func(i, j int) bool { return tokens[i].Start < tokens[j].Start })
	return tokens
}

// References returns only the column-reference tokens of a rule string.
func References(rule string) []Token {
	var refs []Token
	for _, t := range Tokenize(rule) {
		if t.Kind == TokenColumnReference {
			refs = append(refs, t)
		}
	}
	return refs
}

func overlapsAny(tokens []Token, start, end int) bool {
	for _, t := range tokens {
		if start < t.End && end > t.Start {
			return true
		}
	}
	return false
}
