// Package parser turns pasted address text into lookup queries.
package parser

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// QueryTuple is one house number / street name pair to look up.
type QueryTuple struct {
	HouseNumber string `json:"house_number"`
	StreetName  string `json:"street_name"`
}

// String renders the tuple the way it is shown in progress output.
func (q QueryTuple) String() string {
	return q.HouseNumber + " " + q.StreetName
}

// Parser splits a raw text block into query tuples, preserving input order.
type Parser interface {
	Parse(text string) []QueryTuple
}

// New returns the parser registered under kind ("tokens" or "libpostal").
func New(kind string) (Parser, error) {
	switch kind {
	case "", "tokens":
		return Tokens{}, nil
	case "libpostal":
		return NewPostal()
	default:
		return nil, fmt.Errorf("unknown address parser %q", kind)
	}
}

// Tokens is the default parser: the first two whitespace-separated tokens of
// each line are the house number and street name. Lines with fewer than two
// tokens are skipped.
type Tokens struct{}

var reTokenSep = regexp.MustCompile(`[\t\s]+`)

// Parse implements Parser.
func (Tokens) Parse(text string) []QueryTuple {
	var tuples []QueryTuple
	for _, line := range Lines(text) {
		parts := splitTokens(line)
		if len(parts) < 2 {
			continue
		}
		tuples = append(tuples, QueryTuple{HouseNumber: parts[0], StreetName: parts[1]})
	}
	return tuples
}

// Lines normalizes the text (NFKC) and returns its non-blank lines, trimmed.
func Lines(text string) []string {
	text = norm.NFKC.String(text)
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

func splitTokens(line string) []string {
	var tokens []string
	for _, p := range reTokenSep.Split(line, -1) {
		if p != "" {
			tokens = append(tokens, p)
		}
	}
	return tokens
}
