//go:build libpostal

package parser

import (
	"strings"

	postal "github.com/openvenues/gopostal/parser"
)

// Postal parses each line with libpostal and queries on the labelled
// house_number and road components. Lines libpostal cannot split into both
// are skipped, same as short lines in Tokens.
type Postal struct{}

// NewPostal returns the libpostal-backed parser.
func NewPostal() (Parser, error) {
	return Postal{}, nil
}

// Parse implements Parser.
func (Postal) Parse(text string) []QueryTuple {
	var tuples []QueryTuple
	for _, line := range Lines(text) {
		components := postal.ParseAddress(line)

		var house, road string
		for _, c := range components {
			switch c.Label {
			case "house_number":
				if house == "" {
					house = strings.ToUpper(c.Value)
				}
			case "road":
				if road == "" {
					road = strings.ToUpper(c.Value)
				}
			}
		}
		if house == "" || road == "" {
			continue
		}
		tuples = append(tuples, QueryTuple{HouseNumber: house, StreetName: road})
	}
	return tuples
}
