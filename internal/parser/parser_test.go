package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokensParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []QueryTuple
	}{
		{
			name:  "single address",
			input: "100 Main St",
			want:  []QueryTuple{{HouseNumber: "100", StreetName: "Main"}},
		},
		{
			name:  "tabs and repeated spaces",
			input: "12\t\tOAK   Ave",
			want:  []QueryTuple{{HouseNumber: "12", StreetName: "OAK"}},
		},
		{
			name:  "blank and short lines skipped",
			input: "\n   \n100\n200 Elm Rd\n\t\n",
			want:  []QueryTuple{{HouseNumber: "200", StreetName: "Elm"}},
		},
		{
			name:  "order preserved",
			input: "3 C St\n1 A St\n2 B St",
			want: []QueryTuple{
				{HouseNumber: "3", StreetName: "C"},
				{HouseNumber: "1", StreetName: "A"},
				{HouseNumber: "2", StreetName: "B"},
			},
		},
		{
			name:  "windows line endings",
			input: "5 Pine Ct\r\n6 Fir Ln\r\n",
			want: []QueryTuple{
				{HouseNumber: "5", StreetName: "Pine"},
				{HouseNumber: "6", StreetName: "Fir"},
			},
		},
		{
			name:  "non-breaking space separates tokens",
			input: "7\u00a0Birch\u00a0Way",
			want:  []QueryTuple{{HouseNumber: "7", StreetName: "Birch"}},
		},
		{
			name:  "full-width digits folded",
			input: "\uff11\uff12 King St",
			want:  []QueryTuple{{HouseNumber: "12", StreetName: "King"}},
		},
		{
			name:  "apostrophe kept in street",
			input: "9 O'Brien Dr",
			want:  []QueryTuple{{HouseNumber: "9", StreetName: "O'Brien"}},
		},
		{
			name:  "empty input",
			input: "",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Tokens{}.Parse(tt.input))
		})
	}
}

func TestLines(t *testing.T) {
	assert.Equal(t, []string{"a b", "c"}, Lines("  a b  \n\n c\n"))
	assert.Nil(t, Lines(" \n\t\n"))
}

func TestNew(t *testing.T) {
	p, err := New("tokens")
	require.NoError(t, err)
	assert.IsType(t, Tokens{}, p)

	p, err = New("")
	require.NoError(t, err)
	assert.IsType(t, Tokens{}, p)

	_, err = New("regex")
	assert.Error(t, err)
}

func TestQueryTupleString(t *testing.T) {
	assert.Equal(t, "100 Main", QueryTuple{HouseNumber: "100", StreetName: "Main"}.String())
}
