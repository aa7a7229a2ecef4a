package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardinal-lookup/internal/arcgis"
	"github.com/cardinal-lookup/internal/batch"
)

func TestCleanName(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "last comma first middle", raw: "SMITH, JOHN A", want: "John A Smith"},
		{name: "no comma moves first token to end", raw: "JOHN SMITH", want: "Smith John"},
		{name: "three tokens no comma", raw: "SMITH JOHN ALLEN", want: "John Allen Smith"},
		{name: "single token", raw: "MADONNA", want: "Madonna"},
		{name: "joint owner dropped", raw: "DOE, JOHN & DOE, JANE", want: "John Doe"},
		{name: "etal stripped", raw: "DOE, JOHN ETAL", want: "John Doe"},
		{name: "et al with space stripped", raw: "DOE, JOHN ET AL", want: "John Doe"},
		{name: "et-al stripped", raw: "DOE, JOHN ET-AL", want: "John Doe"},
		{name: "estate of stripped", raw: "EST OF JOHN DOE", want: "Doe John"},
		{name: "decd stripped", raw: "BROWN, MARY DECD", want: "Mary Brown"},
		{name: "digits and punctuation removed", raw: "O'NEIL, PAT 2", want: "Pat Oneil"},
		{name: "extra commas ignored after second segment", raw: "KING, ANN, JR", want: "Ann King"},
		{name: "trailing comma", raw: "SMITH,", want: "Smith"},
		{name: "internal whitespace collapsed", raw: "SMITH,   JOHN    A", want: "John A Smith"},
		{name: "unknown owner placeholder", raw: UnknownOwner, want: "Owner Unknown"},
		{name: "nothing left", raw: "& SMITH", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanName(tt.raw))
		})
	}
}

func TestTitleCase(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"100 MAIN ST", "100 Main St"},
		{"BALTIMORE", "Baltimore"},
		{"upper marlboro", "Upper Marlboro"},
		{"O'BRIEN", "O'Brien"},
		{"MC-DONALD", "Mc-Donald"},
		{"2ND AVE", "2nd Ave"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, TitleCase(tt.in))
		})
	}
}

func TestExcluded(t *testing.T) {
	c := DefaultClassifier()

	tests := []struct {
		raw      string
		excluded bool
		rule     string
	}{
		{"SMITH JOHN REVOCABLE LIVING TRUST", true, "trust"},
		{"DOE FAMILY", true, "family"},
		{"ACME PROPERTIES LLC", true, "llc"},
		{"ACME PROPERTIES", true, "properties"},
		{"ACME HOLDINGS L.L.C.", true, "l.l.c"},
		{"WIDGETS INC", true, "inc"},
		{"WIDGETS INC.", true, "inc"},
		{"MEGACORP", true, "corp"},
		{"JONES TTEE", true, "trustee"},
		{"JONES TR", true, "tr"},
		{"JONES REV", true, "rev"},
		{"JONES TRU", true, "tru"},
		{"JONES LVG", true, "lvg"},
		{"SMITH LTD", true, "ltd"},
		{"SMITH AND SONS PARTNERSHIP", true, "partnership"},
		{"SMITH, JOHN", false, ""},
		{"TRAVIS, INCE", false, ""},
		{"REVERE, PAUL", false, ""},
		{"EST OF JOHN DOE", false, ""},
		{"", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			r, excluded := c.Excluded(tt.raw)
			assert.Equal(t, tt.excluded, excluded)
			assert.Equal(t, tt.rule, r.Name)
		})
	}
}

func TestStatus(t *testing.T) {
	c := DefaultClassifier()

	tests := []struct {
		raw  string
		want string
	}{
		{"EST OF JOHN DOE", batch.StatusDeceased},
		{"DOE JOHN ESTATE", batch.StatusDeceased},
		{"DOE JOHN DEC", batch.StatusDeceased},
		{"DOE JOHN DECD", batch.StatusDeceased},
		{"DOE JOHN DECEASED", batch.StatusDeceased},
		{"ADMIN OF SMITH", batch.StatusDeceased},
		{"EXEC OF SMITH", batch.StatusDeceased},
		{"est of jane roe", batch.StatusDeceased},
		{"DOE, JOHN", batch.StatusActive},
		{"DECKER, JOHN", batch.StatusActive},
		{UnknownOwner, batch.StatusActive},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Status(tt.raw))
		})
	}
}

func TestFormatAddress(t *testing.T) {
	assert.Equal(t, "100 Main St", FormatAddress("100", "MAIN", "ST"))
	assert.Equal(t, "100 Main", FormatAddress("100", "MAIN", ""))
	assert.Equal(t, "Main St", FormatAddress("", "MAIN", "ST"))
	assert.Equal(t, "", FormatAddress("", "", ""))
	assert.Equal(t, "7 St Andrews Pl", FormatAddress(" 7 ", "ST ANDREWS", "PL"))
}

func TestFormat(t *testing.T) {
	tests := []struct {
		name     string
		attrs    arcgis.Attributes
		want     batch.Record
		excluded bool
	}{
		{
			name: "owner occupied individual",
			attrs: arcgis.Attributes{
				OwnerName: "DOE, JOHN", OccupancyFlag: "H", PremisesNumber: "100", PremisesName: "MAIN",
				PremisesType: "ST", PremisesZip: "21201", PremisesCity: "BALTIMORE",
			},
			want: batch.Record{
				Name: "John Doe", RawName: "DOE, JOHN", Address: "100 Main St", City: "Baltimore",
				State: "MD", Zip: "21201", Status: batch.StatusActive,
			},
		},
		{
			name: "estate is kept as deceased",
			attrs: arcgis.Attributes{
				OwnerName: "EST OF JOHN DOE", PremisesNumber: "4", PremisesName: "ELM", PremisesCity: "BOWIE",
			},
			want: batch.Record{
				Name: "Doe John", RawName: "EST OF JOHN DOE", Address: "4 Elm", City: "Bowie",
				State: "MD", Zip: "", Status: batch.StatusDeceased,
			},
		},
		{
			name:  "missing owner name",
			attrs: arcgis.Attributes{PremisesNumber: "9", PremisesName: "OAK"},
			want: batch.Record{
				Name: "Owner Unknown", RawName: UnknownOwner, Address: "9 Oak", City: "",
				State: "MD", Zip: "", Status: batch.StatusActive,
			},
		},
		{
			name:     "trust excluded",
			attrs:    arcgis.Attributes{OwnerName: "SMITH REVOCABLE LIVING TRUST", PremisesNumber: "1"},
			excluded: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Format(tt.attrs)
			if tt.excluded {
				require.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCustomClassifierTables(t *testing.T) {
	c := &Classifier{
		Exclusions: []Rule{rule("church", `\bCHURCH\b`)},
		Deceased:   DeceasedRules,
		Strip:      StripRules,
	}

	_, excluded := c.Excluded("FIRST BAPTIST CHURCH")
	assert.True(t, excluded)

	_, excluded = c.Excluded("SMITH FAMILY TRUST")
	assert.False(t, excluded)
}
