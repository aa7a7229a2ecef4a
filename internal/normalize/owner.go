// Package normalize classifies parcel owners and formats owner names and
// premises addresses for display.
package normalize

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/cardinal-lookup/internal/arcgis"
	"github.com/cardinal-lookup/internal/batch"
)

// UnknownOwner stands in for a missing owner name.
const UnknownOwner = "Unknown Owner"

var (
	reNotNameChar = regexp.MustCompile(`[^a-zA-Z,\s]`)
	reWordStart   = regexp.MustCompile(`\b\w`)
	lower         = cases.Lower(language.Und)
)

// Classifier applies the exclusion, deceased and strip tables.
type Classifier struct {
	Exclusions []Rule
	Deceased   []Rule
	Strip      []Rule
}

// DefaultClassifier uses the package rule tables.
func DefaultClassifier() *Classifier {
	return &Classifier{
		Exclusions: ExclusionRules,
		Deceased:   DeceasedRules,
		Strip:      StripRules,
	}
}

var defaultClassifier = DefaultClassifier()

// Excluded reports whether the owner name denotes a non-person entity, and
// which rule said so.
func (c *Classifier) Excluded(rawName string) (Rule, bool) {
	return firstMatch(c.Exclusions, rawName)
}

// Status returns Deceased when the name carries an estate or decedent marker.
func (c *Classifier) Status(rawName string) string {
	if _, ok := firstMatch(c.Deceased, rawName); ok {
		return batch.StatusDeceased
	}
	return batch.StatusActive
}

// CleanName turns a raw owner name into "First [Middle...] Last" title case.
//
// Only the owner before the first "&" is kept. "LAST, FIRST M" is reordered
// around the first comma. Without a comma the first token is taken as the
// surname and moved to the end, so "JOHN SMITH" becomes "Smith John".
func (c *Classifier) CleanName(rawName string) string {
	res := strings.SplitN(rawName, "&", 2)[0]
	for _, r := range c.Strip {
		res = r.Pattern.ReplaceAllString(res, " ")
	}
	res = reNotNameChar.ReplaceAllString(res, "")
	res = strings.TrimSpace(res)

	if strings.Contains(res, ",") {
		parts := strings.Split(res, ",")
		res = collapse(parts[1]) + " " + collapse(parts[0])
	} else {
		parts := strings.Fields(res)
		if len(parts) > 1 {
			res = strings.Join(append(parts[1:], parts[0]), " ")
		}
	}
	return TitleCase(collapse(res))
}

// Format builds the display record for a selected candidate. The second
// result is false when the owner is excluded.
func (c *Classifier) Format(a arcgis.Attributes) (batch.Record, bool) {
	if _, excluded := c.Excluded(string(a.OwnerName)); excluded {
		return batch.Record{}, false
	}

	rawName := string(a.OwnerName)
	if rawName == "" {
		rawName = UnknownOwner
	}

	return batch.Record{
		Name:    c.CleanName(rawName),
		RawName: rawName,
		Address: FormatAddress(string(a.PremisesNumber), string(a.PremisesName), string(a.PremisesType)),
		City:    TitleCase(string(a.PremisesCity)),
		State:   batch.State,
		Zip:     string(a.PremisesZip),
		Status:  c.Status(rawName),
	}, true
}

// FormatAddress joins house number, street name and street type and title
// cases the result. Missing parts are skipped.
func FormatAddress(number, name, streetType string) string {
	var parts []string
	for _, p := range []string{number, name, streetType} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return TitleCase(strings.Join(parts, " "))
}

// TitleCase lowercases s and capitalizes every word character that starts a
// word: "O'BRIEN" -> "O'Brien", "100 MAIN ST" -> "100 Main St".
func TitleCase(s string) string {
	return reWordStart.ReplaceAllStringFunc(lower.String(s), strings.ToUpper)
}

// CleanName cleans a name with the default rule tables.
func CleanName(rawName string) string {
	return defaultClassifier.CleanName(rawName)
}

// Format formats a candidate with the default rule tables.
func Format(a arcgis.Attributes) (batch.Record, bool) {
	return defaultClassifier.Format(a)
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
