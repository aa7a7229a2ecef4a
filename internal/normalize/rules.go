package normalize

import "regexp"

// Rule is one named, case-insensitive pattern in a classification table.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
}

func rule(name, pattern string) Rule {
	return Rule{Name: name, Pattern: regexp.MustCompile(`(?i)` + pattern)}
}

// Match reports whether the rule fires on s.
func (r Rule) Match(s string) bool {
	return r.Pattern.MatchString(s)
}

// ExclusionRules mark owners that are not individual people: trusts,
// businesses, families and partnerships. Order only affects which rule is
// reported; any match excludes the record.
var ExclusionRules = []Rule{
	rule("trust", `TRUST`),
	rule("revocable", `REVOCABLE`),
	rule("rev", `\bREV\b`),
	rule("tru", `\bTRU\b`),
	rule("tr", `\bTR\b`),
	rule("trustee", `TTEE`),
	rule("living", `LIVING`),
	rule("lvg", `LVG`),
	rule("llc", `LLC`),
	rule("inc", `\bINC\b`),
	rule("corp", `CORP`),
	rule("l.l.c", `L\.L\.C`),
	rule("properties", `PROPERTIES`),
	rule("ltd", `\bLTD\b`),
	rule("family", `FAM`),
	rule("partnership", `PARTNERSHIP`),
}

// DeceasedRules mark estates and decedent owners.
var DeceasedRules = []Rule{
	rule("estate of", `\bEST\s+OF\b`),
	rule("estate", `ESTATE`),
	rule("dec", `\bDEC\b`),
	rule("decd", `DECD`),
	rule("deceased", `DECEASED`),
	rule("admin of", `\bADMIN\s+OF\b`),
	rule("exec of", `\bEXEC\s+OF\b`),
}

// StripRules are removed from an owner name before it is reordered.
var StripRules = []Rule{
	rule("et al", `\bET[\s-]?AL\b`),
	rule("estate of", `\bEST\s+OF\b`),
	rule("estate", `\bESTATE\b`),
	rule("deceased", `\bDEC(?:D|EASED)?\b`),
	rule("revocable", `\bREVOCABLE\b`),
	rule("living", `\bLIVING\b`),
	rule("trust", `\bTRUST\b`),
}

// firstMatch returns the first rule in rules that matches s.
func firstMatch(rules []Rule, s string) (Rule, bool) {
	for _, r := range rules {
		if r.Match(s) {
			return r, true
		}
	}
	return Rule{}, false
}
