// Package match picks at most one parcel record per address query.
package match

import "github.com/cardinal-lookup/internal/arcgis"

// Decision names the outcome of a selection, for logging.
type Decision string

const (
	Accept         Decision = "accept"
	RejectNoResult Decision = "reject_no_result"
	RejectNotOwner Decision = "reject_not_owner_occupied"
)

// Select returns the chosen candidate. In strict mode that is the first
// owner-occupied candidate; otherwise it is simply the first one.
func Select(candidates []arcgis.Attributes, strict bool) (arcgis.Attributes, bool) {
	a, d := Decide(candidates, strict)
	return a, d == Accept
}

// Decide is Select with the reason a query produced nothing.
func Decide(candidates []arcgis.Attributes, strict bool) (arcgis.Attributes, Decision) {
	if len(candidates) == 0 {
		return arcgis.Attributes{}, RejectNoResult
	}
	if !strict {
		return candidates[0], Accept
	}
	for _, c := range candidates {
		if c.IsOwnerOccupied() {
			return c, Accept
		}
	}
	return arcgis.Attributes{}, RejectNotOwner
}
