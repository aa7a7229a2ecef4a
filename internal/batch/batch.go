// Package batch holds the formatted owner records of a lookup run, their
// five-record display groups and the per-group strike flags.
package batch

import (
	"errors"
	"fmt"
	"time"
)

// GroupSize is the number of records shown together in one group.
const GroupSize = 5

// State is always Maryland; the parcel layer only covers MD.
const State = "MD"

// Owner status values.
const (
	StatusActive   = "Active"
	StatusDeceased = "Deceased"
)

// ErrGroupOutOfRange is returned when a group index does not exist.
var ErrGroupOutOfRange = errors.New("group index out of range")

// Record is one formatted owner row. It is never modified after formatting.
type Record struct {
	Name    string `json:"name"`
	RawName string `json:"rawName"`
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip"`
	Status  string `json:"status"`
}

// Batch is a named, timestamped set of records plus one strike flag per group.
// ID is empty until the batch is first saved.
type Batch struct {
	ID           string     `json:"id,omitempty"`
	Name         string     `json:"name"`
	Timestamp    time.Time  `json:"timestamp"`
	Records      []Record   `json:"records"`
	GroupStrikes []bool     `json:"groupStrikes"`
	LastUpdated  *time.Time `json:"lastUpdated,omitempty"`
}

// GroupCount returns ceil(n / GroupSize).
func GroupCount(n int) int {
	if n <= 0 {
		return 0
	}
	return (n + GroupSize - 1) / GroupSize
}

// GroupOf returns the group index of the record at position i.
func GroupOf(i int) int {
	return i / GroupSize
}

// NewStrikes returns an all-false strike slice sized for n records.
func NewStrikes(n int) []bool {
	return make([]bool, GroupCount(n))
}

// ReconcileStrikes returns strikes unchanged when it has the right length for
// n records, otherwise a fresh all-false slice. The record count decides.
func ReconcileStrikes(n int, strikes []bool) []bool {
	if strikes != nil && len(strikes) == GroupCount(n) {
		out := make([]bool, len(strikes))
		copy(out, strikes)
		return out
	}
	return NewStrikes(n)
}

// Group is a contiguous slice of at most GroupSize records.
type Group struct {
	Index   int      `json:"index"`
	Struck  bool     `json:"struck"`
	Records []Record `json:"records"`
}

// Grouper partitions records into display groups and tracks their strikes.
type Grouper struct {
	records []Record
	strikes []bool
}

// NewGrouper groups records with every strike flag cleared.
func NewGrouper(records []Record) *Grouper {
	return &Grouper{records: copyRecords(records), strikes: NewStrikes(len(records))}
}

// Restore regroups records loaded from storage, repairing the strike slice
// when its stored length no longer matches the record count.
func Restore(records []Record, strikes []bool) *Grouper {
	return &Grouper{records: copyRecords(records), strikes: ReconcileStrikes(len(records), strikes)}
}

// Len returns the number of records.
func (g *Grouper) Len() int { return len(g.records) }

// GroupCount returns the number of groups.
func (g *Grouper) GroupCount() int { return len(g.strikes) }

// Records returns a copy of the records in order.
func (g *Grouper) Records() []Record { return copyRecords(g.records) }

// Strikes returns a copy of the strike flags.
func (g *Grouper) Strikes() []bool {
	out := make([]bool, len(g.strikes))
	copy(out, g.strikes)
	return out
}

// ToggleStrike flips the strike flag of group idx and returns its new value.
func (g *Grouper) ToggleStrike(idx int) (bool, error) {
	if idx < 0 || idx >= len(g.strikes) {
		return false, fmt.Errorf("%w: %d (have %d groups)", ErrGroupOutOfRange, idx, len(g.strikes))
	}
	g.strikes[idx] = !g.strikes[idx]
	return g.strikes[idx], nil
}

// Groups returns the records partitioned into groups.
func (g *Grouper) Groups() []Group {
	groups := make([]Group, 0, len(g.strikes))
	for i := 0; i < len(g.records); i += GroupSize {
		end := i + GroupSize
		if end > len(g.records) {
			end = len(g.records)
		}
		idx := GroupOf(i)
		groups = append(groups, Group{
			Index:   idx,
			Struck:  g.strikes[idx],
			Records: copyRecords(g.records[i:end]),
		})
	}
	return groups
}

func copyRecords(records []Record) []Record {
	if records == nil {
		return []Record{}
	}
	out := make([]Record, len(records))
	copy(out, records)
	return out
}
