package arcgis

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/cardinal-lookup/internal/parser"
)

// OutFields is the fixed attribute list requested from the parcel layer.
const OutFields = "OWNNAME1,OOI,PREMSNUM,PREMSNAM,PREMSTYP,PREMZIP,PREMCITY"

// OwnerOccupied is the OOI value marking an owner-occupied (homestead) parcel.
const OwnerOccupied = "H"

// Text is an attribute value. The service sends strings, numbers or null;
// all of them decode to a plain string, null becoming "".
type Text string

// UnmarshalJSON implements json.Unmarshaler.
func (t *Text) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()

	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return err
	}
	switch val := v.(type) {
	case nil:
		*t = ""
	case string:
		*t = Text(val)
	case json.Number:
		*t = Text(val.String())
	case bool:
		*t = Text(fmt.Sprint(val))
	default:
		return fmt.Errorf("unsupported attribute value %s", b)
	}
	return nil
}

// Attributes is one parcel record as returned by the query service.
type Attributes struct {
	OwnerName      Text `json:"OWNNAME1"`
	OccupancyFlag  Text `json:"OOI"`
	PremisesNumber Text `json:"PREMSNUM"`
	PremisesName   Text `json:"PREMSNAM"`
	PremisesType   Text `json:"PREMSTYP"`
	PremisesZip    Text `json:"PREMZIP"`
	PremisesCity   Text `json:"PREMCITY"`
}

// IsOwnerOccupied reports whether the occupancy indicator is exactly "H".
func (a Attributes) IsOwnerOccupied() bool {
	return string(a.OccupancyFlag) == OwnerOccupied
}

type feature struct {
	Attributes Attributes `json:"attributes"`
}

type apiError struct {
	Code    int      `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details"`
}

type queryResponse struct {
	Features []feature `json:"features"`
	Error    *apiError `json:"error"`
}

// LookupError reports a failed query for one tuple. The run that issued it
// carries on without a record for that tuple.
type LookupError struct {
	Tuple parser.QueryTuple
	Err   error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("lookup %q: %v", e.Tuple.String(), e.Err)
}

func (e *LookupError) Unwrap() error {
	return e.Err
}

// ServiceError is an error object returned inside a 200 response body.
type ServiceError struct {
	Code    int
	Message string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("arcgis error %d: %s", e.Code, e.Message)
}
