//go:build !libpostal

package parser

import "errors"

// ErrPostalUnavailable is returned when the binary was built without libpostal.
var ErrPostalUnavailable = errors.New("libpostal parser not compiled in (rebuild with -tags libpostal)")

// NewPostal reports that libpostal support is missing from this build.
func NewPostal() (Parser, error) {
	return nil, ErrPostalUnavailable
}
