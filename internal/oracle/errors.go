package oracle

import (
	"errors"
	"fmt"

	"github.com/roach88/a11yoracle/internal/notify"
)

// ContentMismatch reports the first index where the streams disagree.
type ContentMismatch struct {
	Index    int
	Expected notify.Record
	Actual   notify.Record
}

// Error implements the error interface.
func (e *ContentMismatch) Error() string {
	return fmt.Sprintf("content mismatch at index %d: expected %s, got %s", e.Index, e.Expected, e.Actual)
}

// CountMismatch reports streams of different length.
//
// A count mismatch usually means notifications were missed or extra ones
// arrived, rather than wrong content.
type CountMismatch struct {
	ExpectedCount int
	ActualCount   int

	// FirstMissing is the first expected record with no captured partner.
	FirstMissing *notify.Record

	// FirstExtra is the first captured record with no expected partner.
	FirstExtra *notify.Record
}

// Error implements the error interface.
func (e *CountMismatch) Error() string {
	msg := fmt.Sprintf("count mismatch: expected %d records, got %d", e.ExpectedCount, e.ActualCount)
	switch {
	case e.FirstMissing != nil:
		msg += fmt.Sprintf(" (first missing: %s)", e.FirstMissing)
	case e.FirstExtra != nil:
		msg += fmt.Sprintf(" (first extra: %s)", e.FirstExtra)
	}
	return msg
}

// IsContentMismatch returns true if err is or wraps a *ContentMismatch.
func IsContentMismatch(err error) bool {
	var cm *ContentMismatch
	return errors.As(err, &cm)
}

// IsCountMismatch returns true if err is or wraps a *CountMismatch.
func IsCountMismatch(err error) bool {
	var cm *CountMismatch
	return errors.As(err, &cm)
}

// IsMismatch returns true for either mismatch kind.
func IsMismatch(err error) bool {
	return IsContentMismatch(err) || IsCountMismatch(err)
}
