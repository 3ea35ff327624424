// Package convert turns catalog record elements into metadata records.
package convert

// Reject is returned for records failing validation. The record is dropped
// and processing continues.
type Reject struct {
	reason string
}

func (r Reject) Error() string { return r.reason }

// Reason is used to group dropped records.
func (r Reject) Reason() string { return r.reason }

var (
	ErrTooManyTitles        = Reject{reason: "too many titles"}
	ErrMissingRequiredField = Reject{reason: "missing required field"}
	ErrNoIdentifiers        = Reject{reason: "no identifiers"}
	ErrNoTitles             = Reject{reason: "no titles"}
	ErrNoCreators           = Reject{reason: "no creators"}
)
