package model

import "fmt"

// Outcome is what happened when a record was offered to the wiki.
type Outcome int

const (
	// OutcomeCreated means the page did not exist and was created.
	OutcomeCreated Outcome = iota + 1

	// OutcomeExisting means the page already existed and was left alone.
	OutcomeExisting

	// OutcomeConflict means the wiki refused the edit because the page
	// appeared between the query and the create.
	OutcomeConflict

	// OutcomeFailed means the query or the create failed for another reason.
	OutcomeFailed

	// OutcomeDuplicate means another record in the same run already
	// produced this page title, so the wiki was not contacted.
	OutcomeDuplicate

	// OutcomeSkipped means the run was cancelled before this record was
	// published.
	OutcomeSkipped
)

var outcomeNames = map[Outcome]string{
	OutcomeCreated:   "created",
	OutcomeExisting:  "existing",
	OutcomeConflict:  "conflict",
	OutcomeFailed:    "failed",
	OutcomeDuplicate: "duplicate",
	OutcomeSkipped:   "skipped",
}

// Outcomes lists every outcome in display order.
func Outcomes() []Outcome {
	return []Outcome{
		OutcomeCreated, OutcomeExisting, OutcomeConflict,
		OutcomeFailed, OutcomeDuplicate, OutcomeSkipped,
	}
}

// String returns the lower-case name of the outcome.
func (o Outcome) String() string {
	if name, ok := outcomeNames[o]; ok {
		return name
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (o Outcome) MarshalText() ([]byte, error) {
	name, ok := outcomeNames[o]
	if !ok {
		return nil, fmt.Errorf("unknown outcome %d", int(o))
	}
	return []byte(name), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Outcome) UnmarshalText(text []byte) error {
	for k, v := range outcomeNames {
		if v == string(text) {
			*o = k
			return nil
		}
	}
	return fmt.Errorf("unknown outcome %q", string(text))
}
