package model

import (
	"time"
)

// PageResult is the publishing outcome for one record.
type PageResult struct {
	// Title is the wiki page title the record maps to.
	Title string `json:"title"`

	// Kind is the record variant the page was rendered from.
	Kind Kind `json:"kind"`

	// Outcome is what happened to the page.
	Outcome Outcome `json:"outcome"`

	// Error is the failure message for conflicts and failures.
	Error string `json:"error,omitempty"`
}

// RunReport collects everything a single run discovered and published.
// It is filled in by the pipeline steps and consumed by the report writers
// and the history database.
type RunReport struct {
	// Tree is the scanned tree root.
	Tree string `json:"tree"`

	// Endpoint is the wiki base URL.
	Endpoint string `json:"endpoint"`

	// User is the wiki account name. The password is never stored.
	User string `json:"user"`

	// Workers is the number of harvest workers.
	Workers int `json:"workers"`

	// Strategy is the work distribution strategy name.
	Strategy string `json:"strategy"`

	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the last step finished.
	FinishedAt time.Time `json:"finished_at"`

	// Authenticated is true once the login step succeeded.
	Authenticated bool `json:"authenticated"`

	// Discovered is the number of metadata files the scanner yielded.
	Discovered int `json:"discovered"`

	// Categories is the number of category records harvested.
	Categories int `json:"categories"`

	// Packages is the number of package records harvested.
	Packages int `json:"packages"`

	// ScanWarnings lists directories the scanner could not read.
	ScanWarnings []string `json:"scan_warnings,omitempty"`

	// ParseFailures lists metadata files that failed to parse.
	ParseFailures []ParseFailure `json:"parse_failures,omitempty"`

	// Records holds the harvested records until they are published.
	Records []Record `json:"-"`

	// Pages lists the publishing outcome of each record, in record order.
	Pages []PageResult `json:"pages,omitempty"`

	// PerformedSteps lists the pipeline steps that completed.
	PerformedSteps []string `json:"performed_steps,omitempty"`

	// Cancelled is true when the run stopped on an interrupt.
	Cancelled bool `json:"cancelled,omitempty"`

	// Error is the error that stopped the run, if any.
	Error error `json:"-"`

	// ErrorMessage is the string form of Error for serialization.
	ErrorMessage string `json:"error,omitempty"` //nolint:tagliatelle // error is conventional
}

// NewRunReport creates a report for a run that starts now.
func NewRunReport(tree, endpoint string) *RunReport {
	return &RunReport{
		Tree:      tree,
		Endpoint:  endpoint,
		StartedAt: time.Now(),
	}
}

// SetError records the error that stopped the run.
func (r *RunReport) SetError(err error) {
	r.Error = err
	if err != nil {
		r.ErrorMessage = err.Error()
	}
}

// AddPage appends a publishing outcome.
func (r *RunReport) AddPage(result PageResult) {
	r.Pages = append(r.Pages, result)
}

// CountOutcome returns how many pages ended with outcome o.
func (r *RunReport) CountOutcome(o Outcome) int {
	n := 0
	for _, p := range r.Pages {
		if p.Outcome == o {
			n++
		}
	}
	return n
}

// Duration returns how long the run took. It is zero until the run finished.
func (r *RunReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Succeeded reports whether the run finished without a fatal error and
// without any failed page.
func (r *RunReport) Succeeded() bool {
	return r.Error == nil && r.ErrorMessage == "" && !r.Cancelled &&
		r.CountOutcome(OutcomeFailed) == 0
}
