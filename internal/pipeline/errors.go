package pipeline

import "errors"

var (
	// ErrAggregatorClosed is returned when a worker publishes after every
	// expected worker already has.
	ErrAggregatorClosed = errors.New("aggregator already received all worker results")

	// ErrInvalidStrategy is returned for an unknown work distribution strategy.
	ErrInvalidStrategy = errors.New("invalid strategy: must be queue or partition")

	// ErrUnknownRecord is returned when a record is neither a category nor
	// a package.
	ErrUnknownRecord = errors.New("unknown record variant")
)
