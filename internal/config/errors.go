package config

import "errors"

// Configuration validation errors returned by Config.Validate.
var (
	// ErrNoCredentials is returned when the wiki user or password is missing.
	ErrNoCredentials = errors.New("no credentials: provide user and password as arguments or via PACKAGEBOT_USER and PACKAGEBOT_PASSWORD")

	// ErrNoTree is returned when the tree path is empty.
	ErrNoTree = errors.New("no tree specified")

	// ErrInvalidJobs is returned when the worker count is below one.
	ErrInvalidJobs = errors.New("invalid jobs: must be at least 1")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidEndpoint is returned when the endpoint is not an absolute
	// http or https URL.
	ErrInvalidEndpoint = errors.New("invalid endpoint: must be an absolute http(s) URL")

	// ErrInvalidStrategy is returned for a strategy other than queue or partition.
	ErrInvalidStrategy = errors.New("invalid strategy: must be queue or partition")

	// ErrInvalidProxyAddress is returned when the proxy is not host:port.
	ErrInvalidProxyAddress = errors.New("invalid proxy address format: expected host:port")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidTitleWindow is returned when the duplicate guard size is below one.
	ErrInvalidTitleWindow = errors.New("invalid title window: must be at least 1")
)
