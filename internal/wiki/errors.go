package wiki

import (
	"errors"
	"fmt"
)

var (
	// ErrNotAuthenticated is returned by Query and Create before a
	// successful Login.
	ErrNotAuthenticated = errors.New("wiki session is not authenticated")

	// ErrLoggedOut is returned by any call after Logout.
	ErrLoggedOut = errors.New("wiki session has been logged out")

	// ErrPageExists is returned by Create when the edit context says the
	// page is already there. No request is sent.
	ErrPageExists = errors.New("page already exists")

	// ErrEditContextMismatch is returned by Create when the edit context was
	// issued for a different title.
	ErrEditContextMismatch = errors.New("edit context belongs to another title")

	// ErrUnexpectedResponse is returned when a response decodes but lacks
	// fields the protocol requires.
	ErrUnexpectedResponse = errors.New("unexpected API response")

	// ErrInvalidEndpoint is returned for an endpoint that is not an absolute
	// http or https URL.
	ErrInvalidEndpoint = errors.New("invalid wiki endpoint: expected absolute http(s) URL")

	// ErrInvalidProxyAddress is returned when the proxy address format is invalid.
	// Expected format is "host:port".
	ErrInvalidProxyAddress = errors.New("invalid proxy address format: expected host:port")

	// ErrInvalidTitle is returned for titles MediaWiki cannot store.
	ErrInvalidTitle = errors.New("invalid page title")
)

// LoginFailure is returned when login ends with any result other than
// Success. Code is the result code of the last attempt.
type LoginFailure struct {
	Code     string
	Attempts int
}

func (e *LoginFailure) Error() string {
	return fmt.Sprintf("login failed after %d attempt(s): %s", e.Attempts, e.Code)
}

// NetworkError reports a failed round trip: the request could not be sent,
// the server answered with a non-200 status, or the body was not JSON.
type NetworkError struct {
	Action     string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("wiki %s: HTTP %d: %v", e.Action, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("wiki %s: %v", e.Action, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// APIError is an error object reported by the wiki in a well formed response.
type APIError struct {
	Code string `json:"code"`
	Info string `json:"info"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error [%s]: %s", e.Code, e.Info)
}

// PageConflict is returned by Create when the server refused a create-only
// edit because the page was created after the edit token was issued.
type PageConflict struct {
	Title string
	Code  string
}

func (e *PageConflict) Error() string {
	return fmt.Sprintf("page %q was created concurrently (%s)", e.Title, e.Code)
}

// Is lets errors.Is(err, ErrPageExists) match conflicts too.
func (e *PageConflict) Is(target error) bool {
	return target == ErrPageExists
}

// conflictCodes are the edit error codes that mean another actor won the race.
var conflictCodes = map[string]bool{
	"articleexists": true,
	"editconflict":  true,
}
