// Package log builds the slog loggers used by packagebot.
//
// Every logger returned here is wrapped in a RedactingHandler, which masks
// wiki credentials before they reach the output: the login password, login
// and edit tokens, session cookies and HTTP authorization headers. Masking
// applies to attribute keys, to values that look like MediaWiki tokens and
// to form-encoded fragments embedded in longer strings or error messages.
//
//	logger := log.New(os.Stderr, log.Options{Verbose: true})
//	logger.Debug("login", "user", "Packagebot", "lgpassword", pw) // lgpassword=***REDACTED***
package log
