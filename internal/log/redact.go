package log

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
)

// MaskValue replaces every redacted value.
const MaskValue = "***REDACTED***"

// sensitiveKeys are attribute keys whose value is always masked.
var sensitiveKeys = map[string]struct{}{
	"password":            {},
	"lgpassword":          {},
	"lgtoken":             {},
	"token":               {},
	"edittoken":           {},
	"logintoken":          {},
	"csrftoken":           {},
	"cookie":              {},
	"set-cookie":          {},
	"authorization":       {},
	"proxy-authorization": {},
}

// sensitiveSuffixes catch derived keys such as "wiki_password" or
// "login.token".
var sensitiveSuffixes = []string{"password", "token", "cookie"}

// tokenPattern matches a bare MediaWiki token: 32 hex digits followed by
// the "+\" terminator. Older wikis return the terminator alone for
// anonymous sessions.
var tokenPattern = regexp.MustCompile(`^(?:[0-9a-f]{32})?\+\\$`)

// formPattern matches credentials inside form-encoded or free text, such as
// a request body quoted in an error message.
var formPattern = regexp.MustCompile(`(?i)\b(lgpassword|lgtoken|edittoken|token|password)=[^&\s"]*`)

// RedactingHandler wraps an slog.Handler and masks credentials in every
// attribute, including attributes nested in groups and attributes bound
// with WithAttrs.
type RedactingHandler struct {
	next slog.Handler
}

// NewRedactingHandler wraps next. A nil next uses the default handler.
func NewRedactingHandler(next slog.Handler) *RedactingHandler {
	if next == nil {
		next = slog.Default().Handler()
	}
	return &RedactingHandler{next: next}
}

// Enabled implements slog.Handler.
func (h *RedactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *RedactingHandler) Handle(ctx context.Context, r slog.Record) error {
	out := slog.NewRecord(r.Time, r.Level, redactText(r.Message), r.PC)
	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(redactAttr(a))
		return true
	})
	return h.next.Handle(ctx, out)
}

// WithAttrs implements slog.Handler.
func (h *RedactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	masked := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		masked[i] = redactAttr(a)
	}
	return &RedactingHandler{next: h.next.WithAttrs(masked)}
}

// WithGroup implements slog.Handler.
func (h *RedactingHandler) WithGroup(name string) slog.Handler {
	return &RedactingHandler{next: h.next.WithGroup(name)}
}

func redactAttr(a slog.Attr) slog.Attr {
	v := a.Value.Resolve()

	if v.Kind() == slog.KindGroup {
		group := v.Group()
		masked := make([]slog.Attr, len(group))
		for i, ga := range group {
			masked[i] = redactAttr(ga)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(masked...)}
	}

	if isSensitiveKey(a.Key) {
		return slog.String(a.Key, MaskValue)
	}

	switch v.Kind() {
	case slog.KindString:
		s := v.String()
		if tokenPattern.MatchString(s) {
			return slog.String(a.Key, MaskValue)
		}
		if r := redactText(s); r != s {
			return slog.String(a.Key, r)
		}
	case slog.KindAny:
		// Errors are flattened so request bodies quoted in them get masked.
		if err, ok := v.Any().(error); ok && err != nil {
			msg := err.Error()
			if r := redactText(msg); r != msg {
				return slog.String(a.Key, r)
			}
		}
	}
	return slog.Attr{Key: a.Key, Value: v}
}

func isSensitiveKey(key string) bool {
	k := strings.ToLower(key)
	if _, ok := sensitiveKeys[k]; ok {
		return true
	}
	for _, suffix := range sensitiveSuffixes {
		if strings.HasSuffix(k, suffix) {
			return true
		}
	}
	return false
}

func redactText(s string) string {
	if !strings.Contains(s, "=") {
		return s
	}
	return formPattern.ReplaceAllString(s, "${1}="+MaskValue)
}
