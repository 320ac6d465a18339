package log

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"strings"
)

// MaskValue is the string used to replace sensitive values.
const MaskValue = "***REDACTED***"

// sensitiveKeywords are matched as substrings of lower-cased attribute keys.
// "key" alone is left out on purpose: it would hide "primary_key" and the
// like, which never hold secrets here.
var sensitiveKeywords = []string{
	"password",
	"passwd",
	"passphrase",
	"candidate",
	"plaintext",
	"secret",
	"token",
	"credential",
	"private",
}

// sensitiveKeys are exact keys that are too short to match as substrings.
var sensitiveKeys = map[string]bool{
	"pw":   true,
	"pwd":  true,
	"pass": true,
	"word": true,
	"auth": true,
}

// sensitivePatterns match values that are secret whatever their key.
var sensitivePatterns = []*regexp.Regexp{
	// PEM private keys.
	regexp.MustCompile(`(?i)-----BEGIN.*(PRIVATE|SECRET).*KEY-----`),

	// Bearer and basic authorization values.
	regexp.MustCompile(`(?i)^(bearer|basic)\s+\S+`),

	// Long hex strings such as raw AES keys. SHA3-256 fingerprints are
	// exactly 64 hex digits and stay visible.
	regexp.MustCompile(`^(?:[0-9a-fA-F]{32}|[0-9a-fA-F]{48})$`),
}

// SecureHandler wraps an slog.Handler to mask sensitive attributes before
// they reach the underlying handler.
//
// Design decision: We use a handler wrapper rather than a custom logger so
// that every package keeps using a plain *slog.Logger.
type SecureHandler struct {
	// handler is the underlying slog handler that receives sanitized records.
	handler slog.Handler

	// extra holds additional sensitive keys, lower-cased.
	extra map[string]bool
}

// HandlerOption configures a SecureHandler.
type HandlerOption func(*SecureHandler)

// WithSensitiveKeys masks attributes with these exact keys as well.
func WithSensitiveKeys(keys ...string) HandlerOption {
	return func(h *SecureHandler) {
		for _, k := range keys {
			h.extra[strings.ToLower(k)] = true
		}
	}
}

// NewSecureHandler creates a new SecureHandler wrapping the given handler.
// If handler is nil, slog.Default().Handler() is used.
func NewSecureHandler(handler slog.Handler, opts ...HandlerOption) *SecureHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	h := &SecureHandler{handler: handler, extra: make(map[string]bool)}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Enabled reports whether the underlying handler handles level.
func (h *SecureHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle masks the record's attributes and passes it on.
func (h *SecureHandler) Handle(ctx context.Context, r slog.Record) error {
	masked := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		masked.AddAttrs(h.mask(a))
		return true
	})
	return h.handler.Handle(ctx, masked)
}

// WithAttrs returns a handler with the given attributes added, masked.
func (h *SecureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	masked := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		masked[i] = h.mask(a)
	}
	return &SecureHandler{handler: h.handler.WithAttrs(masked), extra: h.extra}
}

// WithGroup returns a handler with the given group name.
func (h *SecureHandler) WithGroup(name string) slog.Handler {
	return &SecureHandler{handler: h.handler.WithGroup(name), extra: h.extra}
}

// mask returns a with its value replaced when it is sensitive. Groups are
// masked member by member.
func (h *SecureHandler) mask(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindGroup {
		members := a.Value.Group()
		masked := make([]slog.Attr, len(members))
		for i, m := range members {
			masked[i] = h.mask(m)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(masked...)}
	}

	if h.sensitiveKey(a.Key) {
		return slog.String(a.Key, MaskValue)
	}

	// Resolve LogValuers before looking at the value.
	v := a.Value.Resolve()
	if v.Kind() == slog.KindString && isSensitiveValue(v.String()) {
		return slog.String(a.Key, MaskValue)
	}
	return a
}

func (h *SecureHandler) sensitiveKey(key string) bool {
	key = strings.ToLower(key)
	if sensitiveKeys[key] || h.extra[key] {
		return true
	}
	return containsSensitiveKeyword(key)
}

// containsSensitiveKeyword checks if the key contains a sensitive keyword.
func containsSensitiveKeyword(key string) bool {
	for _, keyword := range sensitiveKeywords {
		if strings.Contains(key, keyword) {
			return true
		}
	}
	return false
}

// isSensitiveValue checks if a value matches a sensitive pattern.
func isSensitiveValue(value string) bool {
	for _, pattern := range sensitivePatterns {
		if pattern.MatchString(value) {
			return true
		}
	}
	return false
}

// level returns Debug when verbose, Warn otherwise.
func level(verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	return slog.LevelWarn
}

// NewSecureLogger returns a text logger writing to w that masks secrets.
// With verbose the level is Debug; otherwise only warnings and errors are
// written.
func NewSecureLogger(w io.Writer, verbose bool, opts ...HandlerOption) *slog.Logger {
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level(verbose)})
	return slog.New(NewSecureHandler(handler, opts...))
}

// NewSecureJSONLogger is NewSecureLogger with JSON output.
func NewSecureJSONLogger(w io.Writer, verbose bool, opts ...HandlerOption) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level(verbose)})
	return slog.New(NewSecureHandler(handler, opts...))
}
