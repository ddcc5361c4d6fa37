package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyMethod     = "method"
	KeyPath       = "path"
	KeyStatus     = "status"
	KeyRemoteAddr = "remote_addr"
	KeyUserAgent  = "user_agent"
	KeyRequestID  = "request_id"
	KeyEventID    = "event_id"
	KeyTargetURL  = "target_url"
	KeyDurationMS = "duration_ms"
	KeyCount      = "count"
	KeySearch     = "search"
	KeyFormat     = "format"
	KeyBodySize   = "body_bytes"
	KeyGate       = "gate"
	KeyJob        = "job"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Method(m string) slog.Attr       { return slog.String(KeyMethod, m) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Status(code int) slog.Attr       { return slog.Int(KeyStatus, code) }
func RemoteAddr(a string) slog.Attr   { return slog.String(KeyRemoteAddr, a) }
func UserAgent(ua string) slog.Attr   { return slog.String(KeyUserAgent, ua) }
func RequestID(id string) slog.Attr   { return slog.String(KeyRequestID, id) }
func EventID(id int64) slog.Attr      { return slog.Int64(KeyEventID, id) }
func TargetURL(u string) slog.Attr    { return slog.String(KeyTargetURL, u) }
func DurationMS(ms int64) slog.Attr   { return slog.Int64(KeyDurationMS, ms) }
func Count(n int64) slog.Attr         { return slog.Int64(KeyCount, n) }
func Search(s string) slog.Attr       { return slog.String(KeySearch, s) }
func Format(f string) slog.Attr       { return slog.String(KeyFormat, f) }
func BodySize(n int) slog.Attr        { return slog.Int(KeyBodySize, n) }
func Gate(name string) slog.Attr      { return slog.String(KeyGate, name) }
func Job(name string) slog.Attr       { return slog.String(KeyJob, name) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
