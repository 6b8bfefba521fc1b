package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyOwnerID    = "owner_id"
	KeyAddress    = "address"
	KeyAddressID  = "address_id"
	KeyRPCMethod  = "rpc_method"
	KeyAttempt    = "attempt"
	KeyJobName    = "job_name"
	KeyJobID      = "job_id"
	KeyCount      = "count"
	KeyDurationMS = "duration_ms"
	KeyMethod     = "method"
	KeyPath       = "path"
	KeyStatus     = "status"
	KeyUserAgent  = "user_agent"
	KeyRemoteAddr = "remote_addr"
	KeyError      = "error"
	KeyRequestID  = "request_id"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func OwnerID(id string) slog.Attr     { return slog.String(KeyOwnerID, id) }
func RequestID(id string) slog.Attr   { return slog.String(KeyRequestID, id) }
func Address(a string) slog.Attr      { return slog.String(KeyAddress, a) }
func AddressID(id string) slog.Attr   { return slog.String(KeyAddressID, id) }
func RPCMethod(m string) slog.Attr    { return slog.String(KeyRPCMethod, m) }
func Attempt(n int) slog.Attr         { return slog.Int(KeyAttempt, n) }
func JobName(n string) slog.Attr      { return slog.String(KeyJobName, n) }
func JobID(id string) slog.Attr       { return slog.String(KeyJobID, id) }
func Count(n int) slog.Attr           { return slog.Int(KeyCount, n) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Method(m string) slog.Attr       { return slog.String(KeyMethod, m) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Status(code int) slog.Attr       { return slog.Int(KeyStatus, code) }
func UserAgent(ua string) slog.Attr   { return slog.String(KeyUserAgent, ua) }
func RemoteAddr(a string) slog.Attr   { return slog.String(KeyRemoteAddr, a) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
