//go:build debug

package x11c

// debug logs low-level wire tracing (sequence allocation, dispatch
// classification, XID issuance) when built with -tags debug. Messages go
// to debugLogger at DEBUG level, so they are printed only when
// X11C_LOG_LEVEL=DEBUG (logging.go's default level is WARNING). Release
// builds use debug_off.go's no-op instead, so tracing costs nothing in
// production binaries.
func debug(format string, args ...interface{}) {
	debugLogger.Debugf(format, args...)
}
