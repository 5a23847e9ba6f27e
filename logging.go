package x11c

import (
	"os"

	"github.com/op/go-logging"
)

// debugLogger is the module-wide logger, grounded on kryptco-kr's
// logging.go (logging.MustGetLogger + a stderr backend). Wire tracing
// routed through debug() (debug_on.go / debug_off.go) and the one-time
// fd-unsupported warning in transport.go both use it.
var debugLogger = logging.MustGetLogger("x11c")

func init() {
	backend := logging.NewLogBackend(os.Stderr, "x11c ", 0)
	formatter := logging.MustStringFormatter(
		`%{time:15:04:05.000} %{level:.4s} ▶ %{message}`,
	)
	leveled := logging.AddModuleLevel(logging.NewBackendFormatter(backend, formatter))
	leveled.SetLevel(logging.WARNING, "x11c")

	switch os.Getenv("X11C_LOG_LEVEL") {
	case "DEBUG":
		leveled.SetLevel(logging.DEBUG, "x11c")
	case "INFO":
		leveled.SetLevel(logging.INFO, "x11c")
	case "NOTICE":
		leveled.SetLevel(logging.NOTICE, "x11c")
	case "ERROR":
		leveled.SetLevel(logging.ERROR, "x11c")
	}
	logging.SetBackend(leveled)
}
