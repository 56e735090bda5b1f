// Package aaelog holds the process-wide structured logger: a
// package-level go-kit logger that every other package logs through
// via level.Error/Warn/Info/Debug.
package aaelog

import (
	"os"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// Logger is the process-wide logger. Init replaces it; until Init is
// called it logs logfmt to stderr at info level, which is enough for
// library callers that never call Init (e.g. tests).
var Logger = newDefault()

func newDefault() log.Logger {
	l := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	l = log.With(l, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller)
	return level.NewFilter(l, level.AllowInfo())
}

// Init rebuilds Logger at the given level ("debug", "info", "warn", "error").
// JSON output is used when json is true, logfmt otherwise.
func Init(levelName string, json bool) {
	var l log.Logger
	if json {
		l = log.NewJSONLogger(log.NewSyncWriter(os.Stderr))
	} else {
		l = log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	}
	l = log.With(l, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller)

	var filter level.Option
	switch levelName {
	case "debug":
		filter = level.AllowDebug()
	case "warn":
		filter = level.AllowWarn()
	case "error":
		filter = level.AllowError()
	default:
		filter = level.AllowInfo()
	}
	Logger = level.NewFilter(l, filter)
}
