// Package log provides the leveled logging interface used by graphpatterns.
//
// Logger has four printf-style methods: Debug, Info, Warn and Error. The
// package-level default is a GologLogger (github.com/kataras/golog) at info
// level; SetLogLevel and SetDefaultLogger replace it, and NoOpLogger silences
// everything.
//
//	log.SetLogLevel(log.LogLevelDebug)
//	log.Debug("dispatching %d tool call(s)", len(calls))
//
//	logger := log.NewWriterLogger(os.Stderr, log.LogLevelWarn)
//	logger.Warn("tool %s failed: %v", name, err)
package log
