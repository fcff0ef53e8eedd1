// Package logger provides leveled logging on top of the standard log package.
package logger

import "log"

const (
	fatalLabel = "[FATAL] "
	errorLabel = "[ERROR] "
	warnLabel  = "[WARN ] "
	infoLabel  = "[INFO ] "
	debugLabel = "[DEBUG] "
)

var verbose bool

// SetVerbose enables or disables Debug output.
func SetVerbose(v bool) {
	verbose = v
}

// emit prepends the level label to log.Printf.
// Arguments are handled in the manner of [fmt.Printf].
func emit(label string, format string, args ...interface{}) {
	log.Printf(label+format, args...)
}

// Fatal calls [log.Fatalf], adding a fatal label.
// Arguments are handled in the manner of [fmt.Printf].
func Fatal(format string, args ...interface{}) {
	log.Fatalf(fatalLabel+format, args...)
}

// Error prints to the standard logger, adding an error label.
func Error(format string, args ...interface{}) {
	emit(errorLabel, format, args...)
}

// Warn prints to the standard logger, adding a warn label.
func Warn(format string, args ...interface{}) {
	emit(warnLabel, format, args...)
}

// Info prints to the standard logger, adding an info label.
func Info(format string, args ...interface{}) {
	emit(infoLabel, format, args...)
}

// Debug prints to the standard logger, adding a debug label.
// Suppressed unless SetVerbose(true) was called.
func Debug(format string, args ...interface{}) {
	if verbose {
		emit(debugLabel, format, args...)
	}
}
