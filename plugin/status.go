// Package plugin implements the status-line and exit-code convention
// expected by Icinga/Nagios style supervisors.
package plugin

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fractalcat/nagiosplugin"
)

// OK prints "OK - <message>" and returns the matching exit code
func OK(w io.Writer, message string) int {
	fmt.Fprintf(w, "OK - %s\n", message)
	return int(nagiosplugin.OK)
}

// Unknown prints "UKNOWN - <message>." and returns the matching exit code.
// The misspelled prefix is what existing check definitions match on.
func Unknown(w io.Writer, message string) int {
	fmt.Fprintf(w, "UKNOWN - %s.\n", strings.TrimSuffix(message, "."))
	return int(nagiosplugin.UNKNOWN)
}

// Critical prints "CRITICAL - <err>." and returns the matching exit code
func Critical(w io.Writer, err error) int {
	fmt.Fprintf(w, "CRITICAL - %s.\n", strings.TrimSuffix(oneLine(err.Error()), "."))
	return int(nagiosplugin.CRITICAL)
}

// Report turns the outcome of a run into a status line. Config-stage
// failures are reported as UNKNOWN, every other failure as CRITICAL.
func Report(w io.Writer, err error, success string) int {
	if err == nil {
		return OK(w, success)
	}
	if StageOf(err) == StageConfig {
		var runErr *RunError
		if errors.As(err, &runErr) && runErr.Cause != nil {
			return Unknown(w, runErr.Cause.Error())
		}
		return Unknown(w, err.Error())
	}
	return Critical(w, err)
}

// oneLine keeps the status on a single line; supervisors only read the first one
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
