package screen

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/agnivade/levenshtein"
)

var (
	// ErrNotConfigured is returned by built-in actions whose callback was
	// not supplied.
	ErrNotConfigured = errors.New("screen: action not configured")
	// ErrNoPerform is returned when a bound action has no perform function.
	ErrNoPerform = errors.New("screen: action has no perform function")
)

// ErrorEvent is published on a state's error feed whenever an action or
// mutator fails.
type ErrorEvent struct {
	StateID    string
	Model      string
	Op         string // e.g. "refresh", "save", "action:export"
	Err        error
	OccurredAt time.Time
}

func (e ErrorEvent) String() string {
	return fmt.Sprintf("%s %s: %v", e.Model, e.Op, e.Err)
}

// Logger is the logging surface used by describers and states.
// *log.Logger satisfies it.
type Logger interface {
	Printf(format string, args ...any)
}

// LoggerFunc adapts a function to Logger.
type LoggerFunc func(format string, args ...any)

// Printf calls f.
func (f LoggerFunc) Printf(format string, args ...any) { f(format, args...) }

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}

// NopLogger discards everything.
var NopLogger Logger = nopLogger{}

func defaultLogger() Logger { return log.Default() }

// UnknownPathError is returned when a property path does not exist on the
// model.
type UnknownPathError struct {
	Model      string
	Path       string
	Suggestion string // closest known path, if any
}

func (e *UnknownPathError) Error() string {
	msg := fmt.Sprintf("screen: model %q has no property %q", e.Model, e.Path)
	if e.Suggestion != "" {
		msg += fmt.Sprintf(" (did you mean %q?)", e.Suggestion)
	}
	return msg
}

// maxSuggestDistance bounds the edit distance of a path suggestion.
const maxSuggestDistance = 3

// Suggest returns the candidate closest to input within a small edit
// distance, or "" if none is close enough.
func Suggest(input string, candidates []string) string {
	best := ""
	bestDist := maxSuggestDistance + 1
	for _, c := range candidates {
		d := levenshtein.ComputeDistance(input, c)
		if d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}
