package reminder

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrNotReminder means the text does not contain a reminder request.
	ErrNotReminder = errors.New("not a reminder request")
	// ErrTooFarAhead means the requested delay exceeds the allowed maximum.
	ErrTooFarAhead = errors.New("reminder too far in the future")
)

// DefaultMaxAhead is the furthest a reminder may be scheduled.
const DefaultMaxAhead = 30 * 24 * time.Hour

// Longer spellings come first so "10 minutes" captures "minutes", not "m".
const unitPattern = `(seconds|second|secs|sec|s|minutes|minute|mins|min|m|hours|hour|hrs|hr|h)`

var (
	// "... to <task> in|after <N> <unit>"
	taskFirst = regexp.MustCompile(`(?i)to (.+?)\s(?:in|after)\s+(\d+)\s*` + unitPattern + `\b`)
	// "... in|after <N> <unit> to <task>"
	timeFirst = regexp.MustCompile(`(?i)(?:in|after)\s+(\d+)\s*` + unitPattern + `\s+to\s+(.+)`)
)

// Request is a parsed reminder request.
type Request struct {
	Delay time.Duration
	Task  string
	// When is the human form of Delay, e.g. "10 minutes" or "1 hour".
	When string
}

// Seconds returns the delay in whole seconds.
func (r Request) Seconds() int64 {
	return int64(r.Delay / time.Second)
}

// Triggered reports whether text asks for a reminder at all.
func Triggered(text string) bool {
	lower := strings.ToLower(text)
	return strings.Contains(lower, "remind ") || strings.Contains(lower, "set a reminder")
}

// Parse extracts a reminder from text. The task-first phrasing is tried
// before the time-first phrasing. A delay beyond maxAhead returns the parsed
// request together with ErrTooFarAhead.
func Parse(text string, maxAhead time.Duration) (Request, error) {
	if maxAhead <= 0 {
		maxAhead = DefaultMaxAhead
	}

	var task, value, unit string
	if m := taskFirst.FindStringSubmatch(text); m != nil {
		task, value, unit = m[1], m[2], m[3]
	} else if m := timeFirst.FindStringSubmatch(text); m != nil {
		value, unit, task = m[1], m[2], m[3]
	} else {
		return Request{}, ErrNotReminder
	}

	task = strings.TrimSpace(task)
	if task == "" {
		return Request{}, ErrNotReminder
	}

	step, word := unitOf(unit)
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		// Only digits reach here, so the number overflowed.
		return Request{Task: task}, ErrTooFarAhead
	}

	req := Request{Task: task, When: humanize(n, word)}
	if time.Duration(n) > maxAhead/step {
		return req, ErrTooFarAhead
	}
	req.Delay = time.Duration(n) * step
	return req, nil
}

func unitOf(unit string) (time.Duration, string) {
	switch strings.ToLower(unit) {
	case "m", "min", "mins", "minute", "minutes":
		return time.Minute, "minute"
	case "h", "hr", "hrs", "hour", "hours":
		return time.Hour, "hour"
	default:
		return time.Second, "second"
	}
}

func humanize(n int64, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return fmt.Sprintf("%d %ss", n, word)
}
