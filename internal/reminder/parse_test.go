package reminder

import (
	"errors"
	"testing"
	"time"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		seconds int64
		task    string
		when    string
	}{
		{"remind me to call mom in 10 minutes", 600, "call mom", "10 minutes"},
		{"remind me to water plants in 1 minute", 60, "water plants", "1 minute"},
		{"Remind me to stretch after 30 sec", 30, "stretch", "30 seconds"},
		{"remind me to sleep in 2h", 7200, "sleep", "2 hours"},
		{"remind me in 5 minutes to check the oven", 300, "check the oven", "5 minutes"},
		{"set a reminder after 1 hour to walk the dog", 3600, "walk the dog", "1 hour"},
		{"remind me to ping bob in 1 minutes", 60, "ping bob", "1 minute"},
		{"remind me to stir the pot in 5 mins", 300, "stir the pot", "5 minutes"},
		{"remind me to leave in 2 hrs", 7200, "leave", "2 hours"},
		{"remind me in 30 secs to breathe", 30, "breathe", "30 seconds"},
	}

	for _, tt := range tests {
		req, err := Parse(tt.in, DefaultMaxAhead)
		if err != nil {
			t.Errorf("Parse(%q) error: %v", tt.in, err)
			continue
		}
		if req.Seconds() != tt.seconds || req.Task != tt.task || req.When != tt.when {
			t.Errorf("Parse(%q) = (%d, %q, %q); want (%d, %q, %q)",
				tt.in, req.Seconds(), req.Task, req.When, tt.seconds, tt.task, tt.when)
		}
	}
}

func TestParseTaskFirstWins(t *testing.T) {
	req, err := Parse("in 2 hours remind me to eat in 5 minutes", DefaultMaxAhead)
	if err != nil {
		t.Fatal(err)
	}
	if req.Task != "eat" || req.Seconds() != 300 {
		t.Fatalf("expected task-first match, got %+v", req)
	}
}

func TestParseNotReminder(t *testing.T) {
	for _, in := range []string{
		"remind me about stuff",
		"remind me to call mom tomorrow",
		"remind me in 5 days to call",
		"remind me to renew the lease in 10 months",
	} {
		if _, err := Parse(in, DefaultMaxAhead); !errors.Is(err, ErrNotReminder) {
			t.Errorf("Parse(%q) = %v, want ErrNotReminder", in, err)
		}
	}
}

func TestParseTooFarAhead(t *testing.T) {
	// 31 days.
	req, err := Parse("remind me to renew in 744 hours", DefaultMaxAhead)
	if !errors.Is(err, ErrTooFarAhead) {
		t.Fatalf("expected ErrTooFarAhead, got %v", err)
	}
	if req.Task != "renew" {
		t.Fatalf("expected parsed task, got %q", req.Task)
	}

	// Exactly 30 days is allowed.
	req, err = Parse("remind me to renew in 720 hours", DefaultMaxAhead)
	if err != nil {
		t.Fatal(err)
	}
	if req.Delay != 30*24*time.Hour {
		t.Fatalf("unexpected delay %s", req.Delay)
	}

	if _, err := Parse("remind me to x in 99999999999999999999999 seconds", DefaultMaxAhead); !errors.Is(err, ErrTooFarAhead) {
		t.Fatalf("expected overflow to be rejected, got %v", err)
	}
}

func TestTriggered(t *testing.T) {
	if !Triggered("Hey, REMIND me to go") {
		t.Fatal("expected trigger")
	}
	if !Triggered("can you set a reminder in 5 minutes to x") {
		t.Fatal("expected trigger")
	}
	if Triggered("reminders are cool") {
		t.Fatal("did not expect trigger")
	}
}
