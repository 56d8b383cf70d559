// Package reminder parses natural-language reminder requests, stores pending
// reminders and delivers them when they come due.
package reminder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Reminder is one scheduled notification.
type Reminder struct {
	ID          string
	UserID      string
	ChannelID   string
	Text        string
	TriggerTime time.Time
}

// New creates a reminder firing delay after now.
func New(userID, channelID, text string, delay time.Duration, now time.Time) Reminder {
	return Reminder{
		ID:          uuid.NewString(),
		UserID:      userID,
		ChannelID:   channelID,
		Text:        text,
		TriggerTime: now.Add(delay).UTC(),
	}
}

// Due reports whether r should fire at now.
func (r Reminder) Due(now time.Time) bool {
	return !r.TriggerTime.After(now)
}

// Store persists pending reminders. PopDue must remove and return the due
// set atomically with respect to Create.
type Store interface {
	Create(ctx context.Context, r Reminder) error
	PopDue(ctx context.Context, now time.Time) ([]Reminder, error)
	Pending(ctx context.Context) ([]Reminder, error)
	Close() error
}

// record is the persisted shape: {id, user_id, channel_id, reminder_text, trigger_time}.
type record struct {
	ID          string  `json:"id"`
	UserID      flexID  `json:"user_id"`
	ChannelID   flexID  `json:"channel_id"`
	Text        string  `json:"reminder_text"`
	TriggerTime float64 `json:"trigger_time"` // unix seconds
}

func (r Reminder) MarshalJSON() ([]byte, error) {
	return json.Marshal(record{
		ID:          r.ID,
		UserID:      flexID(r.UserID),
		ChannelID:   flexID(r.ChannelID),
		Text:        r.Text,
		TriggerTime: toUnixSeconds(r.TriggerTime),
	})
}

func (r *Reminder) UnmarshalJSON(data []byte) error {
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	*r = Reminder{
		ID:          rec.ID,
		UserID:      string(rec.UserID),
		ChannelID:   string(rec.ChannelID),
		Text:        rec.Text,
		TriggerTime: fromUnixSeconds(rec.TriggerTime),
	}
	return nil
}

func toUnixSeconds(t time.Time) float64 {
	return float64(t.UnixMicro()) / 1e6
}

func fromUnixSeconds(s float64) time.Time {
	return time.UnixMicro(int64(math.Round(s * 1e6))).UTC()
}

// flexID is an identifier stored as a JSON number when numeric, else a string.
// Both forms are accepted on read.
type flexID string

func (f flexID) MarshalJSON() ([]byte, error) {
	if _, err := strconv.ParseInt(string(f), 10, 64); err == nil {
		return []byte(f), nil
	}
	return json.Marshal(string(f))
}

func (f *flexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*f = flexID(n.String())
	return nil
}
