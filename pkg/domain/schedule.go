package domain

import (
	"strings"
	"time"
)

// Schedule is one channel's programme for one day. It is the unit written to
// a dated JSON snapshot.
type Schedule struct {
	Channel   string    `json:"channel"`
	Date      string    `json:"date"`
	Episodes  []Episode `json:"episodes"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Validate checks the schedule header and normalizes every episode. Episodes
// that fail normalization are dropped and counted in the returned value.
func (s *Schedule) Validate() (dropped int, err error) {
	s.Channel = strings.TrimSpace(s.Channel)
	if s.Channel == "" {
		return 0, ErrMissingChannel
	}
	if _, err := time.Parse(DateLayout, s.Date); err != nil {
		return 0, ErrInvalidAirDate
	}

	kept := s.Episodes[:0]
	for _, ep := range s.Episodes {
		if ep.Channel == "" {
			ep.Channel = s.Channel
		}
		if ep.AirDate == "" {
			ep.AirDate = s.Date
		}
		if err := ep.Normalize(); err != nil {
			dropped++
			continue
		}
		kept = append(kept, ep)
	}
	s.Episodes = kept
	return dropped, nil
}
