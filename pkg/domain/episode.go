package domain

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

var (
	ErrMissingTitle   = errors.New("episode title is empty")
	ErrMissingChannel = errors.New("schedule channel is empty")
	ErrInvalidAirDate = errors.New("air date must be formatted as YYYY-MM-DD")
)

// DateLayout is the layout used for air dates and snapshot file names.
const DateLayout = "2006-01-02"

// episodeNamespace scopes deterministic episode IDs.
var episodeNamespace = uuid.MustParse("6f1c3c2e-5a0d-4d7e-9a53-8b5f0f1f6c2a")

// Cue is one timed entry of an episode transcript.
type Cue struct {
	// Index is the zero-based position of the cue in the parsed transcript.
	// It is stable across filtering and sorting.
	Index int `bson:"index" json:"index"`

	// Time is the time label of the cue, passed through verbatim.
	Time string `bson:"time" json:"time"`

	// Text is the cue payload with its lines joined by single spaces.
	Text string `bson:"text" json:"text"`
}

// Episode represents one broadcast from a daily schedule, optionally with its
// subtitle transcript.
type Episode struct {
	// ID identifies the episode across snapshots. See NewEpisodeID.
	ID string `bson:"id" json:"id"`

	// Channel is the broadcaster/channel the schedule belongs to.
	Channel string `bson:"channel" json:"channel"`

	Title       string `bson:"title" json:"title"`
	Description string `bson:"description,omitempty" json:"description,omitempty"`

	// AirDate is the schedule day (YYYY-MM-DD).
	AirDate string `bson:"air_date" json:"air_date"`

	// StartTime is the slot label from the schedule page (e.g. "21:00").
	StartTime string `bson:"start_time,omitempty" json:"start_time,omitempty"`

	// URL is the canonical URL of the episode page.
	URL string `bson:"url" json:"url"`

	// TranscriptURL is the URL of the subtitle track, when one was found.
	TranscriptURL string `bson:"transcript_url,omitempty" json:"transcript_url,omitempty"`

	// Transcript is the raw subtitle track as downloaded.
	Transcript string `bson:"transcript,omitempty" json:"transcript,omitempty"`

	// Cues is the parsed form of Transcript.
	Cues []Cue `bson:"cues,omitempty" json:"cues,omitempty"`

	CrawledAt time.Time `bson:"crawled_at" json:"crawled_at"`
}

// HasTranscript reports whether the episode carries at least one cue.
func (e *Episode) HasTranscript() bool {
	return len(e.Cues) > 0
}

// Normalize trims and NFC-normalizes the text fields, fills in a missing ID and
// checks the required fields. It is applied once when episodes enter the
// system (scrape or snapshot load).
func (e *Episode) Normalize() error {
	e.Title = normalizeText(e.Title)
	if e.Title == "" {
		return ErrMissingTitle
	}

	e.Description = normalizeText(e.Description)
	e.Channel = strings.TrimSpace(e.Channel)
	e.StartTime = strings.TrimSpace(e.StartTime)
	e.URL = strings.TrimSpace(e.URL)
	e.TranscriptURL = strings.TrimSpace(e.TranscriptURL)

	if e.AirDate != "" {
		if _, err := time.Parse(DateLayout, e.AirDate); err != nil {
			return errors.Join(ErrInvalidAirDate, err)
		}
	}

	for i := range e.Cues {
		e.Cues[i].Text = norm.NFC.String(e.Cues[i].Text)
	}

	if e.ID == "" {
		e.ID = NewEpisodeID(e.Channel, e.AirDate, e.StartTime, e.URL, e.Title)
	}
	return nil
}

// NewEpisodeID derives a stable ID from the fields that identify a broadcast,
// so re-scraping the same schedule day yields the same IDs.
func NewEpisodeID(parts ...string) string {
	return uuid.NewSHA1(episodeNamespace, []byte(strings.Join(parts, "|"))).String()
}

func normalizeText(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// SortNewestFirst orders episodes by air date descending, then by start time
// and title ascending within a day.
func SortNewestFirst(episodes []Episode) {
	sort.SliceStable(episodes, func(i, j int) bool {
		a, b := episodes[i], episodes[j]
		if a.AirDate != b.AirDate {
			return a.AirDate > b.AirDate
		}
		if a.StartTime != b.StartTime {
			return a.StartTime < b.StartTime
		}
		return a.Title < b.Title
	})
}
