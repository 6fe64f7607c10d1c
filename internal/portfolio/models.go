package portfolio

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Mode identifies which studio workflow produced an item. The set is
// closed; unknown modes are rejected at the boundary.
type Mode string

const (
	ModeTryOn          Mode = "tryOn"
	ModePortrait       Mode = "portrait"
	ModeComposition    Mode = "composition"
	ModeOutfitAnalysis Mode = "outfitAnalysis"
	ModeAsset          Mode = "asset"
	ModePhotoshoot     Mode = "photoshoot"
	ModeBoutique       Mode = "boutique"
	ModeImaginative    Mode = "imaginative"
)

var validModes = map[Mode]bool{
	ModeTryOn:          true,
	ModePortrait:       true,
	ModeComposition:    true,
	ModeOutfitAnalysis: true,
	ModeAsset:          true,
	ModePhotoshoot:     true,
	ModeBoutique:       true,
	ModeImaginative:    true,
}

// Valid reports whether m is one of the known workflow modes.
func (m Mode) Valid() bool {
	return validModes[m]
}

// HistoryEntry is one step of the generation history attached to an
// item: which pipeline stage produced which intermediate image.
type HistoryEntry struct {
	StepName     string `json:"stepName"`
	ImageURL     string `json:"imageUrl"`
	Prompt       string `json:"prompt,omitempty"`
	MoodboardURL string `json:"moodboardUrl,omitempty"`
}

// Settings is the workflow-specific provenance attached to an item.
// Which fields are populated depends on the item's Mode; anything a
// producer attached beyond the known fields lands in Extra and
// round-trips untouched.
type Settings struct {
	History       []HistoryEntry
	PersonImage   string
	ItemImages    []string
	MoodboardURL  string
	UploadedImage string
	SubMode       string

	Extra map[string]json.RawMessage
}

type settingsJSON struct {
	History       []HistoryEntry `json:"history,omitempty"`
	PersonImage   string         `json:"personImage,omitempty"`
	ItemImages    []string       `json:"itemImages,omitempty"`
	MoodboardURL  string         `json:"moodboardUrl,omitempty"`
	UploadedImage string         `json:"uploadedImage,omitempty"`
	SubMode       string         `json:"subMode,omitempty"`
}

// MarshalJSON flattens Extra into the object next to the known fields.
func (s Settings) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(settingsJSON{
		History:       s.History,
		PersonImage:   s.PersonImage,
		ItemImages:    s.ItemImages,
		MoodboardURL:  s.MoodboardURL,
		UploadedImage: s.UploadedImage,
		SubMode:       s.SubMode,
	})
	if err != nil {
		return nil, err
	}
	if len(s.Extra) == 0 {
		return base, nil
	}

	var merged map[string]json.RawMessage
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for k, v := range s.Extra {
		if _, taken := merged[k]; taken {
			continue
		}
		merged[k] = v
	}
	return json.Marshal(merged)
}

// UnmarshalJSON splits an object into the known fields and Extra.
func (s *Settings) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	var base settingsJSON
	if err := json.Unmarshal(data, &base); err != nil {
		return err
	}

	s.History = base.History
	s.PersonImage = base.PersonImage
	s.ItemImages = base.ItemImages
	s.MoodboardURL = base.MoodboardURL
	s.UploadedImage = base.UploadedImage
	s.SubMode = base.SubMode

	for _, known := range []string{"history", "personImage", "itemImages", "moodboardUrl", "uploadedImage", "subMode"} {
		delete(fields, known)
	}
	if len(fields) == 0 {
		s.Extra = nil
	} else {
		s.Extra = fields
	}
	return nil
}

// Item is one saved portfolio entry. The top-level fields are shared
// by every workflow; Settings varies by Mode.
type Item struct {
	ID        string
	Timestamp time.Time
	Mode      Mode
	ImageURL  string
	Prompt    string
	Settings  Settings
}

// itemJSON is the canonical wire shape. Timestamps travel as Unix
// milliseconds.
type itemJSON struct {
	ID        string   `json:"id"`
	Timestamp int64    `json:"timestamp"`
	Mode      Mode     `json:"mode"`
	ImageURL  string   `json:"imageUrl,omitempty"`
	Prompt    string   `json:"prompt,omitempty"`
	Settings  Settings `json:"settings"`
}

func (it Item) MarshalJSON() ([]byte, error) {
	return json.Marshal(itemJSON{
		ID:        it.ID,
		Timestamp: it.Timestamp.UnixMilli(),
		Mode:      it.Mode,
		ImageURL:  it.ImageURL,
		Prompt:    it.Prompt,
		Settings:  it.Settings,
	})
}

func (it *Item) UnmarshalJSON(data []byte) error {
	var base itemJSON
	if err := json.Unmarshal(data, &base); err != nil {
		return err
	}
	it.ID = base.ID
	it.Timestamp = time.UnixMilli(base.Timestamp).UTC()
	it.Mode = base.Mode
	it.ImageURL = base.ImageURL
	it.Prompt = base.Prompt
	it.Settings = base.Settings
	return nil
}

// Size is the item's storage footprint: the byte length of its JSON
// encoding. Capacity accounting is defined over this value.
func (it Item) Size() (int64, error) {
	data, err := json.Marshal(it)
	if err != nil {
		return 0, fmt.Errorf("sizing item %s: %w", it.ID, err)
	}
	return int64(len(data)), nil
}

// Job is a queued background task, currently album builds.
type Job struct {
	ID          string
	Type        string
	PayloadJSON string
	Status      string // "pending", "running", "completed", "failed"
	Attempts    int
	MaxAttempts int
	RunAfter    time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	LastError   string
	Stage       string
	Percent     int
	ResultJSON  string
}
