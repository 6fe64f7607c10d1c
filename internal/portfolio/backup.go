package portfolio

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// backupFile is the portable portfolio snapshot format: an export
// timestamp plus the full item list.
type backupFile struct {
	Timestamp string `json:"timestamp"`
	Data      []Item `json:"data"`
}

// WriteBackup writes a snapshot of every item to w.
func (s *Store) WriteBackup(w io.Writer) error {
	items, err := s.GetAll()
	if err != nil {
		return fmt.Errorf("reading items for backup: %w", err)
	}
	if items == nil {
		items = []Item{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(backupFile{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Data:      items,
	})
}

// ReadBackup parses and validates a snapshot without touching the
// store. Restores go through RestoreBackup.
func ReadBackup(r io.Reader) ([]Item, error) {
	var raw struct {
		Timestamp *string           `json:"timestamp"`
		Data      []json.RawMessage `json:"data"`
	}
	dec := json.NewDecoder(r)
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("parsing backup: %w", err)
	}
	if raw.Timestamp == nil {
		return nil, fmt.Errorf("invalid backup: missing timestamp")
	}
	if _, err := time.Parse(time.RFC3339, *raw.Timestamp); err != nil {
		return nil, fmt.Errorf("invalid backup: bad timestamp %q", *raw.Timestamp)
	}
	if raw.Data == nil {
		return nil, fmt.Errorf("invalid backup: missing data array")
	}

	items := make([]Item, 0, len(raw.Data))
	for i, msg := range raw.Data {
		var item Item
		if err := json.Unmarshal(msg, &item); err != nil {
			return nil, fmt.Errorf("invalid backup: item %d: %w", i, err)
		}
		if item.ID == "" {
			return nil, fmt.Errorf("invalid backup: item %d has no id", i)
		}
		if !item.Mode.Valid() {
			return nil, fmt.Errorf("invalid backup: item %d has unknown mode %q", i, item.Mode)
		}
		items = append(items, item)
	}
	return items, nil
}

// RestoreBackup merges a snapshot into the store. Items with IDs
// already present are overwritten by the backup's version; capacity
// checks are skipped, matching bulk-import semantics.
func (s *Store) RestoreBackup(r io.Reader) (int, error) {
	items, err := ReadBackup(r)
	if err != nil {
		return 0, err
	}
	if err := s.AddMany(items); err != nil {
		return 0, fmt.Errorf("restoring backup: %w", err)
	}
	return len(items), nil
}
