package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"hoist/internal/request"
)

// RecordKey names the single durable record holding the queue document.
const RecordKey = "upload-queue"

const documentVersion = 1

// Entry is one pending upload. Options is the caller's option bag with
// customUploadId already stamped to ID.
type Entry struct {
	ID         string          `json:"id"`
	Options    request.Options `json:"options"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

func (e Entry) clone() Entry {
	e.Options = e.Options.Clone()
	return e
}

type document struct {
	Version int     `json:"version"`
	Entries []Entry `json:"entries"`
}

// Encode serializes entries as the persisted queue document.
func Encode(entries []Entry) ([]byte, error) {
	doc := document{Version: documentVersion, Entries: entries}
	if doc.Entries == nil {
		doc.Entries = []Entry{}
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode queue document: %w", err)
	}
	return data, nil
}

// Decode parses a persisted queue document. Empty input yields an empty queue.
func Decode(data []byte) ([]Entry, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode queue document: %w", err)
	}
	if doc.Version != documentVersion {
		return nil, fmt.Errorf("%w: got %d, expected %d", ErrUnsupportedVersion, doc.Version, documentVersion)
	}
	for i, entry := range doc.Entries {
		if entry.ID == "" {
			return nil, fmt.Errorf("decode queue document: entry %d has no id", i)
		}
	}
	return doc.Entries, nil
}
