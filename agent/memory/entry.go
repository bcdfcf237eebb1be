package memory

import (
	"encoding/json"
	"fmt"
	"time"
)

// legacySuccessRate seeds the moving average of stored entries that predate
// success tracking. Such entries are not listed by SelectorsForPage until they
// have been updated once.
const legacySuccessRate = 0.5

// Entry is the remembered selector for one (page, element) pair.
//
// Timestamps are kept as fractional unix seconds so the on-disk document stays
// readable by other tooling that shares the cache directory.
type Entry struct {
	Selector     string  `json:"selector"`
	SuccessRate  float64 `json:"success_rate"`
	LastUpdated  float64 `json:"last_updated"`
	LastAccessed float64 `json:"last_accessed"`
	Uses         int     `json:"uses"`

	// rateMissing 表示存储文档中没有 success_rate 字段
	rateMissing bool
}

type entryJSON struct {
	Selector     string   `json:"selector"`
	SuccessRate  *float64 `json:"success_rate,omitempty"`
	LastUpdated  float64  `json:"last_updated"`
	LastAccessed float64  `json:"last_accessed"`
	Uses         int      `json:"uses"`
}

// UnmarshalJSON records whether success_rate was present. A missing rate reads
// as 0 in SuccessRate.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var raw entryJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*e = Entry{
		Selector:     raw.Selector,
		LastUpdated:  raw.LastUpdated,
		LastAccessed: raw.LastAccessed,
		Uses:         raw.Uses,
		rateMissing:  raw.SuccessRate == nil,
	}
	if raw.SuccessRate != nil {
		e.SuccessRate = *raw.SuccessRate
	}
	return nil
}

// MarshalJSON leaves success_rate out for entries that were stored without one.
func (e Entry) MarshalJSON() ([]byte, error) {
	raw := entryJSON{
		Selector:     e.Selector,
		LastUpdated:  e.LastUpdated,
		LastAccessed: e.LastAccessed,
		Uses:         e.Uses,
	}
	if !e.rateMissing {
		rate := e.SuccessRate
		raw.SuccessRate = &rate
	}
	return json.Marshal(raw)
}

// HasSuccessRate reports whether a success rate has been recorded for the entry.
func (e Entry) HasSuccessRate() bool { return !e.rateMissing }

// emaBase is the value the next moving-average update starts from.
func (e Entry) emaBase() float64 {
	if e.rateMissing {
		return legacySuccessRate
	}
	return e.SuccessRate
}

// LastAccessedAt returns LastAccessed as a time.Time.
func (e Entry) LastAccessedAt() time.Time { return fromUnixSeconds(e.LastAccessed) }

// LastUpdatedAt returns LastUpdated as a time.Time.
func (e Entry) LastUpdatedAt() time.Time { return fromUnixSeconds(e.LastUpdated) }

// Snapshot is the full page -> element -> entry document of one agent.
type Snapshot map[string]map[string]Entry

// Clone returns a deep copy.
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for page, elems := range s {
		cp := make(map[string]Entry, len(elems))
		for name, e := range elems {
			cp[name] = e
		}
		out[page] = cp
	}
	return out
}

// Len returns the number of entries across all pages.
func (s Snapshot) Len() int {
	n := 0
	for _, elems := range s {
		n += len(elems)
	}
	return n
}

// decodeSnapshot parses a stored document. Elements stored as null are dropped.
func decodeSnapshot(data []byte) (Snapshot, error) {
	var raw map[string]map[string]*Entry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	snap := make(Snapshot, len(raw))
	for page, elems := range raw {
		out := make(map[string]Entry, len(elems))
		for name, e := range elems {
			if e != nil {
				out[name] = *e
			}
		}
		snap[page] = out
	}
	return snap, nil
}

// encodeSnapshot writes the document with 2-space indentation; map keys are sorted
// by encoding/json so identical content always produces identical bytes.
func encodeSnapshot(snap Snapshot) ([]byte, error) {
	if snap == nil {
		snap = Snapshot{}
	}
	return json.MarshalIndent(snap, "", "  ")
}

func toUnixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

func fromUnixSeconds(sec float64) time.Time {
	return time.Unix(0, int64(sec*float64(time.Second)))
}
