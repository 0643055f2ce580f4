// Package ingest parses match event documents exported from the tagging
// platform into model.Match values.
package ingest

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/defstats/go-match-risk/internal/model"
)

// Document is the wire shape of an exported match event file.
type Document struct {
	Name        string          `json:"name"`
	Competition string          `json:"competition"`
	MatchDate   string          `json:"match_date"`
	DurationSec int             `json:"duration_sec"`
	Events      []DocumentEvent `json:"events"`
}

// DocumentEvent is one tagged interval as exported.
type DocumentEvent struct {
	Code     string  `json:"code"`
	Side     string  `json:"side"`
	StartSec float64 `json:"start_sec"`
	EndSec   float64 `json:"end_sec"`
}

// ParseFile parses the match document at path.
func ParseFile(path string) (*model.Match, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read match file: %w", err)
	}
	return Parse(data)
}

// Parse parses a match document. The match ID is the sha256 of the raw
// document bytes, so re-ingesting the same file is idempotent.
func Parse(data []byte) (*model.Match, error) {
	id := fmt.Sprintf("%x", sha256.Sum256(data))

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode match document: %w", err)
	}
	if doc.Name == "" {
		return nil, fmt.Errorf("match document has no name")
	}

	m := &model.Match{
		ID:          id,
		Name:        doc.Name,
		Competition: doc.Competition,
		MatchDate:   doc.MatchDate,
		DurationSec: doc.DurationSec,
	}

	var maxEnd float64
	for _, ev := range doc.Events {
		iv := model.EventInterval{
			Code:     model.EventCode(strings.ToUpper(strings.TrimSpace(ev.Code))),
			Side:     model.ParseSide(ev.Side),
			StartSec: ev.StartSec,
			EndSec:   ev.EndSec,
		}
		if err := validate(id, iv); err != nil {
			return nil, err
		}
		if iv.EndSec > maxEnd {
			maxEnd = iv.EndSec
		}
		m.Events = append(m.Events, iv)
	}

	// Duration extends to cover stoppage-time intervals the header undersold.
	if end := int(math.Ceil(maxEnd)); end > m.DurationSec {
		m.DurationSec = end
	}

	sort.Slice(m.Events, func(i, j int) bool {
		if m.Events[i].StartSec != m.Events[j].StartSec {
			return m.Events[i].StartSec < m.Events[j].StartSec
		}
		return m.Events[i].Code < m.Events[j].Code
	})

	return m, nil
}

func validate(matchID string, iv model.EventInterval) error {
	fail := func(reason string) error {
		return &model.InvalidIntervalError{
			MatchID: matchID,
			Code:    iv.Code,
			Start:   iv.StartSec,
			End:     iv.EndSec,
			Reason:  reason,
		}
	}
	if iv.Code == "" {
		return fail("empty code")
	}
	if math.IsNaN(iv.StartSec) || math.IsNaN(iv.EndSec) ||
		math.IsInf(iv.StartSec, 0) || math.IsInf(iv.EndSec, 0) {
		return fail("non-finite timestamp")
	}
	if iv.StartSec < 0 {
		return fail("negative start")
	}
	if iv.EndSec < iv.StartSec {
		return fail("end before start")
	}
	return nil
}
