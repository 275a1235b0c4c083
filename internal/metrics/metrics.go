// Package metrics keeps the process-lifetime ledger of model backend calls.
package metrics

import (
	"encoding/json"
	"sort"
	"sync"
	"time"
)

// RequestMetrics records the timing and outcome of a single model backend call.
// A record is finalized once (success or failure) before it is inserted and is
// never modified afterwards.
type RequestMetrics struct {
	RequestID               string
	Prompt                  string
	Model                   string
	RequestTimestamp        time.Time
	ResponseTimestamp       time.Time
	APICallDuration         time.Duration
	TotalProcessingDuration time.Duration
	ResponseLength          int // characters
	InputTokens             int64
	OutputTokens            int64
	Success                 bool
	ErrorMessage            string // set iff Success is false
}

// requestMetricsJSON is the wire shape; durations are exposed in milliseconds.
type requestMetricsJSON struct {
	RequestID               string    `json:"requestId"`
	Prompt                  string    `json:"prompt"`
	Model                   string    `json:"model"`
	RequestTimestamp        time.Time `json:"requestTimestamp"`
	ResponseTimestamp       time.Time `json:"responseTimestamp"`
	APICallDurationMs       int64     `json:"apiCallDurationMs"`
	TotalProcessingDuration int64     `json:"totalProcessingDurationMs"`
	ResponseLength          int       `json:"responseLength"`
	InputTokens             int64     `json:"inputTokens"`
	OutputTokens            int64     `json:"outputTokens"`
	Success                 bool      `json:"success"`
	ErrorMessage            string    `json:"errorMessage,omitempty"`
}

func (m RequestMetrics) MarshalJSON() ([]byte, error) {
	return json.Marshal(requestMetricsJSON{
		RequestID:               m.RequestID,
		Prompt:                  m.Prompt,
		Model:                   m.Model,
		RequestTimestamp:        m.RequestTimestamp,
		ResponseTimestamp:       m.ResponseTimestamp,
		APICallDurationMs:       m.APICallDuration.Milliseconds(),
		TotalProcessingDuration: m.TotalProcessingDuration.Milliseconds(),
		ResponseLength:          m.ResponseLength,
		InputTokens:             m.InputTokens,
		OutputTokens:            m.OutputTokens,
		Success:                 m.Success,
		ErrorMessage:            m.ErrorMessage,
	})
}

func (m *RequestMetrics) UnmarshalJSON(data []byte) error {
	var w requestMetricsJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*m = RequestMetrics{
		RequestID:               w.RequestID,
		Prompt:                  w.Prompt,
		Model:                   w.Model,
		RequestTimestamp:        w.RequestTimestamp,
		ResponseTimestamp:       w.ResponseTimestamp,
		APICallDuration:         time.Duration(w.APICallDurationMs) * time.Millisecond,
		TotalProcessingDuration: time.Duration(w.TotalProcessingDuration) * time.Millisecond,
		ResponseLength:          w.ResponseLength,
		InputTokens:             w.InputTokens,
		OutputTokens:            w.OutputTokens,
		Success:                 w.Success,
		ErrorMessage:            w.ErrorMessage,
	}
	return nil
}

// Store is a concurrency-safe map from request ID to RequestMetrics.
// Records are stored by value, so readers never observe a partially written entry.
type Store struct {
	mu      sync.RWMutex
	entries map[string]RequestMetrics
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{entries: make(map[string]RequestMetrics)}
}

// Put inserts the metrics for id, replacing any previous entry.
func (s *Store) Put(id string, m RequestMetrics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[id] = m
}

// Get returns the metrics for id and whether they were found.
func (s *Store) Get(id string) (RequestMetrics, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.entries[id]
	return m, ok
}

// List returns a snapshot copy of all entries.
func (s *Store) List() map[string]RequestMetrics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]RequestMetrics, len(s.entries))
	for id, m := range s.entries {
		out[id] = m
	}
	return out
}

// Len returns the number of stored entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Clear removes all entries.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]RequestMetrics)
}

// Sorted returns the entries of a snapshot ordered by request timestamp, oldest first.
func Sorted(entries map[string]RequestMetrics) []RequestMetrics {
	out := make([]RequestMetrics, 0, len(entries))
	for _, m := range entries {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RequestTimestamp.Equal(out[j].RequestTimestamp) {
			return out[i].RequestID < out[j].RequestID
		}
		return out[i].RequestTimestamp.Before(out[j].RequestTimestamp)
	})
	return out
}
