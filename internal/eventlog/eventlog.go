package eventlog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EventType represents the type of analysis event
type EventType string

const (
	EventSentimentAnalyzed EventType = "sentiment_analyzed"
	EventSentimentFailed   EventType = "sentiment_failed"
	EventBatchAnalyzed     EventType = "sentiment_batch_analyzed"
	EventChatAnalyzed      EventType = "chat_analyzed"
	EventChatFailed        EventType = "chat_failed"
	EventReportGenerated   EventType = "report_generated"
	EventReportFailed      EventType = "report_failed"
)

// Logger records analysis events in the database.
// A nil Logger, or one without a pool, silently drops events.
type Logger struct {
	db *pgxpool.Pool
}

// New creates a new event logger
func New(db *pgxpool.Pool) *Logger {
	return &Logger{db: db}
}

// Enabled reports whether events are persisted.
func (l *Logger) Enabled() bool {
	return l != nil && l.db != nil
}

// Log writes an event to the database synchronously.
// subjectID is the request or report identifier the event belongs to.
func (l *Logger) Log(ctx context.Context, subjectID string, eventType EventType, data map[string]any) error {
	if !l.Enabled() || subjectID == "" {
		return nil
	}

	dataJSON, err := json.Marshal(data)
	if err != nil {
		dataJSON = []byte("{}")
	}

	_, err = l.db.Exec(ctx, `
		INSERT INTO analysis_events (subject_id, event_type, event_data)
		VALUES ($1, $2, $3)
	`, subjectID, string(eventType), dataJSON)

	return err
}

// LogAsync logs an event without blocking the caller
func (l *Logger) LogAsync(subjectID string, eventType EventType, data map[string]any) {
	if !l.Enabled() || subjectID == "" {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = l.Log(ctx, subjectID, eventType, data)
	}()
}
