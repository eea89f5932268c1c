package store

import (
	"context"
	"time"
)

type SaveSessionInput struct {
	SessionID         string
	UserIdentity      string
	Mode              SessionMode
	StartedAt         time.Time
	EndedAt           time.Time
	DurationSeconds   int64
	MoodSummary       string
	TranscriptSummary string
}

type InsertMessageInput struct {
	SessionID    string
	Role         string
	Content      string
	EmotionLabel string
	EmotionScore *float64
	CreatedAt    time.Time
}

// SessionStore is the durable record of finished sessions and their
// messages, plus the questionnaire answers used to build the profile
// blob.
type SessionStore interface {
	SaveSession(ctx context.Context, input SaveSessionInput) error
	InsertMessage(ctx context.Context, input InsertMessageInput) error
	GetSession(ctx context.Context, sessionID string) (*Session, error)
	ListQuestionnaireResponses(ctx context.Context, userIdentity string) ([]QuestionnaireResponse, error)
}

// LocalCache is the best-effort fallback history keyed by participant
// identity. Append adds a record in front of any existing history rather
// than overwriting it.
type LocalCache interface {
	Append(identity string, record HistoryRecord) error
	List(identity string) ([]HistoryRecord, error)
}
