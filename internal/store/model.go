package store

import "time"

type SessionMode string

const (
	ModeVoice SessionMode = "voice"
	ModePhone SessionMode = "phone"
)

type Session struct {
	ID                string
	UserIdentity      string
	Mode              SessionMode
	StartedAt         time.Time
	EndedAt           *time.Time
	DurationSeconds   int64
	MoodSummary       string
	TranscriptSummary string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type Message struct {
	ID           string
	SessionID    string
	Role         string
	Content      string
	EmotionLabel string
	EmotionScore *float64
	CreatedAt    time.Time
}

type QuestionnaireResponse struct {
	UserIdentity string
	QuestionID   int
	Answer       string
}

// HistoryRecord is one entry of the local fallback history kept per
// participant identity.
type HistoryRecord struct {
	ID         string `json:"id"`
	Date       string `json:"date"`
	Summary    string `json:"summary"`
	Mood       string `json:"mood"`
	Trend      string `json:"trend"`
	Duration   string `json:"duration"`
	Mode       string `json:"type"`
	Transcript string `json:"transcript,omitempty"`
}
