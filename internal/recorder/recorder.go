package recorder

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/mindfulvoice/backend/internal/store"
	"github.com/mindfulvoice/backend/internal/transcript"
)

const historyDateLayout = "Jan 2, 2006, 3:04 PM"

// Session is a terminated session handed over for persistence. The
// recorder takes ownership; the in-memory copy may be discarded after the
// call.
type Session struct {
	ID          string
	Identity    string
	Mode        store.SessionMode
	PhoneNumber string
	StartedAt   time.Time
	EndedAt     time.Time
	Transcript  []transcript.Entry
	Mood        *transcript.MoodSample
}

type Sink interface {
	Record(ctx context.Context, s Session)
}

// Recorder writes a finished session to the durable store and to the
// local fallback cache. The durable write is best-effort: its failure is
// logged and never blocks the fallback or the caller.
type Recorder struct {
	store store.SessionStore
	cache store.LocalCache
}

func New(sessionStore store.SessionStore, cache store.LocalCache) *Recorder {
	return &Recorder{store: sessionStore, cache: cache}
}

func (r *Recorder) Record(ctx context.Context, s Session) {
	durationSeconds := roundedDurationSeconds(s.StartedAt, s.EndedAt)
	summary := buildTranscriptSummary(s.Transcript)
	mood := "Neutral"
	trend := "Steady"
	if s.Mood != nil && s.Mood.Label != "" {
		mood = s.Mood.Label
		if s.Mood.Trend != "" {
			trend = s.Mood.Trend
		}
	}

	r.writeDurable(ctx, s, durationSeconds, mood, summary)
	r.writeLocal(s, durationSeconds, mood, trend, summary)
}

func (r *Recorder) writeDurable(ctx context.Context, s Session, durationSeconds int64, mood, summary string) {
	err := r.store.SaveSession(ctx, store.SaveSessionInput{
		SessionID:         s.ID,
		UserIdentity:      s.Identity,
		Mode:              s.Mode,
		StartedAt:         s.StartedAt,
		EndedAt:           s.EndedAt,
		DurationSeconds:   durationSeconds,
		MoodSummary:       mood,
		TranscriptSummary: summary,
	})
	if err != nil {
		slog.Error("failed to save session to durable store", "error", err, "session_id", s.ID)
		return
	}
	for _, entry := range s.Transcript {
		input := store.InsertMessageInput{
			SessionID: s.ID,
			Role:      roleFor(entry.Speaker),
			Content:   entry.Text,
			CreatedAt: entry.ArrivedAt,
		}
		if entry.Emotion != nil {
			input.EmotionLabel = entry.Emotion.Label
			score := entry.Emotion.Score
			input.EmotionScore = &score
		}
		if err := r.store.InsertMessage(ctx, input); err != nil {
			slog.Error("failed to save transcript message", "error", err, "session_id", s.ID)
		}
	}
	slog.Info("session saved", "session_id", s.ID, "duration_seconds", durationSeconds, "messages", len(s.Transcript))
}

func (r *Recorder) writeLocal(s Session, durationSeconds int64, mood, trend, summary string) {
	if s.Identity == "" {
		return
	}
	minutes := durationSeconds / 60
	if minutes < 1 {
		minutes = 1
	}
	record := store.HistoryRecord{
		ID:         s.ID,
		Date:       s.EndedAt.Format(historyDateLayout),
		Summary:    historySummary(s, minutes),
		Mood:       mood,
		Trend:      trend,
		Duration:   fmt.Sprintf("%d min", minutes),
		Mode:       string(s.Mode),
		Transcript: summary,
	}
	if err := r.cache.Append(s.Identity, record); err != nil {
		slog.Error("failed to write local session history", "error", err, "session_id", s.ID)
	}
}

func historySummary(s Session, minutes int64) string {
	if s.Mode == store.ModePhone {
		return fmt.Sprintf("Phone Call to %s (%d min)", s.PhoneNumber, minutes)
	}
	return fmt.Sprintf("Voice Interaction (%d min)", minutes)
}

// roundedDurationSeconds rounds to whole seconds and never reports less
// than one second for a completed session.
func roundedDurationSeconds(startedAt, endedAt time.Time) int64 {
	seconds := int64(math.Round(endedAt.Sub(startedAt).Seconds()))
	if seconds < 1 {
		return 1
	}
	return seconds
}

func buildTranscriptSummary(entries []transcript.Entry) string {
	lines := make([]string, 0, len(entries))
	for _, entry := range entries {
		lines = append(lines, fmt.Sprintf("%s: %s", displaySpeaker(entry.Speaker), entry.Text))
	}
	return strings.Join(lines, "\n")
}

func displaySpeaker(s transcript.Speaker) string {
	if s == transcript.SpeakerUser {
		return "User"
	}
	return "Assistant"
}

func roleFor(s transcript.Speaker) string {
	if s == transcript.SpeakerUser {
		return "user"
	}
	return "assistant"
}
