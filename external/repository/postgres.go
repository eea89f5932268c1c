package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mindfulvoice/backend/internal/store"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) store.SessionStore {
	return &PostgresStore{pool: pool}
}

func (r *PostgresStore) SaveSession(ctx context.Context, input store.SaveSessionInput) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO sessions (id, user_identity, mode, started_at, ended_at, duration_seconds, mood_summary, transcript_summary)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (id) DO UPDATE SET
			ended_at = EXCLUDED.ended_at,
			duration_seconds = EXCLUDED.duration_seconds,
			mood_summary = EXCLUDED.mood_summary,
			transcript_summary = EXCLUDED.transcript_summary,
			updated_at = NOW()`,
		input.SessionID, input.UserIdentity, input.Mode, input.StartedAt,
		input.EndedAt, input.DurationSeconds, input.MoodSummary, input.TranscriptSummary)
	return err
}

func (r *PostgresStore) InsertMessage(ctx context.Context, input store.InsertMessageInput) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO messages (session_id, role, content, emotion_label, emotion_score, created_at)
		 VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6)`,
		input.SessionID, input.Role, input.Content, input.EmotionLabel, input.EmotionScore, input.CreatedAt)
	return err
}

func (r *PostgresStore) GetSession(ctx context.Context, sessionID string) (*store.Session, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, user_identity, mode, started_at, ended_at, duration_seconds, mood_summary, transcript_summary, created_at, updated_at
		 FROM sessions WHERE id = $1`,
		sessionID)
	var s store.Session
	var endedAt *time.Time
	err := row.Scan(&s.ID, &s.UserIdentity, &s.Mode, &s.StartedAt, &endedAt,
		&s.DurationSeconds, &s.MoodSummary, &s.TranscriptSummary, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	s.EndedAt = endedAt
	return &s, nil
}

func (r *PostgresStore) ListQuestionnaireResponses(ctx context.Context, userIdentity string) ([]store.QuestionnaireResponse, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT user_identity, question_id, answer
		 FROM questionnaire_responses WHERE user_identity = $1 ORDER BY question_id ASC`,
		userIdentity)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []store.QuestionnaireResponse
	for rows.Next() {
		var resp store.QuestionnaireResponse
		if err := rows.Scan(&resp.UserIdentity, &resp.QuestionID, &resp.Answer); err != nil {
			return nil, err
		}
		list = append(list, resp)
	}
	return list, rows.Err()
}
