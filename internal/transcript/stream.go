package transcript

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/mindfulvoice/backend/internal/room"
)

type Speaker string

const (
	SpeakerUser      Speaker = "user"
	SpeakerAssistant Speaker = "assistant"
	SpeakerUnknown   Speaker = "unknown"
)

type Emotion struct {
	Label string
	Score float64
}

type Entry struct {
	Speaker   Speaker
	Text      string
	ArrivedAt time.Time
	Emotion   *Emotion
}

// MoodSample is the most recent sentiment observation only; history lives
// on the transcript entries.
type MoodSample struct {
	Label string
	Score *float64
	Trend string
}

// envelope is the tagged wire form of an inbound data message. Anything
// that fails to decode or carries an unrecognized type is dropped without
// touching state: the data channel also carries non-protocol traffic.
type envelope struct {
	Type    string       `json:"type"`
	Speaker string       `json:"speaker"`
	Text    string       `json:"text"`
	Emotion *emotionBody `json:"emotion"`
	Mood    *moodBody    `json:"mood"`
	Label   string       `json:"label"`
	Score   *float64     `json:"score"`
	Trend   string       `json:"trend"`
}

type emotionBody struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

type moodBody struct {
	Label string   `json:"label"`
	Score *float64 `json:"score"`
	Trend string   `json:"trend"`
}

// Stream consumes a room connection's data messages into an ordered
// transcript plus the current mood, and derives whether the remote agent
// is speaking from the room's track state.
type Stream struct {
	conn room.Connection

	mu            sync.Mutex
	entries       []Entry
	mood          *MoodSample
	agentSpeaking bool

	unsubData  func()
	unsubTrack func()
	closeOnce  sync.Once
}

func Attach(conn room.Connection) *Stream {
	s := &Stream{conn: conn}
	s.unsubData = conn.OnData(s.handleData)
	s.unsubTrack = conn.OnTrackChange(s.handleTrackChange)
	s.handleTrackChange()
	return s
}

func (s *Stream) handleData(payload []byte, senderIdentity string) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return
	}
	switch env.Type {
	case "transcript":
		s.appendEntry(env, senderIdentity)
	case "mood", "emotion":
		s.replaceMood(env)
	}
}

func (s *Stream) appendEntry(env envelope, senderIdentity string) {
	if env.Text == "" {
		return
	}
	entry := Entry{
		Speaker:   resolveSpeaker(env.Speaker, senderIdentity, s.conn.LocalIdentity()),
		Text:      env.Text,
		ArrivedAt: time.Now(),
	}
	if env.Emotion != nil && env.Emotion.Label != "" {
		entry.Emotion = &Emotion{Label: env.Emotion.Label, Score: env.Emotion.Score}
	}
	s.mu.Lock()
	s.entries = append(s.entries, entry)
	s.mu.Unlock()
}

func (s *Stream) replaceMood(env envelope) {
	// Either a nested mood object or a bare payload with the fields at
	// the top level.
	body := moodBody{Label: env.Label, Score: env.Score, Trend: env.Trend}
	if env.Mood != nil {
		body = *env.Mood
	}
	if body.Label == "" {
		return
	}
	s.mu.Lock()
	s.mood = &MoodSample{Label: body.Label, Score: body.Score, Trend: body.Trend}
	s.mu.Unlock()
}

func (s *Stream) handleTrackChange() {
	active := s.conn.RemoteAudioActive()
	s.mu.Lock()
	s.agentSpeaking = active
	s.mu.Unlock()
}

func resolveSpeaker(declared, senderIdentity, localIdentity string) Speaker {
	switch declared {
	case "user":
		return SpeakerUser
	case "assistant", "agent":
		return SpeakerAssistant
	case "":
	default:
		return SpeakerUnknown
	}
	if senderIdentity == "" {
		return SpeakerUnknown
	}
	if senderIdentity == localIdentity {
		return SpeakerUser
	}
	return SpeakerAssistant
}

// Entries returns the transcript in arrival order.
func (s *Stream) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

func (s *Stream) Mood() *MoodSample {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mood == nil {
		return nil
	}
	m := *s.mood
	return &m
}

func (s *Stream) AgentSpeaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.agentSpeaking
}

// Close releases both room subscriptions. Safe to call more than once.
func (s *Stream) Close() {
	s.closeOnce.Do(func() {
		s.unsubData()
		s.unsubTrack()
	})
}
