package profile

import (
	"context"
	"fmt"
	"strings"

	"github.com/mindfulvoice/backend/internal/store"
)

// Source supplies the pre-formatted profile text blob for a participant.
// An empty string means no profile exists yet.
type Source interface {
	ProfileText(ctx context.Context, identity string) (string, error)
}

// questionTexts mirrors the onboarding questionnaire; answers are stored
// by question id only.
var questionTexts = map[int]string{
	1:  "What should we call you?",
	2:  "How old are you?",
	3:  "Which support would you like to access?",
	4:  "How do you usually feel by the end of a workday?",
	5:  "How many hours of sleep do you average per night?",
	6:  `When you feel anxious, what is your primary "coping" habit?`,
	7:  `How often do you take a "digital detox" (no phone/PC)?`,
	8:  "Do you feel like you have a healthy work-life balance?",
	9:  `How often do you experience "Brain Fog" or trouble concentrating?`,
	10: "Who is your main support system when things get tough?",
	11: `How often do you feel "FOMO" (Fear Of Missing Out) while on social media?`,
	12: "Do you prioritize physical activity in your week?",
}

// StoreSource builds the profile blob from stored questionnaire answers.
type StoreSource struct {
	store store.SessionStore
}

func NewStoreSource(sessionStore store.SessionStore) *StoreSource {
	return &StoreSource{store: sessionStore}
}

func (s *StoreSource) ProfileText(ctx context.Context, identity string) (string, error) {
	responses, err := s.store.ListQuestionnaireResponses(ctx, identity)
	if err != nil {
		return "", fmt.Errorf("failed to load questionnaire responses: %w", err)
	}

	paragraphs := make([]string, 0, len(responses))
	for _, resp := range responses {
		question, ok := questionTexts[resp.QuestionID]
		if !ok || strings.TrimSpace(resp.Answer) == "" {
			continue
		}
		paragraphs = append(paragraphs, fmt.Sprintf("%s\n  → %s", question, resp.Answer))
	}
	if len(paragraphs) == 0 {
		return "", nil
	}

	header := fmt.Sprintf("User Profile for %s:", identity)
	footer := "This is the user's questionnaire responses. Use this information to provide personalized, context-aware support during the voice conversation."
	return header + "\n\n" + strings.Join(paragraphs, "\n\n") + "\n\n" + footer, nil
}
