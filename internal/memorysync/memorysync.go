package memorysync

import "context"

// Sender pushes the user's profile text to the agent's memory store so
// the conversation starts with personal context.
type Sender interface {
	StoreProfile(ctx context.Context, content string) error
}
