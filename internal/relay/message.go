// Package relay mirrors cooking session state between viewers of the same
// recipe. Messages are fire-and-forget; a receiver replaces its state with
// each message it gets (last write wins).
package relay

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hammamikhairi/kitchenops/internal/domain"
)

// Message is one broadcast of a session's clock state.
type Message = domain.RelayMessage

// ChannelName returns the channel a recipe's session is mirrored on.
func ChannelName(recipeID string) string {
	return "recipe:" + recipeID
}

// NewMessage wraps a clock state for broadcast.
func NewMessage(recipeID, sender string, s domain.SessionState) Message {
	return Message{
		RecipeID:  recipeID,
		StepIndex: s.StepIndex,
		Phase:     s.Phase,
		Remaining: s.Remaining,
		Sender:    sender,
		SentAt:    time.Now().UTC(),
	}
}

// Apply returns the state a receiver holds after msg arrives. The old
// state is discarded entirely; there is no merge.
func Apply(_ domain.SessionState, msg Message) domain.SessionState {
	s := domain.SessionState{
		StepIndex: msg.StepIndex,
		Phase:     msg.Phase,
		Remaining: msg.Remaining,
	}
	if s.Remaining < 0 || s.Phase == domain.PhaseDone {
		s.Remaining = 0
	}
	return s
}

// Encode marshals msg for the wire.
func Encode(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// Decode parses and validates a wire message.
func Decode(raw []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return Message{}, fmt.Errorf("invalid JSON: %w", err)
	}
	if msg.RecipeID == "" {
		return Message{}, fmt.Errorf("missing 'recipe_id' field")
	}
	if msg.StepIndex < 0 {
		return Message{}, fmt.Errorf("negative 'step' field")
	}
	return msg, nil
}
