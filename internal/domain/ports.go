package domain

import (
	"context"
	"time"
)

// RecipeStore persists recipes and their steps.
type RecipeStore interface {
	Create(ctx context.Context, recipe *Recipe) error
	Get(ctx context.Context, id string) (*Recipe, error)
	List(ctx context.Context) ([]RecipeSummary, error)
	Delete(ctx context.Context, id string) error
	// Steps returns a recipe's steps ordered by step number.
	Steps(ctx context.Context, recipeID string) ([]Step, error)
	SaveStep(ctx context.Context, step Step) error
	CompleteStep(ctx context.Context, recipeID string, number int, at time.Time) error
}

// InventoryStore persists inventory items.
type InventoryStore interface {
	Save(ctx context.Context, item *InventoryItem) error
	Get(ctx context.Context, id string) (*InventoryItem, error)
	List(ctx context.Context) ([]InventoryItem, error)
	Delete(ctx context.Context, id string) error
}

// PlanStore persists preparation plans.
type PlanStore interface {
	Save(ctx context.Context, plan *PreparationPlan) error
	Get(ctx context.Context, id string) (*PreparationPlan, error)
	List(ctx context.Context) ([]PreparationPlan, error)
	Delete(ctx context.Context, id string) error
}

// KitchenStore persists kitchens.
type KitchenStore interface {
	Save(ctx context.Context, kitchen *Kitchen) error
	Get(ctx context.Context, id string) (*Kitchen, error)
	List(ctx context.Context) ([]Kitchen, error)
}

// ProfileStore persists staff accounts and their login tokens.
type ProfileStore interface {
	Create(ctx context.Context, p *Profile, passwordHash []byte) error
	Get(ctx context.Context, id string) (*Profile, error)
	ByEmail(ctx context.Context, email string) (*Profile, []byte, error)
	Update(ctx context.Context, p *Profile) error
	SetPasswordHash(ctx context.Context, id string, hash []byte) error
	List(ctx context.Context) ([]Profile, error)
	PutToken(ctx context.Context, token, profileID string, ttl time.Duration) error
	TokenOwner(ctx context.Context, token string) (string, error)
	DeleteToken(ctx context.Context, token string) error
}

// SessionStore tracks live cooking sessions.
type SessionStore interface {
	Save(ctx context.Context, session *Session) error
	Load(ctx context.Context, recipeID string) (*Session, error)
	Delete(ctx context.Context, recipeID string) error
	List(ctx context.Context) ([]*Session, error)
}

// RelayMessage is one broadcast of a session's clock state.
type RelayMessage struct {
	RecipeID  string    `json:"recipe_id"`
	StepIndex int       `json:"step"`
	Phase     Phase     `json:"mode"`
	Remaining int       `json:"timer"`
	Sender    string    `json:"sender,omitempty"`
	SentAt    time.Time `json:"sent_at"`
}

// Relay mirrors session state to every viewer of a recipe. Both directions
// are best-effort; callers must not depend on delivery.
type Relay interface {
	Publish(ctx context.Context, msg RelayMessage) error
	Subscribe(ctx context.Context, recipeID string, fn func(RelayMessage)) (unsubscribe func(), err error)
}

// Notifier delivers messages to the kitchen. Implementations can write to
// the log or play a chime.
type Notifier interface {
	Notify(ctx context.Context, message string) error
	NotifyUrgent(ctx context.Context, message string) error
}
