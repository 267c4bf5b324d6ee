package workflow

import (
	"context"

	"github.com/h0rv/ghcord/internal/domain"
)

// Event is one external UI interaction: a button press, a menu selection,
// or a text submission. Token is the correlation token the prompt carried;
// Value holds a menu selection, Text a submitted free-text value.
type Event struct {
	Author string
	Token  string
	Value  string
	Text   string
}

// Choice is one selectable entry in a prompt. Button-style choices carry
// only a Token; menu-style choices share a Token and differ by Value.
type Choice struct {
	Label string
	Token string
	Value string
}

// UI is the outbound presentation surface. Implementations never block on
// user input; the matching event arrives later through Engine.Dispatch.
type UI interface {
	PresentChoice(ctx context.Context, prompt string, choices []Choice) error
	PresentTextPrompt(ctx context.Context, prompt, token string) error
	Notify(ctx context.Context, text string) error
}

// Remote is the mutation-side surface of the remote service the engine
// needs: locating a live item and updating one of its fields.
type Remote interface {
	FindItem(ctx context.Context, projectID string, number int) (domain.ItemRef, error)
	UpdateItemField(ctx context.Context, projectID, itemID, fieldID string, value domain.FieldValue) error
}

// IdentityLookup is the auth gate consulted before any mutation.
type IdentityLookup interface {
	Lookup(ctx context.Context, chatID string) (login string, linked bool, err error)
}
