package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/h0rv/ghcord/internal/domain"
	"github.com/h0rv/ghcord/internal/resolve"
	"github.com/h0rv/ghcord/internal/snapshot"
)

// Outcome is the terminal state of a workflow instance.
type Outcome int

const (
	OutcomeDone Outcome = iota
	OutcomeCancelled
	OutcomeTimedOut
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDone:
		return "done"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeTimedOut:
		return "timed out"
	default:
		return "failed"
	}
}

const staleControlMessage = "This control is outdated. Please restart the command."

// Project fields the remote service manages itself; they are not editable
// through the field-value mutation.
var builtinFields = map[string]bool{
	"Title":                true,
	"Assignees":            true,
	"Labels":               true,
	"Repository":           true,
	"Milestone":            true,
	"Linked pull requests": true,
}

// DefaultTimeout bounds every interactive wait.
const DefaultTimeout = 60 * time.Second

// Engine drives the stateless multi-step edit workflows. It holds no
// per-workflow state: every inbound event is routed purely on its decoded
// token, so any number of workflows for different records run
// independently.
type Engine struct {
	snapshots *snapshot.Store
	remote    Remote
	ui        UI
	ids       IdentityLookup
	events    *Dispatcher
	timeout   time.Duration
	log       *slog.Logger
}

// NewEngine wires an engine. A zero timeout selects DefaultTimeout.
func NewEngine(snapshots *snapshot.Store, remote Remote, ui UI, ids IdentityLookup, timeout time.Duration, log *slog.Logger) *Engine {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		snapshots: snapshots,
		remote:    remote,
		ui:        ui,
		ids:       ids,
		events:    NewDispatcher(),
		timeout:   timeout,
		log:       log,
	}
}

// Dispatch routes one external event. Confirmation waiters get first claim;
// everything else is routed on the decoded token. Events that match no live
// workflow are reported as stale and mutate nothing.
func (e *Engine) Dispatch(ctx context.Context, ev Event) error {
	if e.events.Offer(ev) {
		return nil
	}

	tok, err := Parse(ev.Token)
	if err != nil {
		return e.ui.Notify(ctx, staleControlMessage)
	}

	switch tok.Kind {
	case KindEditItem:
		return e.presentFieldChoice(ctx, tok)
	case KindFieldSelect:
		return e.presentValuePrompt(ctx, tok, ev.Value)
	case KindValueSelect:
		return e.mutateOption(ctx, ev.Author, tok, ev.Value)
	case KindValueModal:
		return e.mutateTyped(ctx, ev.Author, tok, ev.Text)
	default:
		// Confirm/cancel tokens only live inside EditCommand's wait; one
		// arriving here belongs to a workflow that already ended.
		return e.ui.Notify(ctx, staleControlMessage)
	}
}

// presentFieldChoice is the AwaitingFieldChoice step: offer the record's
// editable fields.
func (e *Engine) presentFieldChoice(ctx context.Context, tok Token) error {
	proj, ok := e.snapshots.Current().ProjectByID(tok.ProjectID)
	if !ok {
		return e.ui.Notify(ctx, staleControlMessage)
	}

	next := Token{Kind: KindFieldSelect, ProjectID: tok.ProjectID, Number: tok.Number}.Encode()
	var choices []Choice
	for _, f := range proj.Fields {
		if builtinFields[f.Name] {
			continue
		}
		choices = append(choices, Choice{
			Label: fmt.Sprintf("%s (%s)", f.Name, f.DataType),
			Token: next,
			Value: f.ID,
		})
	}
	if len(choices) == 0 {
		return e.ui.Notify(ctx, "No editable custom fields found.")
	}

	prompt := fmt.Sprintf("Select a field to edit for item #%d", tok.Number)
	return e.ui.PresentChoice(ctx, prompt, choices)
}

// presentValuePrompt is the AwaitingValue step: enumerated options for
// selection-like fields, a bounded text prompt otherwise.
func (e *Engine) presentValuePrompt(ctx context.Context, tok Token, fieldID string) error {
	proj, ok := e.snapshots.Current().ProjectByID(tok.ProjectID)
	if !ok {
		return e.ui.Notify(ctx, staleControlMessage)
	}
	field, ok := proj.FieldByID(fieldID)
	if !ok {
		return e.ui.Notify(ctx, staleControlMessage)
	}

	next := Token{Kind: KindValueSelect, ProjectID: tok.ProjectID, Number: tok.Number, FieldID: field.ID}

	if field.Selection() {
		names := make([]string, 0, len(field.Options))
		for name := range field.Options {
			names = append(names, name)
		}
		sort.Slice(names, func(i, j int) bool {
			return strings.ToLower(names[i]) < strings.ToLower(names[j])
		})

		if len(names) == 0 {
			return e.ui.Notify(ctx, "No options found for "+field.Name+".")
		}

		encoded := next.Encode()
		choices := make([]Choice, 0, len(names))
		for _, name := range names {
			choices = append(choices, Choice{Label: name, Token: encoded, Value: field.Options[name]})
		}
		prompt := fmt.Sprintf("Update %s for item #%d", field.Name, tok.Number)
		return e.ui.PresentChoice(ctx, prompt, choices)
	}

	next.Kind = KindValueModal
	prompt := fmt.Sprintf("Enter new %s value for item #%d", strings.ToLower(field.DataType), tok.Number)
	return e.ui.PresentTextPrompt(ctx, prompt, next.Encode())
}

// mutateOption handles a selected enumerated option. The success notice
// echoes the option's name, not the opaque option ID carried by the event.
func (e *Engine) mutateOption(ctx context.Context, author string, tok Token, optionID string) error {
	proj, ok := e.snapshots.Current().ProjectByID(tok.ProjectID)
	if !ok {
		return e.ui.Notify(ctx, staleControlMessage)
	}
	field, ok := proj.FieldByID(tok.FieldID)
	if !ok {
		return e.ui.Notify(ctx, staleControlMessage)
	}

	display := optionID
	for name, id := range field.Options {
		if id == optionID {
			display = name
			break
		}
	}
	return e.mutate(ctx, author, tok, domain.OptionValue(optionID), display)
}

// mutateTyped resolves free text against the field's data type, then
// mutates.
func (e *Engine) mutateTyped(ctx context.Context, author string, tok Token, typed string) error {
	proj, ok := e.snapshots.Current().ProjectByID(tok.ProjectID)
	if !ok {
		return e.ui.Notify(ctx, staleControlMessage)
	}
	field, ok := proj.FieldByID(tok.FieldID)
	if !ok {
		return e.ui.Notify(ctx, staleControlMessage)
	}
	value := resolve.BuildFieldValue(field, typed, time.Now().UTC())
	return e.mutate(ctx, author, tok, value, typed)
}

// mutate is the Mutating step: auth gate, item lookup, one remote update.
// Failures are terminal and reported to the user; nothing is retried.
func (e *Engine) mutate(ctx context.Context, author string, tok Token, value domain.FieldValue, display string) error {
	if ok, err := e.requireLink(ctx, author); err != nil || !ok {
		return err
	}

	item, err := e.remote.FindItem(ctx, tok.ProjectID, tok.Number)
	if err != nil {
		e.log.Warn("item lookup failed", "project", tok.ProjectID, "number", tok.Number, "err", err)
		return e.ui.Notify(ctx, fmt.Sprintf("Item #%d not found (it may have been moved).", tok.Number))
	}

	if err := e.remote.UpdateItemField(ctx, tok.ProjectID, item.ID, tok.FieldID, value); err != nil {
		e.log.Warn("field update failed", "project", tok.ProjectID, "item", item.ID, "field", tok.FieldID, "err", err)
		return e.ui.Notify(ctx, "Update failed. Check that the value type matches the field.")
	}

	e.log.Info("field updated", "project", tok.ProjectID, "item", item.ID, "field", tok.FieldID)
	return e.ui.Notify(ctx, fmt.Sprintf("Updated to: %s", display))
}

// requireLink enforces the auth gate: mutating operations need a linked
// GitHub identity.
func (e *Engine) requireLink(ctx context.Context, author string) (bool, error) {
	_, linked, err := e.ids.Lookup(ctx, author)
	if err != nil {
		e.log.Error("identity lookup failed", "author", author, "err", err)
		return false, e.ui.Notify(ctx, "Something went wrong checking your account link. Try again.")
	}
	if !linked {
		return false, e.ui.Notify(ctx, "Permission denied: connect your GitHub account first.")
	}
	return true, nil
}

// EditCommand is the single-shot edit variant: everything is supplied up
// front and the only interaction is a Confirm/Cancel choice scoped to this
// invocation by nonce. Exactly one mutation is issued on confirmation; any
// event not matching the nonce within the timeout is ignored and the
// workflow ends TimedOut.
func (e *Engine) EditCommand(ctx context.Context, author, projectTitle, itemQuery, fieldName, typed string) (Outcome, error) {
	if ok, err := e.requireLink(ctx, author); err != nil || !ok {
		return OutcomeFailed, err
	}

	snap := e.snapshots.Current()
	proj, ok := snap.ProjectByTitle(projectTitle)
	if !ok {
		return OutcomeFailed, e.ui.Notify(ctx, fmt.Sprintf("Project %q not found. Try a refresh?", projectTitle))
	}
	field, ok := proj.FieldByName(fieldName)
	if !ok {
		return OutcomeFailed, e.ui.Notify(ctx, fmt.Sprintf("Field %q not found in project %q.", fieldName, proj.Title))
	}

	number := resolve.RecordNumber(itemQuery)
	item, err := e.remote.FindItem(ctx, proj.ID, number)
	if err != nil {
		e.log.Warn("item lookup failed", "project", proj.ID, "number", number, "err", err)
		return OutcomeFailed, e.ui.Notify(ctx, fmt.Sprintf("Item #%d not found in project.", number))
	}

	current := item.Values[field.Name]
	if current == "" {
		current = "Empty"
	}

	nonce := uuid.NewString()
	confirmTok := Token{Kind: KindConfirm, Nonce: nonce}.Encode()
	cancelTok := Token{Kind: KindCancel, Nonce: nonce}.Encode()

	prompt := fmt.Sprintf(
		"Confirm edit\nProject: %s\nItem: #%d %s\nField: %s (%s)\nChange: `%s` to `%s`",
		proj.Title, number, item.Title, field.Name, field.DataType, current, typed,
	)

	// Register the waiter before the prompt goes out: a transport may
	// deliver the confirm event before PresentChoice returns, and it must
	// still be claimed rather than reported stale.
	w := e.events.register(func(ev Event) bool {
		return ev.Author == author && (ev.Token == confirmTok || ev.Token == cancelTok)
	})
	if err := e.ui.PresentChoice(ctx, prompt, []Choice{
		{Label: "Confirm", Token: confirmTok},
		{Label: "Cancel", Token: cancelTok},
	}); err != nil {
		e.events.abandon(w, err)
		return OutcomeFailed, err
	}

	ev, err := e.events.wait(ctx, w, e.timeout)
	if err != nil {
		e.log.Info("edit confirmation timed out", "project", proj.ID, "number", number)
		return OutcomeTimedOut, e.ui.Notify(ctx, "Timed out.")
	}
	if ev.Token == cancelTok {
		return OutcomeCancelled, e.ui.Notify(ctx, "Cancelled.")
	}

	value := resolve.BuildFieldValue(field, typed, time.Now().UTC())
	if err := e.remote.UpdateItemField(ctx, proj.ID, item.ID, field.ID, value); err != nil {
		e.log.Warn("field update failed", "project", proj.ID, "item", item.ID, "field", field.ID, "err", err)
		return OutcomeFailed, e.ui.Notify(ctx, "Edit failed. Check that the value type matches the field.")
	}

	e.log.Info("field updated", "project", proj.ID, "item", item.ID, "field", field.ID)
	return OutcomeDone, e.ui.Notify(ctx, fmt.Sprintf("Updated %s to %s.", field.Name, typed))
}
