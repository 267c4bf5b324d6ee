package workflow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/h0rv/ghcord/internal/domain"
	"github.com/h0rv/ghcord/internal/snapshot"
)

// Test doubles

type fakeRemote struct {
	mu      sync.Mutex
	item    domain.ItemRef
	findErr error
	updErr  error

	updates []update
}

type update struct {
	ProjectID string
	ItemID    string
	FieldID   string
	Value     domain.FieldValue
}

func (r *fakeRemote) FindItem(ctx context.Context, projectID string, number int) (domain.ItemRef, error) {
	if r.findErr != nil {
		return domain.ItemRef{}, r.findErr
	}
	return r.item, nil
}

func (r *fakeRemote) UpdateItemField(ctx context.Context, projectID, itemID, fieldID string, value domain.FieldValue) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updErr != nil {
		return r.updErr
	}
	r.updates = append(r.updates, update{projectID, itemID, fieldID, value})
	return nil
}

func (r *fakeRemote) Updates() []update {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]update(nil), r.updates...)
}

type fakeUI struct {
	mu        sync.Mutex
	choices   [][]Choice
	prompts   []string
	texts     []string // text prompt tokens
	notices   []string
	presented chan struct{}
}

func newFakeUI() *fakeUI {
	return &fakeUI{presented: make(chan struct{}, 8)}
}

func (u *fakeUI) PresentChoice(ctx context.Context, prompt string, choices []Choice) error {
	u.mu.Lock()
	u.prompts = append(u.prompts, prompt)
	u.choices = append(u.choices, choices)
	u.mu.Unlock()
	u.presented <- struct{}{}
	return nil
}

func (u *fakeUI) PresentTextPrompt(ctx context.Context, prompt, token string) error {
	u.mu.Lock()
	u.prompts = append(u.prompts, prompt)
	u.texts = append(u.texts, token)
	u.mu.Unlock()
	u.presented <- struct{}{}
	return nil
}

func (u *fakeUI) Notify(ctx context.Context, text string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.notices = append(u.notices, text)
	return nil
}

func (u *fakeUI) LastChoices(t *testing.T) []Choice {
	u.mu.Lock()
	defer u.mu.Unlock()
	require.NotEmpty(t, u.choices)
	return u.choices[len(u.choices)-1]
}

func (u *fakeUI) Notices() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]string(nil), u.notices...)
}

type fakeIDs struct {
	links map[string]string
}

func (f *fakeIDs) Lookup(ctx context.Context, chatID string) (string, bool, error) {
	login, ok := f.links[chatID]
	return login, ok, nil
}

// Fixtures

func roadmapStore() *snapshot.Store {
	store := snapshot.NewStore()
	refresher := snapshot.NewRefresher(store, staticFetcher{snap: domain.Snapshot{
		Projects: []domain.Project{{
			ID:    "proj_roadmap",
			Title: "Roadmap",
			Records: []domain.Record{
				{Title: "Fix login bug", Number: 42, Repo: "backend", State: "OPEN"},
			},
			Fields: []domain.Field{
				{ID: "f_title", Name: "Title", DataType: domain.FieldTypeText, Options: map[string]string{}},
				{ID: "f_priority", Name: "Priority", DataType: domain.FieldTypeSingleSelect,
					Options: map[string]string{"High": "o1", "Low": "o2"}},
				{ID: "f_estimate", Name: "Estimate", DataType: domain.FieldTypeNumber, Options: map[string]string{}},
			},
		}},
	}}, time.Hour, nil)
	refresher.Refresh(context.Background())
	return store
}

type staticFetcher struct {
	snap domain.Snapshot
}

func (f staticFetcher) FetchRepos(context.Context) ([]domain.Repo, error) {
	return f.snap.Repos, nil
}
func (f staticFetcher) FetchPeople(context.Context) ([]domain.Person, error) {
	return f.snap.People, nil
}
func (f staticFetcher) FetchProjects(context.Context) ([]domain.Project, error) {
	return f.snap.Projects, nil
}

func newTestEngine(timeout time.Duration) (*Engine, *fakeRemote, *fakeUI) {
	remote := &fakeRemote{item: domain.ItemRef{
		ID:     "item_node_42",
		Title:  "Fix login bug",
		Values: map[string]string{"Priority": "Low"},
	}}
	ui := newFakeUI()
	ids := &fakeIDs{links: map[string]string{"chat_alice": "alice"}}
	return NewEngine(roadmapStore(), remote, ui, ids, timeout, nil), remote, ui
}

// Tests

func TestInteractiveEditFlow(t *testing.T) {
	engine, remote, ui := newTestEngine(0)
	ctx := context.Background()

	// Step 1: edit button pressed; the project's editable fields are offered.
	err := engine.Dispatch(ctx, Event{
		Author: "chat_alice",
		Token:  Token{Kind: KindEditItem, ProjectID: "proj_roadmap", Number: 42}.Encode(),
	})
	require.NoError(t, err)

	choices := ui.LastChoices(t)
	labels := make([]string, len(choices))
	for i, c := range choices {
		labels[i] = c.Label
	}
	// Built-in fields are not offered.
	assert.Equal(t, []string{"Priority (SINGLE_SELECT)", "Estimate (NUMBER)"}, labels)
	assert.Equal(t, "field:sel:proj_roadmap:42", choices[0].Token)
	assert.Equal(t, "f_priority", choices[0].Value)

	// Step 2: field chosen; the options are offered sorted by name.
	err = engine.Dispatch(ctx, Event{
		Author: "chat_alice",
		Token:  choices[0].Token,
		Value:  choices[0].Value,
	})
	require.NoError(t, err)

	options := ui.LastChoices(t)
	require.Len(t, options, 2)
	assert.Equal(t, "High", options[0].Label)
	assert.Equal(t, "o1", options[0].Value)
	assert.Equal(t, "val:sel:proj_roadmap:42:f_priority", options[0].Token)

	// Step 3: option selected; exactly one mutation is issued.
	err = engine.Dispatch(ctx, Event{
		Author: "chat_alice",
		Token:  options[0].Token,
		Value:  options[0].Value,
	})
	require.NoError(t, err)

	updates := remote.Updates()
	require.Len(t, updates, 1)
	assert.Equal(t, "proj_roadmap", updates[0].ProjectID)
	assert.Equal(t, "item_node_42", updates[0].ItemID)
	assert.Equal(t, "f_priority", updates[0].FieldID)
	assert.Equal(t, domain.OptionValue("o1"), updates[0].Value)

	// The success notice names the chosen option, not its node ID.
	notices := ui.Notices()
	require.NotEmpty(t, notices)
	assert.Equal(t, "Updated to: High", notices[len(notices)-1])
}

func TestInteractiveEditFreeFormFieldOpensTextPrompt(t *testing.T) {
	engine, remote, ui := newTestEngine(0)
	ctx := context.Background()

	err := engine.Dispatch(ctx, Event{
		Author: "chat_alice",
		Token:  Token{Kind: KindFieldSelect, ProjectID: "proj_roadmap", Number: 42}.Encode(),
		Value:  "f_estimate",
	})
	require.NoError(t, err)

	require.Len(t, ui.texts, 1)
	assert.Equal(t, "val:modal:proj_roadmap:42:f_estimate", ui.texts[0])

	// Submitting text coerces per the field type (NUMBER here).
	err = engine.Dispatch(ctx, Event{
		Author: "chat_alice",
		Token:  ui.texts[0],
		Text:   "8",
	})
	require.NoError(t, err)

	updates := remote.Updates()
	require.Len(t, updates, 1)
	assert.Equal(t, domain.NumberValue(8), updates[0].Value)
}

func TestDispatchStaleTokenNotifiesAndMutatesNothing(t *testing.T) {
	engine, remote, ui := newTestEngine(0)

	err := engine.Dispatch(context.Background(), Event{Author: "chat_alice", Token: "edit_item_old_style"})
	require.NoError(t, err)

	assert.Contains(t, ui.Notices(), staleControlMessage)
	assert.Empty(t, remote.Updates())
}

func TestMutationRequiresLinkedIdentity(t *testing.T) {
	engine, remote, ui := newTestEngine(0)

	err := engine.Dispatch(context.Background(), Event{
		Author: "chat_stranger",
		Token:  Token{Kind: KindValueSelect, ProjectID: "proj_roadmap", Number: 42, FieldID: "f_priority"}.Encode(),
		Value:  "o1",
	})
	require.NoError(t, err)

	assert.Empty(t, remote.Updates())
	require.NotEmpty(t, ui.Notices())
	assert.Contains(t, ui.Notices()[0], "Permission denied")
}

func TestEditCommandConfirmIssuesOneMutation(t *testing.T) {
	engine, remote, ui := newTestEngine(time.Second)
	ctx := context.Background()

	outcomeCh := make(chan Outcome, 1)
	go func() {
		outcome, err := engine.EditCommand(ctx, "chat_alice", "Roadmap", "backend #42", "priority", "High")
		assert.NoError(t, err)
		outcomeCh <- outcome
	}()

	<-ui.presented
	choices := ui.LastChoices(t)
	require.Len(t, choices, 2)
	assert.Equal(t, "Confirm", choices[0].Label)

	require.NoError(t, engine.Dispatch(ctx, Event{Author: "chat_alice", Token: choices[0].Token}))

	assert.Equal(t, OutcomeDone, <-outcomeCh)
	updates := remote.Updates()
	require.Len(t, updates, 1)
	assert.Equal(t, "item_node_42", updates[0].ItemID)
	assert.Equal(t, "f_priority", updates[0].FieldID)
	assert.Equal(t, domain.OptionValue("o1"), updates[0].Value)
}

// instantConfirmUI confirms synchronously from inside PresentChoice,
// simulating a transport that delivers the click before the prompt call
// returns.
type instantConfirmUI struct {
	*fakeUI
	engine *Engine
}

func (u *instantConfirmUI) PresentChoice(ctx context.Context, prompt string, choices []Choice) error {
	if err := u.fakeUI.PresentChoice(ctx, prompt, choices); err != nil {
		return err
	}
	for _, c := range choices {
		if c.Label == "Confirm" {
			return u.engine.Dispatch(ctx, Event{Author: "chat_alice", Token: c.Token})
		}
	}
	return nil
}

func TestEditCommandConfirmDeliveredDuringPrompt(t *testing.T) {
	remote := &fakeRemote{item: domain.ItemRef{
		ID:     "item_node_42",
		Title:  "Fix login bug",
		Values: map[string]string{"Priority": "Low"},
	}}
	ui := &instantConfirmUI{fakeUI: newFakeUI()}
	ids := &fakeIDs{links: map[string]string{"chat_alice": "alice"}}
	engine := NewEngine(roadmapStore(), remote, ui, ids, time.Second, nil)
	ui.engine = engine

	// The confirm event arrives before the prompt call returns; it must be
	// claimed by this workflow, not reported stale.
	outcome, err := engine.EditCommand(context.Background(), "chat_alice", "Roadmap", "#42", "Priority", "High")
	require.NoError(t, err)
	assert.Equal(t, OutcomeDone, outcome)

	updates := remote.Updates()
	require.Len(t, updates, 1)
	assert.Equal(t, domain.OptionValue("o1"), updates[0].Value)
	assert.NotContains(t, ui.Notices(), staleControlMessage)
}

func TestEditCommandCancel(t *testing.T) {
	engine, remote, ui := newTestEngine(time.Second)
	ctx := context.Background()

	outcomeCh := make(chan Outcome, 1)
	go func() {
		outcome, _ := engine.EditCommand(ctx, "chat_alice", "Roadmap", "#42", "Priority", "High")
		outcomeCh <- outcome
	}()

	<-ui.presented
	choices := ui.LastChoices(t)
	require.NoError(t, engine.Dispatch(ctx, Event{Author: "chat_alice", Token: choices[1].Token}))

	assert.Equal(t, OutcomeCancelled, <-outcomeCh)
	assert.Empty(t, remote.Updates())
}

func TestEditCommandTimeoutIgnoresLateEvent(t *testing.T) {
	engine, remote, ui := newTestEngine(30 * time.Millisecond)
	ctx := context.Background()

	outcomeCh := make(chan Outcome, 1)
	go func() {
		outcome, _ := engine.EditCommand(ctx, "chat_alice", "Roadmap", "#42", "Priority", "High")
		outcomeCh <- outcome
	}()

	<-ui.presented
	choices := ui.LastChoices(t)
	assert.Equal(t, OutcomeTimedOut, <-outcomeCh)

	// A late confirm is no longer claimed by the finished workflow; it is
	// reported as stale and still mutates nothing.
	require.NoError(t, engine.Dispatch(ctx, Event{Author: "chat_alice", Token: choices[0].Token}))
	assert.Empty(t, remote.Updates())
	assert.Contains(t, ui.Notices(), staleControlMessage)
}

func TestEditCommandEventsFromOtherAuthorsIgnored(t *testing.T) {
	engine, remote, ui := newTestEngine(50 * time.Millisecond)
	ctx := context.Background()

	outcomeCh := make(chan Outcome, 1)
	go func() {
		outcome, _ := engine.EditCommand(ctx, "chat_alice", "Roadmap", "#42", "Priority", "High")
		outcomeCh <- outcome
	}()

	<-ui.presented
	choices := ui.LastChoices(t)

	// A confirm press by someone else does not satisfy the waiter.
	require.NoError(t, engine.Dispatch(ctx, Event{Author: "chat_mallory", Token: choices[0].Token}))

	assert.Equal(t, OutcomeTimedOut, <-outcomeCh)
	assert.Empty(t, remote.Updates())
}

func TestEditCommandRemoteFailureIsTerminal(t *testing.T) {
	engine, remote, ui := newTestEngine(time.Second)
	remote.updErr = errors.New("boom")
	ctx := context.Background()

	outcomeCh := make(chan Outcome, 1)
	go func() {
		outcome, _ := engine.EditCommand(ctx, "chat_alice", "Roadmap", "#42", "Priority", "High")
		outcomeCh <- outcome
	}()

	<-ui.presented
	choices := ui.LastChoices(t)
	require.NoError(t, engine.Dispatch(ctx, Event{Author: "chat_alice", Token: choices[0].Token}))

	assert.Equal(t, OutcomeFailed, <-outcomeCh)
	assert.Empty(t, remote.Updates())
}
