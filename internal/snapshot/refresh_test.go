package snapshot

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/h0rv/ghcord/internal/domain"
)

type stubFetcher struct {
	mu    sync.Mutex
	calls int

	repos    []domain.Repo
	people   []domain.Person
	projects []domain.Project

	reposErr  error
	peopleErr error
}

func (f *stubFetcher) FetchRepos(context.Context) ([]domain.Repo, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.reposErr != nil {
		return nil, f.reposErr
	}
	return f.repos, nil
}

func (f *stubFetcher) FetchPeople(context.Context) ([]domain.Person, error) {
	if f.peopleErr != nil {
		return nil, f.peopleErr
	}
	return f.people, nil
}

func (f *stubFetcher) FetchProjects(context.Context) ([]domain.Project, error) {
	return f.projects, nil
}

func (f *stubFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestStoreStartsEmptyButNeverNil(t *testing.T) {
	store := NewStore()

	snap := store.Current()
	require.NotNil(t, snap)
	assert.Empty(t, snap.Repos)
	assert.Empty(t, snap.Projects)
}

func TestRefreshInstallsAllSections(t *testing.T) {
	store := NewStore()
	fetch := &stubFetcher{
		repos:    []domain.Repo{{Name: "backend"}},
		people:   []domain.Person{{Login: "alice"}},
		projects: []domain.Project{{ID: "p1", Title: "Roadmap"}},
	}

	NewRefresher(store, fetch, time.Hour, nil).Refresh(context.Background())

	snap := store.Current()
	assert.Equal(t, fetch.repos, snap.Repos)
	assert.Equal(t, fetch.people, snap.People)
	assert.Equal(t, fetch.projects, snap.Projects)
	assert.False(t, snap.FetchedAt.IsZero())
}

func TestRefreshRetainsSectionOnFailure(t *testing.T) {
	store := NewStore()
	fetch := &stubFetcher{
		repos:    []domain.Repo{{Name: "backend"}},
		people:   []domain.Person{{Login: "alice"}},
		projects: []domain.Project{{ID: "p1", Title: "Roadmap"}},
	}
	refresher := NewRefresher(store, fetch, time.Hour, nil)
	refresher.Refresh(context.Background())

	// Next cycle: people fetch fails, projects change.
	fetch.peopleErr = errors.New("503")
	fetch.projects = []domain.Project{{ID: "p1", Title: "Roadmap v2"}}
	refresher.Refresh(context.Background())

	snap := store.Current()
	assert.Equal(t, []domain.Person{{Login: "alice"}}, snap.People, "failed section keeps previous data")
	assert.Equal(t, "Roadmap v2", snap.Projects[0].Title, "healthy sections still advance")
}

func TestRefreshSwapIsAtomic(t *testing.T) {
	store := NewStore()
	fetch := &stubFetcher{
		repos:  []domain.Repo{{Name: "backend"}},
		people: []domain.Person{{Login: "alice"}},
	}
	refresher := NewRefresher(store, fetch, time.Hour, nil)

	// Readers racing with refreshes must only ever see a snapshot where the
	// sections came from the same install, never a torn mix.
	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			snap := store.Current()
			if len(snap.Repos) > 0 {
				assert.NotEmpty(t, snap.People)
			}
		}
	}()

	for i := 0; i < 50; i++ {
		refresher.Refresh(context.Background())
	}
	close(stop)
	wg.Wait()
}

func TestRunRefreshesImmediatelyAndStopsOnCancel(t *testing.T) {
	store := NewStore()
	fetch := &stubFetcher{repos: []domain.Repo{{Name: "backend"}}}
	refresher := NewRefresher(store, fetch, 5*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		refresher.Run(ctx)
	}()

	require.Eventually(t, func() bool {
		return fetch.Calls() >= 2 // the immediate refresh plus a tick
	}, time.Second, time.Millisecond)
	assert.NotEmpty(t, store.Current().Repos)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after context cancellation")
	}
}
