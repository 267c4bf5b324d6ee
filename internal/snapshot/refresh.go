package snapshot

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/h0rv/ghcord/internal/domain"
)

// Fetcher is the remote read surface the refresher needs. Each method
// fetches one independent collection in full.
type Fetcher interface {
	FetchRepos(ctx context.Context) ([]domain.Repo, error)
	FetchPeople(ctx context.Context) ([]domain.Person, error)
	FetchProjects(ctx context.Context) ([]domain.Project, error)
}

// Refresher periodically rebuilds the Snapshot. Overlapping refreshes are
// serialized by a mutex; readers are never blocked.
type Refresher struct {
	store    *Store
	fetch    Fetcher
	interval time.Duration
	log      *slog.Logger

	mu sync.Mutex // serializes Refresh
}

// NewRefresher wires a refresher to a store.
func NewRefresher(store *Store, fetch Fetcher, interval time.Duration, log *slog.Logger) *Refresher {
	if log == nil {
		log = slog.Default()
	}
	return &Refresher{
		store:    store,
		fetch:    fetch,
		interval: interval,
		log:      log,
	}
}

// Refresh fetches all collections and installs a new Snapshot in one atomic
// swap. Each collection is fetched independently: a failed fetch is logged
// and the previous snapshot's data for that collection is retained, so a
// transient outage never empties suggestions. Safe to call concurrently
// with reads at any point; concurrent Refresh calls run one at a time.
func (r *Refresher) Refresh(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev := r.store.Current()
	next := &domain.Snapshot{
		Repos:     prev.Repos,
		People:    prev.People,
		Projects:  prev.Projects,
		FetchedAt: time.Now().UTC(),
	}

	if repos, err := r.fetch.FetchRepos(ctx); err != nil {
		r.log.Warn("refresh: keeping previous repos", "err", err)
	} else {
		next.Repos = repos
		r.log.Info("refresh: cached repos", "count", len(repos))
	}

	if people, err := r.fetch.FetchPeople(ctx); err != nil {
		r.log.Warn("refresh: keeping previous people", "err", err)
	} else {
		next.People = people
		r.log.Info("refresh: cached people", "count", len(people))
	}

	if projects, err := r.fetch.FetchProjects(ctx); err != nil {
		r.log.Warn("refresh: keeping previous projects", "err", err)
	} else {
		next.Projects = projects
		r.log.Info("refresh: cached projects", "count", len(projects))
	}

	r.store.install(next)
}

// Run refreshes immediately and then on every interval tick until the
// context is cancelled.
func (r *Refresher) Run(ctx context.Context) {
	r.Refresh(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Refresh(ctx)
		}
	}
}
