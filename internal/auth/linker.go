package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/h0rv/ghcord/internal/identity"
)

var (
	// ErrAlreadyLinked indicates the chat identity already has a GitHub
	// login on record.
	ErrAlreadyLinked = errors.New("identity already linked")
	// ErrLinkInProgress indicates a device flow is already polling for
	// this chat identity.
	ErrLinkInProgress = errors.New("link already in progress")
)

// ViewerFetcher resolves an access token to the GitHub login it belongs to.
type ViewerFetcher interface {
	FetchViewer(ctx context.Context, userToken string) (string, error)
}

// Linker ties the device flow to the identity table. At most one flow per
// chat identity runs at a time, and a link is written exactly once, only
// on success.
type Linker struct {
	Flow   *DeviceFlow
	Viewer ViewerFetcher
	Links  *identity.Store
	Log    *slog.Logger

	mu       sync.Mutex
	inflight map[string]bool
}

// Link runs the full flow for one chat identity. prompt is called once with
// the user code and verification URI so the caller can hand them to the
// user; Link then polls until the provider reports success, denial, or
// expiry. Exactly one identity link is written, on success only.
func (l *Linker) Link(ctx context.Context, chatID string, prompt func(userCode, verificationURI string)) (string, error) {
	if login, linked, err := l.Links.Lookup(ctx, chatID); err != nil {
		return "", err
	} else if linked {
		return login, ErrAlreadyLinked
	}

	if !l.claim(chatID) {
		return "", ErrLinkInProgress
	}
	defer l.release(chatID)

	dc, err := l.Flow.Start(ctx)
	if err != nil {
		return "", err
	}
	prompt(dc.UserCode, dc.VerificationURI)

	token, err := l.Flow.Poll(ctx, dc)
	if err != nil {
		l.logger().Info("device flow ended without link", "chat_id", chatID, "err", err)
		return "", err
	}

	login, err := l.Viewer.FetchViewer(ctx, token)
	if err != nil {
		return "", fmt.Errorf("authorized but failed to fetch identity: %w", err)
	}

	if err := l.Links.Link(ctx, chatID, login); err != nil {
		return "", err
	}
	l.logger().Info("identity linked", "chat_id", chatID, "login", login)
	return login, nil
}

// Unlink removes the stored link and returns the login that was removed.
func (l *Linker) Unlink(ctx context.Context, chatID string) (string, error) {
	return l.Links.Unlink(ctx, chatID)
}

func (l *Linker) claim(chatID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.inflight == nil {
		l.inflight = make(map[string]bool)
	}
	if l.inflight[chatID] {
		return false
	}
	l.inflight[chatID] = true
	return true
}

func (l *Linker) release(chatID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.inflight, chatID)
}

func (l *Linker) logger() *slog.Logger {
	if l.Log != nil {
		return l.Log
	}
	return slog.Default()
}
