// Package auth implements the OAuth device authorization flow used to link
// a chat identity to a GitHub account, and the linker that gates it on the
// identity table.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var (
	// ErrDenied indicates the user rejected the authorization request.
	ErrDenied = errors.New("authorization denied by user")
	// ErrExpired indicates the device code expired or the polling ceiling
	// was exceeded before authorization completed.
	ErrExpired = errors.New("authorization expired")
)

// Default endpoints and bounds for the GitHub device flow.
const (
	DefaultDeviceCodeURL  = "https://github.com/login/device/code"
	DefaultAccessTokenURL = "https://github.com/login/oauth/access_token"
	// DefaultCeiling bounds total polling duration regardless of the
	// provider's stated expiry.
	DefaultCeiling = 15 * time.Minute
)

// DeviceCode is the provider's response to starting a flow: the code the
// user enters out-of-band plus polling parameters.
type DeviceCode struct {
	DeviceCode      string
	UserCode        string
	VerificationURI string
	Interval        time.Duration
	ExpiresIn       time.Duration
}

// DeviceFlow runs the device authorization protocol against one provider.
type DeviceFlow struct {
	HTTP           *http.Client
	ClientID       string
	DeviceCodeURL  string
	AccessTokenURL string
	// Ceiling bounds total polling wall-clock time; zero selects
	// DefaultCeiling.
	Ceiling time.Duration
}

// Start requests a device/user code pair.
func (f *DeviceFlow) Start(ctx context.Context) (DeviceCode, error) {
	body, err := f.postForm(ctx, f.deviceCodeURL(), url.Values{
		"client_id": {f.ClientID},
		"scope":     {"read:user"},
	})
	if err != nil {
		return DeviceCode{}, fmt.Errorf("failed to initiate device flow: %w", err)
	}

	var resp struct {
		DeviceCode      string `json:"device_code"`
		UserCode        string `json:"user_code"`
		VerificationURI string `json:"verification_uri"`
		Interval        int    `json:"interval"`
		ExpiresIn       int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return DeviceCode{}, fmt.Errorf("decode device code response: %w", err)
	}
	if resp.DeviceCode == "" || resp.UserCode == "" || resp.VerificationURI == "" {
		return DeviceCode{}, errors.New("device code response missing required fields")
	}

	interval := resp.Interval
	if interval <= 0 {
		interval = 5
	}
	return DeviceCode{
		DeviceCode:      resp.DeviceCode,
		UserCode:        resp.UserCode,
		VerificationURI: resp.VerificationURI,
		Interval:        time.Duration(interval) * time.Second,
		ExpiresIn:       time.Duration(resp.ExpiresIn) * time.Second,
	}, nil
}

// Poll waits for the user to complete authorization and returns the access
// token. It sleeps the provider interval (plus a second of slack) between
// attempts, loops only on pending responses, and gives up when the
// wall-clock ceiling is reached no matter what the provider says.
func (f *DeviceFlow) Poll(ctx context.Context, dc DeviceCode) (string, error) {
	ceiling := f.Ceiling
	if ceiling <= 0 {
		ceiling = DefaultCeiling
	}
	deadline := time.Now().Add(ceiling)
	interval := dc.Interval + time.Second

	for {
		if time.Now().After(deadline) {
			return "", ErrExpired
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(interval):
		}

		body, err := f.postForm(ctx, f.accessTokenURL(), url.Values{
			"client_id":   {f.ClientID},
			"device_code": {dc.DeviceCode},
			"grant_type":  {"urn:ietf:params:oauth:grant-type:device_code"},
		})
		if err != nil {
			return "", fmt.Errorf("token poll failed: %w", err)
		}

		var resp struct {
			AccessToken string `json:"access_token"`
			Error       string `json:"error"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return "", fmt.Errorf("decode token response: %w", err)
		}

		switch {
		case resp.AccessToken != "":
			return resp.AccessToken, nil
		case resp.Error == "authorization_pending":
			// Expected while the user is still signing in.
		case resp.Error == "slow_down":
			interval += 5 * time.Second
		case resp.Error == "access_denied":
			return "", ErrDenied
		case resp.Error == "expired_token":
			return "", ErrExpired
		default:
			return "", fmt.Errorf("token poll returned %q", resp.Error)
		}
	}
}

func (f *DeviceFlow) postForm(ctx context.Context, endpoint string, form url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := f.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("endpoint returned %s", resp.Status)
	}

	return io.ReadAll(resp.Body)
}

func (f *DeviceFlow) deviceCodeURL() string {
	if f.DeviceCodeURL != "" {
		return f.DeviceCodeURL
	}
	return DefaultDeviceCodeURL
}

func (f *DeviceFlow) accessTokenURL() string {
	if f.AccessTokenURL != "" {
		return f.AccessTokenURL
	}
	return DefaultAccessTokenURL
}
