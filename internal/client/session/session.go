// Package session implements the authenticated session: login, bearer
// token use, refresh-once-then-retry on 401, and logout.
//
// The session state is a plain value. Every operation takes the current
// State and returns the next one; nothing is kept in package or struct
// globals, so callers decide when a transition is applied.
package session

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/timekeeper/internal/client/client"
	"github.com/dmitrijs2005/timekeeper/internal/client/models"
	"github.com/dmitrijs2005/timekeeper/internal/common"
	"github.com/dmitrijs2005/timekeeper/internal/cryptox"
	"github.com/dmitrijs2005/timekeeper/internal/logging"
)

var (
	ErrNotLoggedIn = errors.New("not logged in")
	// ErrReloginRequired means both the access and the refresh token were
	// rejected. The returned state is LoggedOut and the stored credential
	// must be erased.
	ErrReloginRequired = errors.New("session expired, login required")
	// ErrDevice means the device id could not be computed or the stored
	// user key cannot be unwrapped on this device.
	ErrDevice = errors.New("device identity error")
)

// Status is the position in the session state machine.
type Status int

const (
	LoggedOut Status = iota
	LoggedIn
	Refreshing
)

func (s Status) String() string {
	switch s {
	case LoggedIn:
		return "logged in"
	case Refreshing:
		return "refreshing"
	}
	return "logged out"
}

// State is the session value passed through every operation.
type State struct {
	Status     Status
	Credential *models.Credential
}

// IsLoggedIn reports whether the state carries a usable credential.
func (s State) IsLoggedIn() bool {
	return s.Status != LoggedOut && s.Credential != nil
}

// DeviceIdentity yields the current device id.
type DeviceIdentity interface {
	DeviceID(ctx context.Context) (string, error)
}

// Session performs state transitions against the remote API.
type Session struct {
	api    client.Client
	device DeviceIdentity
	log    logging.Logger
}

func New(api client.Client, device DeviceIdentity, log logging.Logger) *Session {
	return &Session{api: api, device: device, log: log}
}

// DeviceID returns the current device id, wrapped in ErrDevice on failure.
func (s *Session) DeviceID(ctx context.Context) (string, error) {
	id, err := s.device.DeviceID(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrDevice, err)
	}
	return id, nil
}

// Login derives the user key from passphrase, proves it to the server with
// a verifier and returns a LoggedIn state whose credential holds the key
// wrapped under the device key. The passphrase is not retained.
func (s *Session) Login(ctx context.Context, email string, passphrase []byte, server string) (State, error) {
	deviceID, err := s.DeviceID(ctx)
	if err != nil {
		return State{}, err
	}

	userKey := cryptox.DeriveUserKey(passphrase)
	defer common.WipeByteArray(userKey)

	resp, err := s.api.Login(ctx, server, models.LoginRequest{
		Email:         email,
		EncryptionKey: base64.StdEncoding.EncodeToString(cryptox.MakeVerifier(userKey)),
		DeviceID:      deviceID,
	})
	if err != nil {
		return State{}, err
	}

	wrapped, nonce, err := cryptox.WrapUserKey(userKey, deviceID)
	if err != nil {
		return State{}, fmt.Errorf("%w: wrap user key: %w", ErrDevice, err)
	}

	s.log.Info(ctx, "logged in", "email", email, "server", server)

	return State{
		Status: LoggedIn,
		Credential: &models.Credential{
			Email:        email,
			WrappedKey:   wrapped,
			WrapNonce:    nonce,
			AccessToken:  resp.AccessToken,
			RefreshToken: resp.RefreshToken,
			ServerURL:    server,
		},
	}, nil
}

// UserKey unwraps the user key held by st. The caller should wipe it after
// use.
func (s *Session) UserKey(ctx context.Context, st State) ([]byte, error) {
	if !st.IsLoggedIn() {
		return nil, ErrNotLoggedIn
	}
	deviceID, err := s.DeviceID(ctx)
	if err != nil {
		return nil, err
	}
	key, err := cryptox.UnwrapUserKey(st.Credential.WrappedKey, st.Credential.WrapNonce, deviceID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDevice, err)
	}
	return key, nil
}

// Authorized runs call with the current access token. On ErrUnauthorized
// it refreshes the token exactly once and retries call exactly once.
//
// A rejected refresh or a second 401 is irrecoverable: the returned state
// is LoggedOut and the error wraps ErrReloginRequired. A refresh that fails
// only because the server is unreachable keeps the session and returns
// client.ErrUnavailable so the caller can try again later. Only a refresh
// the server answered counts as a refresh failure here; transport errors
// stay retryable like every other network error.
func (s *Session) Authorized(ctx context.Context, st State, call func(ctx context.Context, token string) error) (State, error) {
	if !st.IsLoggedIn() {
		return st, ErrNotLoggedIn
	}
	cred := st.Credential

	err := call(ctx, cred.AccessToken)
	if !errors.Is(err, client.ErrUnauthorized) {
		return st, err
	}

	s.log.Info(ctx, "access token rejected", "status", Refreshing)

	deviceID, err := s.DeviceID(ctx)
	if err != nil {
		return State{Status: LoggedIn, Credential: cred}, err
	}

	token, err := s.api.RefreshToken(ctx, cred.ServerURL, cred.RefreshToken, deviceID)
	if err != nil {
		if errors.Is(err, client.ErrUnavailable) {
			return State{Status: LoggedIn, Credential: cred}, err
		}
		s.log.Warn(ctx, "token refresh rejected, forcing logout", "error", err)
		return State{}, fmt.Errorf("%w: %w", ErrReloginRequired, err)
	}

	next := *cred
	next.AccessToken = token
	st = State{Status: LoggedIn, Credential: &next}

	if exp, ok := TokenExpiry(token); ok {
		s.log.Debug(ctx, "access token refreshed", "expires", exp)
	}

	err = call(ctx, token)
	if errors.Is(err, client.ErrUnauthorized) {
		s.log.Warn(ctx, "refreshed token rejected, forcing logout")
		return State{}, fmt.Errorf("%w: %w", ErrReloginRequired, err)
	}
	return st, err
}

// Logout notifies the server on a best-effort basis and always returns the
// LoggedOut state.
func (s *Session) Logout(ctx context.Context, st State) State {
	if !st.IsLoggedIn() {
		return State{}
	}
	cred := st.Credential

	deviceID, err := s.DeviceID(ctx)
	if err != nil {
		s.log.Warn(ctx, "logout without server notification", "error", err)
		return State{}
	}

	if err := s.api.Logout(ctx, cred.ServerURL, cred.AccessToken, deviceID); err != nil {
		s.log.Warn(ctx, "server logout failed", "error", err)
	} else {
		s.log.Info(ctx, "logged out", "email", cred.Email)
	}
	return State{}
}
