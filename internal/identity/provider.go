package identity

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/agenthands/cogniscan/internal/apperr"
	"github.com/agenthands/cogniscan/internal/model"
)

const DefaultSignInTimeout = 30 * time.Second

// Authenticator is the external identity platform.
type Authenticator interface {
	SignIn(ctx context.Context, email, password string) (model.Credential, error)
	SignUp(ctx context.Context, name, email, password string) (model.Credential, error)
	// SignInWithGoogle exchanges a Google ID token for a platform credential.
	SignInWithGoogle(ctx context.Context, googleIDToken string) (model.Credential, error)
}

// Directory is the per-user document lookup.
type Directory interface {
	UserRole(ctx context.Context, uid string) (model.Role, error)
	EnsureUser(ctx context.Context, profile model.UserProfile) (bool, error)
}

type Option func(*Provider)

func WithSignInTimeout(d time.Duration) Option {
	return func(p *Provider) {
		if d > 0 {
			p.timeout = d
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(p *Provider) { p.logger = l }
}

type Provider struct {
	store   *Store
	auth    Authenticator
	dir     Directory
	logger  *slog.Logger
	timeout time.Duration

	mu         sync.Mutex
	inProgress int
	roles      sync.WaitGroup
}

func NewProvider(store *Store, auth Authenticator, dir Directory, opts ...Option) *Provider {
	p := &Provider{
		store:   store,
		auth:    auth,
		dir:     dir,
		logger:  slog.Default(),
		timeout: DefaultSignInTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) Store() *Store { return p.store }

// HandleSessionChange is the platform's session-change notification. A nil
// credential tears the session down. Otherwise the session is published with
// RoleUnknown and the role is looked up in the background; a lookup that
// finishes after the session changed again is dropped. A credential with an
// expiry signs itself out when it lapses; there is no silent refresh.
func (p *Provider) HandleSessionChange(cred *model.Credential) {
	if cred == nil {
		p.store.clear()
		return
	}
	version := p.store.set(*cred)
	if p.dir == nil {
		return
	}

	p.roles.Add(1)
	go func(uid string) {
		defer p.roles.Done()
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()

		role, err := p.dir.UserRole(ctx, uid)
		if err != nil {
			p.logger.Warn("role lookup failed", "user", uid, "error", err)
			return
		}
		if !p.store.setRole(version, role) {
			p.logger.Debug("discarding role for superseded session", "user", uid)
		}
	}(cred.UserID)
}

// InProgress reports whether a sign-in call is outstanding.
func (p *Provider) InProgress() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inProgress > 0
}

func (p *Provider) SignIn(ctx context.Context, email, password string) error {
	cred, err := p.call(ctx, "sign in", func(ctx context.Context) (model.Credential, error) {
		return p.auth.SignIn(ctx, email, password)
	})
	if err != nil {
		return err
	}
	p.HandleSessionChange(&cred)
	return nil
}

// SignUp creates the account and its profile document, then signs in.
func (p *Provider) SignUp(ctx context.Context, name, email, password string) error {
	cred, err := p.call(ctx, "sign up", func(ctx context.Context) (model.Credential, error) {
		return p.auth.SignUp(ctx, name, email, password)
	})
	if err != nil {
		return err
	}
	if cred.DisplayName == "" {
		cred.DisplayName = name
	}
	p.ensureProfile(ctx, cred, name)
	p.HandleSessionChange(&cred)
	return nil
}

// SignInWithGoogle signs in with a Google ID token and creates the profile
// document on first sign-in.
func (p *Provider) SignInWithGoogle(ctx context.Context, googleIDToken string) error {
	cred, err := p.call(ctx, "Google sign in", func(ctx context.Context) (model.Credential, error) {
		return p.auth.SignInWithGoogle(ctx, googleIDToken)
	})
	if err != nil {
		return err
	}
	p.ensureProfile(ctx, cred, cred.DisplayName)
	p.HandleSessionChange(&cred)
	return nil
}

func (p *Provider) SignOut() {
	p.HandleSessionChange(nil)
}

func (p *Provider) ensureProfile(ctx context.Context, cred model.Credential, name string) {
	if p.dir == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()
	created, err := p.dir.EnsureUser(ctx, model.UserProfile{
		UserID:    cred.UserID,
		Name:      name,
		Email:     cred.Email,
		CreatedAt: time.Now(),
	})
	if err != nil {
		p.logger.Warn("failed to create user profile", "user", cred.UserID, "error", err)
		return
	}
	if created {
		p.logger.Info("created user profile", "user", cred.UserID)
	}
}

// call runs fn under the sign-in timeout. When the timeout fires the caller
// gets an error and the in-progress flag clears even if fn never returns; a
// late result is dropped.
func (p *Provider) call(ctx context.Context, op string, fn func(context.Context) (model.Credential, error)) (model.Credential, error) {
	p.mu.Lock()
	p.inProgress++
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		p.inProgress--
		p.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	type result struct {
		cred model.Credential
		err  error
	}
	done := make(chan result, 1)
	go func() {
		cred, err := fn(ctx)
		done <- result{cred, err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			p.logger.Info(op+" failed", "error", r.err)
		}
		return r.cred, r.err
	case <-ctx.Done():
		p.logger.Warn(op+" timed out", "timeout", p.timeout)
		return model.Credential{}, apperr.Authentication(op+" timed out", ctx.Err())
	}
}
