package identity

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/cogniscan/internal/apperr"
	"github.com/agenthands/cogniscan/internal/logging"
	"github.com/agenthands/cogniscan/internal/model"
)

type fakeAuth struct {
	cred  model.Credential
	err   error
	block chan struct{}
}

func (f *fakeAuth) wait(ctx context.Context) {
	if f.block != nil {
		<-f.block
	}
}

func (f *fakeAuth) SignIn(ctx context.Context, email, password string) (model.Credential, error) {
	f.wait(ctx)
	return f.cred, f.err
}

func (f *fakeAuth) SignUp(ctx context.Context, name, email, password string) (model.Credential, error) {
	f.wait(ctx)
	return f.cred, f.err
}

func (f *fakeAuth) SignInWithGoogle(ctx context.Context, token string) (model.Credential, error) {
	f.wait(ctx)
	return f.cred, f.err
}

// fakeDirectory answers role lookups; a uid listed in gates blocks until its
// channel is closed.
type fakeDirectory struct {
	mu       sync.Mutex
	roles    map[string]model.Role
	gates    map[string]chan struct{}
	err      error
	profiles []model.UserProfile
}

func (d *fakeDirectory) UserRole(ctx context.Context, uid string) (model.Role, error) {
	d.mu.Lock()
	gate := d.gates[uid]
	d.mu.Unlock()
	if gate != nil {
		<-gate
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return model.RoleUnknown, d.err
	}
	return d.roles[uid], nil
}

func (d *fakeDirectory) EnsureUser(ctx context.Context, p model.UserProfile) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.profiles = append(d.profiles, p)
	return true, nil
}

func newProvider(auth Authenticator, dir Directory, opts ...Option) *Provider {
	opts = append([]Option{WithLogger(logging.Discard())}, opts...)
	return NewProvider(NewStore(), auth, dir, opts...)
}

func TestHandleSessionChange_FetchesRole(t *testing.T) {
	dir := &fakeDirectory{roles: map[string]model.Role{"u1": model.RoleAdmin}}
	p := newProvider(&fakeAuth{}, dir)

	p.HandleSessionChange(&model.Credential{UserID: "u1", IDToken: "t"})
	p.roles.Wait()

	sess, ok := p.Store().Current()
	require.True(t, ok)
	assert.Equal(t, model.RoleAdmin, sess.Role)
	assert.True(t, sess.IsAdmin())
}

func TestHandleSessionChange_RoleFailureStaysUnknown(t *testing.T) {
	dir := &fakeDirectory{err: errors.New("permission denied")}
	p := newProvider(&fakeAuth{}, dir)

	p.HandleSessionChange(&model.Credential{UserID: "u1"})
	p.roles.Wait()

	sess, ok := p.Store().Current()
	require.True(t, ok)
	assert.Equal(t, model.RoleUnknown, sess.Role)
}

func TestHandleSessionChange_DiscardsRoleForSupersededSession(t *testing.T) {
	gate := make(chan struct{})
	dir := &fakeDirectory{
		roles: map[string]model.Role{"u1": model.RoleAdmin, "u2": model.RoleClinician},
		gates: map[string]chan struct{}{"u1": gate},
	}
	p := newProvider(&fakeAuth{}, dir)

	p.HandleSessionChange(&model.Credential{UserID: "u1"})
	p.HandleSessionChange(&model.Credential{UserID: "u2"})
	close(gate)
	p.roles.Wait()

	sess, _ := p.Store().Current()
	assert.Equal(t, "u2", sess.UserID)
	assert.Equal(t, model.RoleClinician, sess.Role)
}

func TestHandleSessionChange_SignOutBeforeRoleArrives(t *testing.T) {
	gate := make(chan struct{})
	dir := &fakeDirectory{
		roles: map[string]model.Role{"u1": model.RoleAdmin},
		gates: map[string]chan struct{}{"u1": gate},
	}
	p := newProvider(&fakeAuth{}, dir)

	p.HandleSessionChange(&model.Credential{UserID: "u1"})
	p.SignOut()
	close(gate)
	p.roles.Wait()

	_, ok := p.Store().Current()
	assert.False(t, ok)
}

func TestSignIn(t *testing.T) {
	auth := &fakeAuth{cred: model.Credential{UserID: "u1", Email: "a@b.c", IDToken: "tok"}}
	p := newProvider(auth, &fakeDirectory{roles: map[string]model.Role{"u1": model.RoleClinician}})

	require.NoError(t, p.SignIn(context.Background(), "a@b.c", "secret"))
	p.roles.Wait()

	tok, err := p.Store().Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok", tok)
	assert.False(t, p.InProgress())
}

func TestSignIn_FailureLeavesSignedOut(t *testing.T) {
	auth := &fakeAuth{err: apperr.Authentication("Invalid email or password.", nil)}
	p := newProvider(auth, &fakeDirectory{})

	err := p.SignIn(context.Background(), "a@b.c", "wrong")
	var authErr *apperr.AuthenticationError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "Invalid email or password.", authErr.Message)
	_, ok := p.Store().Current()
	assert.False(t, ok)
	assert.False(t, p.InProgress())
}

func TestSignIn_TimeoutClearsInProgress(t *testing.T) {
	auth := &fakeAuth{block: make(chan struct{}), cred: model.Credential{UserID: "late"}}
	defer close(auth.block)
	p := newProvider(auth, &fakeDirectory{}, WithSignInTimeout(200*time.Millisecond))

	done := make(chan error, 1)
	go func() { done <- p.SignInWithGoogle(context.Background(), "google-token") }()

	assert.Eventually(t, p.InProgress, time.Second, time.Millisecond)
	select {
	case err := <-done:
		var authErr *apperr.AuthenticationError
		assert.ErrorAs(t, err, &authErr)
	case <-time.After(2 * time.Second):
		t.Fatal("sign-in did not time out")
	}
	assert.False(t, p.InProgress())
	_, ok := p.Store().Current()
	assert.False(t, ok, "a late credential is not applied")
}

func TestSignUp_CreatesProfile(t *testing.T) {
	dir := &fakeDirectory{}
	auth := &fakeAuth{cred: model.Credential{UserID: "u9", Email: "new@example.com", IDToken: "t"}}
	p := newProvider(auth, dir)

	require.NoError(t, p.SignUp(context.Background(), "New User", "new@example.com", "password1"))
	p.roles.Wait()

	require.Len(t, dir.profiles, 1)
	assert.Equal(t, "u9", dir.profiles[0].UserID)
	assert.Equal(t, "New User", dir.profiles[0].Name)
	assert.False(t, dir.profiles[0].CreatedAt.IsZero())

	sess, ok := p.Store().Current()
	require.True(t, ok)
	assert.Equal(t, "New User", sess.DisplayName)
}

func TestSignInWithGoogle_EnsuresProfile(t *testing.T) {
	dir := &fakeDirectory{}
	auth := &fakeAuth{cred: model.Credential{UserID: "g1", DisplayName: "Grace", Email: "g@example.com", IDToken: "t"}}
	p := newProvider(auth, dir)

	require.NoError(t, p.SignInWithGoogle(context.Background(), "google-id-token"))
	p.roles.Wait()
	require.Len(t, dir.profiles, 1)
	assert.Equal(t, "Grace", dir.profiles[0].Name)
}

func TestHandleSessionChange_ExpiredCredentialSignsOut(t *testing.T) {
	p := newProvider(&fakeAuth{}, &fakeDirectory{})

	p.HandleSessionChange(&model.Credential{UserID: "u1", IDToken: "t", ExpiresAt: time.Now().Add(-time.Second)})
	p.roles.Wait()

	_, signedIn := p.Store().Current()
	assert.False(t, signedIn)
	_, err := p.Store().Token(context.Background())
	assert.Error(t, err)
}
