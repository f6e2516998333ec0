package identity

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/identitytoolkit/v3"
	"google.golang.org/api/option"

	"github.com/agenthands/cogniscan/internal/apperr"
	"github.com/agenthands/cogniscan/internal/model"
)

// FirebaseAuth signs users in through the Identity Toolkit REST API.
type FirebaseAuth struct {
	rp         *identitytoolkit.RelyingpartyService
	requestURI string
	now        func() time.Time
}

// NewFirebaseAuth builds the adapter. requestURI is sent with Google ID token
// exchanges and must be an authorized domain of the project.
func NewFirebaseAuth(ctx context.Context, apiKey, requestURI string, opts ...option.ClientOption) (*FirebaseAuth, error) {
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	svc, err := identitytoolkit.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create identity toolkit service: %w", err)
	}
	return &FirebaseAuth{rp: svc.Relyingparty, requestURI: requestURI, now: time.Now}, nil
}

func (f *FirebaseAuth) SignIn(ctx context.Context, email, password string) (model.Credential, error) {
	resp, err := f.rp.VerifyPassword(&identitytoolkit.IdentitytoolkitRelyingpartyVerifyPasswordRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}).Context(ctx).Do()
	if err != nil {
		return model.Credential{}, platformError(err)
	}
	return f.credential(resp.LocalId, resp.DisplayName, resp.Email, resp.IdToken, resp.RefreshToken, resp.ExpiresIn), nil
}

func (f *FirebaseAuth) SignUp(ctx context.Context, name, email, password string) (model.Credential, error) {
	resp, err := f.rp.SignupNewUser(&identitytoolkit.IdentitytoolkitRelyingpartySignupNewUserRequest{
		DisplayName: name,
		Email:       email,
		Password:    password,
	}).Context(ctx).Do()
	if err != nil {
		return model.Credential{}, platformError(err)
	}
	return f.credential(resp.LocalId, resp.DisplayName, resp.Email, resp.IdToken, resp.RefreshToken, resp.ExpiresIn), nil
}

func (f *FirebaseAuth) SignInWithGoogle(ctx context.Context, googleIDToken string) (model.Credential, error) {
	body := url.Values{"id_token": {googleIDToken}, "providerId": {"google.com"}}.Encode()
	resp, err := f.rp.VerifyAssertion(&identitytoolkit.IdentitytoolkitRelyingpartyVerifyAssertionRequest{
		PostBody:          body,
		RequestUri:        f.requestURI,
		ReturnSecureToken: true,
	}).Context(ctx).Do()
	if err != nil {
		return model.Credential{}, platformError(err)
	}
	return f.credential(resp.LocalId, resp.DisplayName, resp.Email, resp.IdToken, resp.RefreshToken, resp.ExpiresIn), nil
}

func (f *FirebaseAuth) credential(uid, name, email, idToken, refresh string, expiresIn int64) model.Credential {
	c := model.Credential{
		UserID:       uid,
		DisplayName:  name,
		Email:        email,
		IDToken:      idToken,
		RefreshToken: refresh,
	}
	if expiresIn > 0 {
		c.ExpiresAt = f.now().Add(time.Duration(expiresIn) * time.Second)
	}
	return c
}

var platformMessages = map[string]string{
	"EMAIL_NOT_FOUND":             "Invalid email or password.",
	"INVALID_PASSWORD":            "Invalid email or password.",
	"INVALID_LOGIN_CREDENTIALS":   "Invalid email or password.",
	"USER_DISABLED":               "This account has been disabled.",
	"EMAIL_EXISTS":                "An account with this email already exists.",
	"WEAK_PASSWORD":               "Password should be at least 6 characters.",
	"INVALID_EMAIL":               "Invalid email address.",
	"TOO_MANY_ATTEMPTS_TRY_LATER": "Too many attempts. Please try again later.",
}

// platformError turns an Identity Toolkit failure into an AuthenticationError
// with a readable message. Codes look like "WEAK_PASSWORD : detail".
func platformError(err error) error {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return apperr.Authentication("identity platform unavailable", err)
	}
	code, _, _ := strings.Cut(gerr.Message, " ")
	if msg, ok := platformMessages[code]; ok {
		return apperr.Authentication(msg, nil)
	}
	return apperr.Authentication("An error occurred during login.", err)
}
