package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/agenthands/cogniscan/internal/api"
	"github.com/agenthands/cogniscan/internal/config"
	"github.com/agenthands/cogniscan/internal/dataset"
	"github.com/agenthands/cogniscan/internal/docstore"
	"github.com/agenthands/cogniscan/internal/identity"
	"github.com/agenthands/cogniscan/internal/logging"
	"github.com/agenthands/cogniscan/internal/platform"
)

// AppContext holds the dependencies shared by the commands. The CLI is one
// user in one process, so it owns a single identity store.
type AppContext struct {
	Config    *config.Config
	Logger    *slog.Logger
	Docs      docstore.Store
	Provider  *identity.Provider
	Client    *api.Client
	Validator *dataset.Validator
}

func NewAppContext(ctx context.Context) (*AppContext, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.New(logging.Config{Level: logLevel, Format: cfg.Log.Format}, os.Stderr)
	if err != nil {
		return nil, err
	}

	auth, err := platform.NewAuthenticator(ctx, cfg.Identity, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize identity provider: %w", err)
	}
	docs, err := platform.NewDocstore(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize document store: %w", err)
	}

	store := identity.NewStore()
	return &AppContext{
		Config: cfg,
		Logger: logger,
		Docs:   docs,
		Provider: identity.NewProvider(store, auth, docs,
			identity.WithSignInTimeout(cfg.Identity.SignInTimeout.Duration),
			identity.WithLogger(logger),
		),
		Client: api.New(cfg.API.BaseURL, store,
			api.WithLogger(logger),
			api.WithHTTPClient(&http.Client{Timeout: cfg.API.Timeout.Duration}),
		),
		Validator: dataset.NewValidator(cfg.Upload.PreviewRows),
	}, nil
}

// SignIn authenticates with the global credentials. The in-memory provider
// starts empty, so there the account is created on the fly.
func (a *AppContext) SignIn(ctx context.Context) error {
	if email == "" || password == "" {
		return errors.New("credentials required: set --email/--password or COGNISCAN_EMAIL/COGNISCAN_PASSWORD")
	}
	if a.Config.Identity.Provider == "memory" {
		return a.Provider.SignUp(ctx, email, email, password)
	}
	return a.Provider.SignIn(ctx, email, password)
}

func (a *AppContext) Close(ctx context.Context) error {
	a.Provider.SignOut()
	return a.Docs.Close(ctx)
}
