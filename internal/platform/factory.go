// Package platform builds the identity and document backends named in the
// configuration.
package platform

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/api/option"

	"github.com/agenthands/cogniscan/internal/config"
	"github.com/agenthands/cogniscan/internal/docstore"
	"github.com/agenthands/cogniscan/internal/driver"
	"github.com/agenthands/cogniscan/internal/identity"
)

func NewAuthenticator(ctx context.Context, cfg config.IdentityConfig, logger *slog.Logger) (identity.Authenticator, error) {
	provider := strings.ToLower(cfg.Provider)

	switch provider {
	case "firebase":
		return identity.NewFirebaseAuth(ctx, cfg.APIKey, cfg.GoogleRequestURI)

	case "memory":
		logger.Warn("using in-memory identity provider; accounts are lost on restart")
		return identity.NewMemoryAuth(), nil

	default:
		return nil, fmt.Errorf("unsupported identity provider: %s", provider)
	}
}

func NewDocstore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (docstore.Store, error) {
	backend := strings.ToLower(cfg.Docstore.Backend)

	switch backend {
	case "firestore":
		var opts []option.ClientOption
		if cfg.Docstore.CredentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(cfg.Docstore.CredentialsFile))
		}
		return docstore.NewFirestore(ctx, cfg.Docstore.ProjectID, cfg.Docstore.Database, opts...)

	case "memgraph":
		d, err := driver.NewMemgraphDriver(ctx, cfg.Memgraph.URI, cfg.Memgraph.User, cfg.Memgraph.Password, logger)
		if err != nil {
			return nil, err
		}
		if err := d.BuildIndices(ctx); err != nil {
			_ = d.Close(ctx)
			return nil, fmt.Errorf("build indices: %w", err)
		}
		return docstore.NewGraph(d), nil

	case "memory":
		logger.Warn("using in-memory document store; roles and models are lost on restart")
		return docstore.NewMemory(), nil

	default:
		return nil, fmt.Errorf("unsupported docstore backend: %s", backend)
	}
}
