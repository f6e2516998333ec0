package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Duration reads "30s"-style strings from TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

type APIConfig struct {
	BaseURL string   `toml:"base_url"`
	Timeout Duration `toml:"timeout"`
}

type IdentityConfig struct {
	// Provider is "firebase" or "memory".
	Provider      string   `toml:"provider"`
	APIKey        string   `toml:"api_key"`
	SignInTimeout Duration `toml:"sign_in_timeout"`
	// GoogleRequestURI is the continue URI sent with Google ID-token sign-in.
	GoogleRequestURI string `toml:"google_request_uri"`
	// GoogleClientID enables the Google button on the login page.
	GoogleClientID string `toml:"google_client_id"`
}

type DocstoreConfig struct {
	// Backend is "memory", "firestore" or "memgraph".
	Backend   string `toml:"backend"`
	ProjectID string `toml:"project_id"`
	Database  string `toml:"database"`
	// CredentialsFile is an optional service account key for Firestore.
	CredentialsFile string `toml:"credentials_file"`
}

type MemgraphConfig struct {
	URI      string `toml:"uri"`
	User     string `toml:"user"`
	Password string `toml:"password"`
}

type UploadConfig struct {
	MaxFileSize int64 `toml:"max_file_size"`
	PreviewRows int   `toml:"preview_rows"`
}

type ResultsConfig struct {
	PageSize int `toml:"page_size"`
}

type ServerConfig struct {
	Port          string   `toml:"port"`
	Mode          string   `toml:"mode"`
	CookieName    string   `toml:"cookie_name"`
	SecureCookie  bool     `toml:"secure_cookie"`
	RedirectDelay Duration `toml:"redirect_delay"`
	IdleTimeout   Duration `toml:"workspace_idle_timeout"`
}

type TelemetryConfig struct {
	Enabled     bool   `toml:"enabled"`
	ServiceName string `toml:"service_name"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type Config struct {
	API       APIConfig       `toml:"api"`
	Identity  IdentityConfig  `toml:"identity"`
	Docstore  DocstoreConfig  `toml:"docstore"`
	Memgraph  MemgraphConfig  `toml:"memgraph"`
	Upload    UploadConfig    `toml:"upload"`
	Results   ResultsConfig   `toml:"results"`
	Server    ServerConfig    `toml:"server"`
	Telemetry TelemetryConfig `toml:"telemetry"`
	Log       LogConfig       `toml:"log"`
}

func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: "http://localhost:5000/api",
			Timeout: Duration{2 * time.Minute},
		},
		Identity: IdentityConfig{
			Provider:         "memory",
			SignInTimeout:    Duration{30 * time.Second},
			GoogleRequestURI: "http://localhost",
		},
		Docstore: DocstoreConfig{
			Backend:  "memory",
			Database: "(default)",
		},
		Memgraph: MemgraphConfig{
			URI: "bolt://localhost:7687",
		},
		Upload: UploadConfig{
			MaxFileSize: 10 << 20,
			PreviewRows: 5,
		},
		Results: ResultsConfig{
			PageSize: 50,
		},
		Server: ServerConfig{
			Port:          "8080",
			Mode:          "release",
			CookieName:    "cogniscan_workspace",
			RedirectDelay: Duration{2 * time.Second},
			IdleTimeout:   Duration{time.Hour},
		},
		Telemetry: TelemetryConfig{
			Enabled:     true,
			ServiceName: "cogniscan",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads path over the defaults. An empty path yields the defaults.
// Environment overrides are applied afterwards.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse TOML: %w", err)
		}
	}

	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	set := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	set("COGNISCAN_API_URL", &c.API.BaseURL)
	set("IDENTITY_PROVIDER", &c.Identity.Provider)
	set("FIREBASE_API_KEY", &c.Identity.APIKey)
	set("GOOGLE_CLIENT_ID", &c.Identity.GoogleClientID)
	set("DOCSTORE_BACKEND", &c.Docstore.Backend)
	set("FIREBASE_PROJECT_ID", &c.Docstore.ProjectID)
	set("GOOGLE_APPLICATION_CREDENTIALS", &c.Docstore.CredentialsFile)
	set("MEMGRAPH_URI", &c.Memgraph.URI)
	set("MEMGRAPH_USER", &c.Memgraph.User)
	set("MEMGRAPH_PASSWORD", &c.Memgraph.Password)
	set("PORT", &c.Server.Port)
	set("GIN_MODE", &c.Server.Mode)
	set("LOG_LEVEL", &c.Log.Level)
	set("LOG_FORMAT", &c.Log.Format)

	if v := getenv("METRICS_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("METRICS_ENABLED: %w", err)
		}
		c.Telemetry.Enabled = enabled
	}
	return nil
}

// Validate rejects configurations the application cannot start with.
func (c *Config) Validate() error {
	var errs []error

	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("api.base_url %q is not an absolute URL", c.API.BaseURL))
	}

	switch c.Identity.Provider {
	case "memory":
	case "firebase":
		if c.Identity.APIKey == "" {
			errs = append(errs, errors.New("identity.api_key is required for the firebase provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown identity.provider %q", c.Identity.Provider))
	}
	if c.Identity.SignInTimeout.Duration <= 0 {
		errs = append(errs, errors.New("identity.sign_in_timeout must be positive"))
	}

	switch c.Docstore.Backend {
	case "memory":
	case "firestore":
		if c.Docstore.ProjectID == "" {
			errs = append(errs, errors.New("docstore.project_id is required for the firestore backend"))
		}
	case "memgraph":
		if c.Memgraph.URI == "" {
			errs = append(errs, errors.New("memgraph.uri is required for the memgraph backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown docstore.backend %q", c.Docstore.Backend))
	}

	if c.Upload.MaxFileSize <= 0 {
		errs = append(errs, errors.New("upload.max_file_size must be positive"))
	}
	if c.Upload.PreviewRows < 0 {
		errs = append(errs, errors.New("upload.preview_rows must not be negative"))
	}
	if c.Results.PageSize <= 0 {
		errs = append(errs, errors.New("results.page_size must be positive"))
	}

	return errors.Join(errs...)
}
