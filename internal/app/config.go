package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"

	"github.com/xenking/shelfsafe/pkg/httpmiddleware"
)

const defaultAddr = "0.0.0.0:5000"

// Config holds the API server configuration, loadable from environment
// variables (SHELFSAFE_ prefix), flags, or YAML config files.
type Config struct {
	Addr     string `default:"0.0.0.0:5000" usage:"API server listen address"`
	MongoURI string `usage:"MongoDB connection string (SHELFSAFE_MONGO_URI or MONGODB_URI)" flag:"mongo-uri"`
	Database string `default:"shelfsafe" usage:"MongoDB database name"`
	// AttachmentEntityType narrows the dashboard attachment fetch.
	AttachmentEntityType string        `default:"inventoryLots" usage:"Entity type of image attachments; empty fetches all" flag:"attachment-entity-type"`
	QueryTimeout         time.Duration `default:"10s" usage:"Timeout of a single database round trip" flag:"query-timeout"`
	RateLimit            RateLimitConfig
	CORS                 CORSConfig
	Graceful             GracefulConfig
}

// RateLimitConfig controls the per-client token bucket.
type RateLimitConfig struct {
	RPS   float64 `default:"20" usage:"Sustained requests per second per client"`
	Burst int     `default:"40" usage:"Burst size per client"`
	// TrustedProxies lists the IPs or CIDR prefixes whose X-Forwarded-For
	// header identifies the client. Empty keys clients by peer address.
	TrustedProxies []string `usage:"Reverse proxies allowed to set X-Forwarded-For" flag:"trusted-proxies"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins []string `default:"*" usage:"Allowed CORS origins"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables and YAML config
// files, then applies platform defaults.
func LoadConfig() (*Config, error) {
	return load(aconfig.Config{
		EnvPrefix: "SHELFSAFE",
		Files:     []string{"config.yaml", "/etc/shelfsafe/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
}

func load(ac aconfig.Config) (*Config, error) {
	var cfg Config
	if err := aconfig.LoaderFor(&cfg, ac).Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports settings the server cannot start with.
func (c *Config) Validate() error {
	if c.MongoURI == "" {
		return errors.New("mongo URI is required: set SHELFSAFE_MONGO_URI or MONGODB_URI")
	}
	if c.Database == "" {
		return errors.New("database name is required")
	}
	if c.QueryTimeout <= 0 {
		return errors.Errorf("query timeout must be positive, got %s", c.QueryTimeout)
	}
	if _, err := httpmiddleware.ParseProxies(c.RateLimit.TrustedProxies); err != nil {
		return errors.Wrap(err, "trusted proxies")
	}
	return nil
}

// applyPlatformDefaults maps MONGODB_URI and PORT, as set by hosting
// platforms, onto the SHELFSAFE_ settings when those were left unset.
func (c *Config) applyPlatformDefaults() {
	if c.MongoURI == "" {
		c.MongoURI = os.Getenv("MONGODB_URI")
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}
