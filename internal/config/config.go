package config

import "github.com/kelseyhightower/envconfig"

// Config holds application configuration loaded from environment variables.
type Config struct {
	Port                int    `envconfig:"PORT" default:"8080"`
	LogLevel            string `envconfig:"LOG_LEVEL" default:"info"`
	DatabaseURL         string `envconfig:"DATABASE_URL" required:"true"`
	StoreRoot           string `envconfig:"STORE_ROOT" default:"/var/lib/stencil/store"`
	StoreBaseURI        string `envconfig:"STORE_BASE_URI" default:"http://localhost:8080/resources"`
	FetchTimeoutSeconds int    `envconfig:"FETCH_TIMEOUT_SECONDS" default:"30"`
	MaxArchiveSizeMB    int64  `envconfig:"MAX_ARCHIVE_SIZE_MB" default:"50"`
	BcryptCost          int    `envconfig:"BCRYPT_COST" default:"12"`
	Version             string `envconfig:"VERSION" default:"dev"`
}

// Load reads configuration from environment variables into a Config struct.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
