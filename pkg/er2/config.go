// config.go defines the client configuration value object, its defaults,
// file loading and the advisory validator.

package er2

import (
	"net/url"
	"os"
	"time"

	"github.com/mongodb/grip"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultServiceID is used when no service identifier is configured.
	DefaultServiceID = "My SPFW App"

	// DefaultTimeout bounds a single send.
	DefaultTimeout = 5 * time.Second

	// minStrictTokenLength is the shortest token accepted by a strict check.
	minStrictTokenLength = 16
)

// Config holds everything the client needs before the first report.
// It must not be mutated once a Client has been built from it.
type Config struct {
	// ServerURL is the collector endpoint receiving the POST.
	ServerURL string `yaml:"server_url"`

	// APIToken is embedded in every report's authentication section.
	APIToken string `yaml:"api_token"`

	// ServiceID identifies the reporting application (default: "My SPFW App").
	ServiceID string `yaml:"service_id"`

	// Timeout bounds one send (default: 5s).
	Timeout time.Duration `yaml:"timeout"`

	// Disable turns off individual report sections.
	Disable Toggles `yaml:"disable"`

	// Block lists input keys that are never transmitted.
	Block BlockLists `yaml:"block"`
}

// Toggles disable report sections. The zero value transmits everything.
type Toggles struct {
	Cookies          bool `yaml:"cookies"`
	DatabaseQueries  bool `yaml:"database_queries"`
	Environment      bool `yaml:"environment"`
	GetParameters    bool `yaml:"get_parameters"`
	PostParameters   bool `yaml:"post_parameters"`
	SessionVariables bool `yaml:"session_variables"`
}

// BlockLists holds the per-category key names removed before transmission.
type BlockLists struct {
	Cookies []string `yaml:"cookies"`
	Get     []string `yaml:"get"`
	Post    []string `yaml:"post"`
	Session []string `yaml:"session"`
}

// DefaultConfig returns a configuration with every default applied.
func DefaultConfig(serverURL, apiToken string) Config {
	cfg := Config{ServerURL: serverURL, APIToken: apiToken}
	ApplyDefaults(&cfg)
	return cfg
}

// ApplyDefaults fills zero-valued fields with their defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.ServiceID == "" {
		cfg.ServiceID = DefaultServiceID
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
}

// LoadConfig reads a YAML configuration file and applies defaults. A zero
// timeout becomes DefaultTimeout and a negative one is an error; nothing
// else is validated, call Check for that.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "reading config file '%s'", path)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrapf(err, "parsing config file '%s'", path)
	}
	if cfg.Timeout < 0 {
		return Config{}, errors.Errorf("parsing config file '%s': timeout %s is negative", path, cfg.Timeout)
	}

	ApplyDefaults(&cfg)
	return cfg, nil
}

// LoadConfigWithEnvOverrides loads a file and then applies ER2_SERVER_URL,
// ER2_API_TOKEN, ER2_SERVICE_ID and ER2_TIMEOUT from the environment.
// An empty path skips the file and starts from defaults.
func LoadConfigWithEnvOverrides(path string) (Config, error) {
	var cfg Config
	if path != "" {
		var err error
		if cfg, err = LoadConfig(path); err != nil {
			return Config{}, err
		}
	}

	if val := os.Getenv("ER2_SERVER_URL"); val != "" {
		cfg.ServerURL = val
	}
	if val := os.Getenv("ER2_API_TOKEN"); val != "" {
		cfg.APIToken = val
	}
	if val := os.Getenv("ER2_SERVICE_ID"); val != "" {
		cfg.ServiceID = val
	}
	if val := os.Getenv("ER2_TIMEOUT"); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			return Config{}, errors.Wrapf(err, "parsing ER2_TIMEOUT '%s'", val)
		}
		if d < 0 {
			return Config{}, errors.Errorf("parsing ER2_TIMEOUT '%s': timeout is negative", val)
		}
		cfg.Timeout = d
	}

	ApplyDefaults(&cfg)
	return cfg, nil
}

// Check is a best-effort validation of the server URL and token.
// It is advisory: sending never calls it. Strict mode additionally requires
// https and a long printable token.
func (c Config) Check(strict bool) error {
	catcher := grip.NewBasicCatcher()

	u, err := url.Parse(c.ServerURL)
	switch {
	case c.ServerURL == "":
		catcher.New("server URL is empty")
	case err != nil:
		catcher.Wrap(err, "parsing server URL")
	default:
		if u.Scheme != "http" && u.Scheme != "https" {
			catcher.Errorf("server URL scheme '%s' is not http or https", u.Scheme)
		}
		catcher.NewWhen(u.Host == "", "server URL has no host")
		catcher.NewWhen(strict && u.Scheme != "https", "server URL must use https")
	}

	catcher.NewWhen(c.APIToken == "", "API token is empty")
	if strict && c.APIToken != "" {
		if len(c.APIToken) < minStrictTokenLength {
			catcher.Errorf("API token is shorter than %d characters", minStrictTokenLength)
		}
		catcher.NewWhen(!isVisibleASCII(c.APIToken), "API token contains non-printable or non-ASCII characters")
	}
	// Only reachable for hand-built values; the loaders reject negatives.
	catcher.NewWhen(c.Timeout < 0, "timeout cannot be negative")

	return catcher.Resolve()
}

func isVisibleASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] <= ' ' || s[i] > '~' {
			return false
		}
	}
	return true
}
