package er2

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
server_url: https://er2.example.com/report
api_token: abcdef
service_id: billing
timeout: 2s
disable:
  environment: true
  session_variables: true
block:
  cookies: [PHPSESSID]
  get: [token]
  post: [password, password_confirm]
  session: [csrf]
`

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "er2.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("https://c", "tok")

	assert.Equal(t, "https://c", cfg.ServerURL)
	assert.Equal(t, "tok", cfg.APIToken)
	assert.Equal(t, "My SPFW App", cfg.ServiceID)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, Toggles{}, cfg.Disable, "everything is transmitted by default")
	assert.Equal(t, BlockLists{}, cfg.Block)
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeFile(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "https://er2.example.com/report", cfg.ServerURL)
	assert.Equal(t, "abcdef", cfg.APIToken)
	assert.Equal(t, "billing", cfg.ServiceID)
	assert.Equal(t, 2*time.Second, cfg.Timeout)
	assert.Equal(t, Toggles{Environment: true, SessionVariables: true}, cfg.Disable)
	assert.Equal(t, BlockLists{
		Cookies: []string{"PHPSESSID"},
		Get:     []string{"token"},
		Post:    []string{"password", "password_confirm"},
		Session: []string{"csrf"},
	}, cfg.Block)
}

func TestLoadConfig_AppliesDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeFile(t, "server_url: http://c\napi_token: t\n"))
	require.NoError(t, err)
	assert.Equal(t, DefaultServiceID, cfg.ServiceID)
	assert.Equal(t, DefaultTimeout, cfg.Timeout)
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")

	_, err = LoadConfig(writeFile(t, "server_url: [not, a, string"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config file")
}

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	t.Setenv("ER2_SERVER_URL", "https://override.example.com")
	t.Setenv("ER2_API_TOKEN", "env-token")
	t.Setenv("ER2_SERVICE_ID", "env-service")
	t.Setenv("ER2_TIMEOUT", "750ms")

	cfg, err := LoadConfigWithEnvOverrides(writeFile(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "https://override.example.com", cfg.ServerURL)
	assert.Equal(t, "env-token", cfg.APIToken)
	assert.Equal(t, "env-service", cfg.ServiceID)
	assert.Equal(t, 750*time.Millisecond, cfg.Timeout)
	assert.True(t, cfg.Disable.Environment, "file values survive")
}

func TestLoadConfigWithEnvOverrides_NoFile(t *testing.T) {
	t.Setenv("ER2_SERVER_URL", "http://c")
	t.Setenv("ER2_API_TOKEN", "")
	t.Setenv("ER2_SERVICE_ID", "")
	t.Setenv("ER2_TIMEOUT", "")

	cfg, err := LoadConfigWithEnvOverrides("")
	require.NoError(t, err)
	assert.Equal(t, "http://c", cfg.ServerURL)
	assert.Equal(t, DefaultServiceID, cfg.ServiceID)
	assert.Equal(t, DefaultTimeout, cfg.Timeout)
}

func TestLoadConfig_NegativeTimeout(t *testing.T) {
	_, err := LoadConfig(writeFile(t, "server_url: http://c\napi_token: t\ntimeout: -2s\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "negative")

	t.Setenv("ER2_TIMEOUT", "-1s")
	_, err = LoadConfigWithEnvOverrides("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ER2_TIMEOUT")
}

func TestConfig_CheckBeforeDefaults(t *testing.T) {
	raw := Config{ServerURL: "http://c", APIToken: "t", Timeout: -time.Second}
	require.Error(t, raw.Check(false))

	ApplyDefaults(&raw)
	assert.Equal(t, DefaultTimeout, raw.Timeout)
	assert.NoError(t, raw.Check(false))
}

func TestLoadConfigWithEnvOverrides_BadTimeout(t *testing.T) {
	t.Setenv("ER2_TIMEOUT", "soon")

	_, err := LoadConfigWithEnvOverrides("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ER2_TIMEOUT")
}

func TestConfig_Check(t *testing.T) {
	longToken := strings.Repeat("a", 16)

	tests := []struct {
		name    string
		cfg     Config
		strict  bool
		wantErr []string
	}{
		{
			name: "valid http",
			cfg:  DefaultConfig("http://er2.example.com/report", "abc"),
		},
		{
			name:   "valid strict",
			cfg:    DefaultConfig("https://er2.example.com/report", longToken),
			strict: true,
		},
		{
			name:    "empty url and token",
			cfg:     DefaultConfig("", ""),
			wantErr: []string{"server URL is empty", "API token is empty"},
		},
		{
			name:    "unsupported scheme",
			cfg:     DefaultConfig("ftp://er2.example.com", "abc"),
			wantErr: []string{"scheme 'ftp'"},
		},
		{
			name:    "no host",
			cfg:     DefaultConfig("http:///report", "abc"),
			wantErr: []string{"no host"},
		},
		{
			name:    "unparseable",
			cfg:     DefaultConfig("http://[::1", "abc"),
			wantErr: []string{"parsing server URL"},
		},
		{
			name:    "strict requires https",
			cfg:     DefaultConfig("http://er2.example.com", longToken),
			strict:  true,
			wantErr: []string{"must use https"},
		},
		{
			name:    "strict short token",
			cfg:     DefaultConfig("https://er2.example.com", "abc"),
			strict:  true,
			wantErr: []string{"shorter than 16"},
		},
		{
			name:    "strict non printable token",
			cfg:     DefaultConfig("https://er2.example.com", strings.Repeat("a", 15)+" "),
			strict:  true,
			wantErr: []string{"non-printable"},
		},
		{
			name:    "negative timeout",
			cfg:     Config{ServerURL: "http://c", APIToken: "t", Timeout: -time.Second},
			wantErr: []string{"negative"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Check(tt.strict)
			if len(tt.wantErr) == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			for _, want := range tt.wantErr {
				assert.Contains(t, err.Error(), want)
			}
		})
	}
}

func TestConfig_CheckIsAdvisory(t *testing.T) {
	// Sending does not validate: a bad config still yields a boolean result.
	cfg := DefaultConfig("ftp://er2.example.com", "")
	require.Error(t, cfg.Check(false))

	client, _ := newTestClient(t, WithTransport(NewHTTPTransport(cfg, nil)))
	ok, err := client.ReportErrors(context.Background(), nil, nil, RawError{Message: "boom"})
	assert.NoError(t, err)
	assert.False(t, ok)
}
