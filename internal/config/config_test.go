package config

import (
	"flag"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func TestParse_Defaults(t *testing.T) {
	opts, err := parse(newFlagSet(), []string{"-c", filepath.Join(t.TempDir(), "missing.json")}, map[string]string{})
	require.NoError(t, err)

	def := Default()
	assert.Equal(t, def.APIURL, opts.APIURL)
	assert.Equal(t, def.AuthURL, opts.AuthURL)
	assert.Equal(t, "token.json", opts.TokenFile)
	assert.Equal(t, 10*time.Second, opts.Timeout())
}

func TestParse_FileThenEnvThenFlags(t *testing.T) {
	path := writeConfig(t, `{
		"api_url": "http://file-api",
		"auth_url": "http://file-auth",
		"token_file": "/tmp/file-token.json",
		"log_level": "debug",
		"request_timeout": "3s"
	}`)

	environ := map[string]string{
		"MESTO_AUTH_URL":        "http://env-auth",
		"MESTO_REQUEST_TIMEOUT": "4s",
	}
	opts, err := parse(newFlagSet(), []string{"-config", path, "-log-level", "warn"}, environ)
	require.NoError(t, err)

	assert.Equal(t, "http://file-api", opts.APIURL)
	assert.Equal(t, "http://env-auth", opts.AuthURL)
	assert.Equal(t, "/tmp/file-token.json", opts.TokenFile)
	assert.Equal(t, "warn", opts.LogLevel)
	assert.Equal(t, 4*time.Second, opts.Timeout())
}

func TestParse_ConfigPathFromEnv(t *testing.T) {
	path := writeConfig(t, `{"token_dsn": "postgres://localhost/mesto"}`)

	opts, err := parse(newFlagSet(), nil, map[string]string{"CONFIG": path})
	require.NoError(t, err)
	assert.Equal(t, path, opts.Config)
	assert.Equal(t, "postgres://localhost/mesto", opts.TokenDSN)
}

func TestParse_Errors(t *testing.T) {
	cases := []struct {
		name       string
		body       string
		environ    map[string]string
		wantSubstr string
	}{
		{"bad json", `{not json`, map[string]string{}, "error while parsing config file"},
		{"bad duration in file", `{"request_timeout": "soon"}`, map[string]string{}, "error while parsing config file"},
		{"bad duration in env", `{}`, map[string]string{"MESTO_REQUEST_TIMEOUT": "soon"}, "parse env"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfig(t, tc.body)
			_, err := parse(newFlagSet(), []string{"-c", path}, tc.environ)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantSubstr)
		})
	}
}
