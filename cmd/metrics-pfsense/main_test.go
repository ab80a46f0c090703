package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3cpo-dev/metrics-pfsense/internal/check"
	"github.com/3cpo-dev/metrics-pfsense/internal/config"
	"github.com/3cpo-dev/metrics-pfsense/internal/fauxapi"
)

const statsBody = `{"callid": "abc", "action": "system_stats", "message": "ok",
	"data": {"stats": {"load_average": [0.1, 0.2, 0.3], "cpu": 42, "empty_field": ""}}}`

// isolate keeps the developer's own config and environment out of the test.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	for _, k := range []string{config.EnvHost, config.EnvPort, config.EnvAPIKey, config.EnvAPISecret, config.EnvScheme} {
		t.Setenv(k, "")
	}
}

func hostPort(t *testing.T, srv *httptest.Server) (string, string) {
	t.Helper()
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	return u.Hostname(), u.Port()
}

func execute(args ...string) (string, error) {
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRunEmitsGraphite(t *testing.T) {
	isolate(t)
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get(fauxapi.AuthHeader)
		assert.Equal(t, "FALSE", r.URL.Query().Get("__debug"))
		_, _ = w.Write([]byte(statsBody))
	}))
	defer srv.Close()
	host, port := hostPort(t, srv)

	out, err := execute("-h", host, "-p", port, "-k", "PFFAkey", "-s", "secret", "-S", "host.pfsense")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	want := []string{
		"host.pfsense.load_average.1min 0.1",
		"host.pfsense.load_average.5min 0.2",
		"host.pfsense.load_average.15min 0.3",
		"host.pfsense.cpu 42",
	}
	ts := regexp.MustCompile(`^\d+$`)
	for i, line := range lines {
		idx := strings.LastIndexByte(line, ' ')
		require.Positive(t, idx)
		assert.Equal(t, want[i], line[:idx])
		assert.Regexp(t, ts, line[idx+1:])
	}
	assert.True(t, strings.HasPrefix(auth, "PFFAkey:"), auth)
}

func TestRunDefaultSchemeUsesHostname(t *testing.T) {
	isolate(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(statsBody))
	}))
	defer srv.Close()
	host, port := hostPort(t, srv)

	hostname, err := os.Hostname()
	require.NoError(t, err)

	out, err := execute("--host", host, "--port", port, "--api-key", "k", "--api-secret", "s")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, hostname+".pfsense.load_average.1min 0.1 "), out)
}

func TestRunVerboseAndLegacySecretFlag(t *testing.T) {
	isolate(t)
	var debug string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		debug = r.URL.Query().Get("__debug")
		_, _ = w.Write([]byte(statsBody))
	}))
	defer srv.Close()
	host, port := hostPort(t, srv)

	_, err := execute("--host", host, "--port", port, "--api-key", "k", "--api-secter", "s", "--verbose", "-S", "x")
	require.NoError(t, err)
	assert.Equal(t, "TRUE", debug)
}

func TestRunPrometheusFormat(t *testing.T) {
	isolate(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(statsBody))
	}))
	defer srv.Close()
	host, port := hostPort(t, srv)

	out, err := execute("--host", host, "--port", port, "-k", "k", "-s", "s", "-S", "fw.pfsense", "--format", "prometheus")
	require.NoError(t, err)
	assert.Contains(t, out, "fw_pfsense_cpu 42\n")
	assert.Contains(t, out, "fw_pfsense_load_average_15min 0.3\n")
}

func TestRunCriticalOnHTTPError(t *testing.T) {
	isolate(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message": "authentication failed"}`))
	}))
	defer srv.Close()
	host, port := hostPort(t, srv)

	out, err := execute("--host", host, "--port", port, "-k", "k", "-s", "s")
	require.Error(t, err)
	assert.Equal(t, check.Critical, check.StatusOf(err))
	assert.Empty(t, out)
	assert.Contains(t, err.Error(), "authentication failed")
}

func TestRunCriticalOnMalformedBody(t *testing.T) {
	isolate(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>not json</html>"))
	}))
	defer srv.Close()
	host, port := hostPort(t, srv)

	out, err := execute("--host", host, "--port", port, "-k", "k", "-s", "s")
	require.Error(t, err)
	assert.Equal(t, 2, check.ExitCode(err))
	assert.Empty(t, out)
}

func TestRunCriticalOnTLSVerification(t *testing.T) {
	isolate(t)
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(statsBody))
	}))
	defer srv.Close()
	host, port := hostPort(t, srv)

	_, err := execute("--host", host, "--port", port, "-k", "k", "-s", "s", "--https")
	require.Error(t, err)
	assert.Equal(t, check.Critical, check.StatusOf(err))

	out, err := execute("--host", host, "--port", port, "-k", "k", "-s", "s", "--https", "--insecure", "-S", "fw")
	require.NoError(t, err)
	assert.Contains(t, out, "fw.cpu 42 ")
}

func TestRunUnknownOnMissingConfig(t *testing.T) {
	isolate(t)
	out, err := execute("--host", "fw.local")
	require.Error(t, err)
	assert.Equal(t, check.Unknown, check.StatusOf(err))
	assert.Contains(t, err.Error(), "api_key is required")
	assert.Empty(t, out)
}

func TestRunUnknownOnBadFormat(t *testing.T) {
	isolate(t)
	_, err := execute("--host", "fw.local", "-k", "k", "-s", "s", "--format", "influx")
	require.Error(t, err)
	assert.Equal(t, check.Unknown, check.StatusOf(err))
}

func TestRunUnknownOnBadFlag(t *testing.T) {
	isolate(t)
	_, err := execute("--port", "eighty")
	require.Error(t, err)
	assert.Equal(t, 3, check.ExitCode(err))
}

func TestRunConfigFileAndFlagPrecedence(t *testing.T) {
	isolate(t)
	var key string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key = strings.SplitN(r.Header.Get(fauxapi.AuthHeader), ":", 2)[0]
		_, _ = w.Write([]byte(statsBody))
	}))
	defer srv.Close()
	host, port := hostPort(t, srv)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("host: "+host+"\nport: "+port+"\napi_key: file-key\napi_secret: file-secret\nscheme: from.file\n"), 0600))

	out, err := execute("--config", path)
	require.NoError(t, err)
	assert.Equal(t, "file-key", key)
	assert.Contains(t, out, "from.file.cpu 42 ")

	t.Setenv(config.EnvAPIKey, "env-key")
	_, err = execute("--config", path)
	require.NoError(t, err)
	assert.Equal(t, "env-key", key)

	out, err = execute("--config", path, "-k", "flag-key", "-S", "from.flag")
	require.NoError(t, err)
	assert.Equal(t, "flag-key", key)
	assert.Contains(t, out, "from.flag.cpu 42 ")
}

func TestVersion(t *testing.T) {
	out, err := execute("version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, appName+" "+version), out)
}

func TestReport(t *testing.T) {
	var out bytes.Buffer
	code := report(&out, check.Criticalf(assert.AnError, "query system_stats"))
	assert.Equal(t, 2, code)
	assert.Equal(t, "metrics-pfsense CRITICAL: query system_stats: "+assert.AnError.Error()+"\n", out.String())
}
