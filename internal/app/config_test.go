package app

import (
	"bytes"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromEnvironment(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("API_BASE_URL", "http://localhost:8089")
	t.Setenv("API_TIMEOUT", "7s")
	t.Setenv("STORAGE_DRIVER", "memory")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "http://localhost:8089", cfg.APIBaseURL)
	require.Equal(t, 7*time.Second, cfg.APITimeout)
	require.Equal(t, "@sst_auth_user", cfg.StorageKey)
	require.Equal(t, 120, cfg.MockAPIRateLimit)
}

func TestValidate(t *testing.T) {
	base := Config{APIBaseURL: "https://software.sstasesores.pe/api", StorageDriver: "file", StorageKey: "k"}
	require.NoError(t, base.Validate())

	relative := base
	relative.APIBaseURL = "/api"
	require.Error(t, relative.Validate())

	plainProd := base
	plainProd.AppEnv = "production"
	plainProd.APIBaseURL = "http://software.sstasesores.pe/api"
	require.ErrorContains(t, plainProd.Validate(), "https")

	badDriver := base
	badDriver.StorageDriver = "sqlite"
	require.ErrorContains(t, badDriver.Validate(), "sqlite")

	noKey := base
	noKey.StorageKey = ""
	require.Error(t, noKey.Validate())
}

func TestNewLoggerFormats(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(&Config{LogFormat: "json", LogLevel: "debug"}, &buf).Debug("hola")
	require.True(t, strings.HasPrefix(buf.String(), "{"))

	buf.Reset()
	NewLogger(&Config{LogLevel: "warn"}, &buf).Info("oculto")
	require.Empty(t, buf.String())
}
