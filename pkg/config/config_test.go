package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestNew_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("APP_CONFIG_NAME", "no-such-config")

	cfg, err := New()
	require.NoError(t, err)
	require.Equal(t, EnvDev, cfg.Env)
	require.Equal(t, 8888, cfg.Server.Port)
}

func TestNew_ParsesCreditPacks(t *testing.T) {
	path := writeConfigFile(t, `
credit_packs:
  - price_id: price_1SxZ1nQsBFyT5mbBGOll9aOs
    credits: 10
    label: Starter pack
  - price_id: price_other
    credits: 50
    label: Studio pack
`)
	t.Setenv("APP_CONFIG_FILE", path)

	cfg, err := New()
	require.NoError(t, err)
	require.Len(t, cfg.CreditPacks, 2)

	pack := cfg.GetCreditPackByPriceID("price_1SxZ1nQsBFyT5mbBGOll9aOs")
	require.NotNil(t, pack)
	require.Equal(t, int64(10), pack.Credits)
	require.Nil(t, cfg.GetCreditPackByPriceID("price_unknown"))
}

func TestNew_MalformedFileIsAnError(t *testing.T) {
	path := writeConfigFile(t, "credit_packs: [unclosed")
	t.Setenv("APP_CONFIG_FILE", path)

	_, err := New()
	require.Error(t, err)
}
