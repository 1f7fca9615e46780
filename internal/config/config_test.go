package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/fieldwise/internal/common"
)

func newViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	return v
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(newViper())
	require.NoError(t, err)

	assert.Equal(t, "https://api.getjobber.com/api/graphql", cfg.Jobber.GraphQLURL)
	assert.Equal(t, "2025-01-20", cfg.Jobber.APIVersion)
	assert.Equal(t, ":3000", cfg.Server.Addr)
	assert.Equal(t, 60*time.Second, cfg.Server.ProcessingTimeout)
	assert.Equal(t, 50, cfg.EventLog.Capacity)
	assert.Equal(t, 24*time.Hour, cfg.Attom.CacheTTL)
	assert.True(t, cfg.Webhook.VerifySignatures)
	assert.True(t, strings.HasSuffix(cfg.Database.Path, filepath.Join(".local", "share", "fieldwise", "fieldwise.db")))
	assert.False(t, strings.HasPrefix(cfg.Database.Path, "~"))
}

func TestLoad_FromYAML(t *testing.T) {
	v := newViper()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(`
jobber:
  client_id: client-1
  client_secret: secret-1
attom:
  api_key: key-1
  requests_per_minute: 10
  cache_ttl: 1h
server:
  addr: ":8080"
  processing_timeout: 15s
eventlog:
  capacity: 5
webhook:
  verify_signatures: false
`)))

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "client-1", cfg.Jobber.ClientID)
	assert.Equal(t, "key-1", cfg.Attom.APIKey)
	assert.Equal(t, 10, cfg.Attom.RequestsPerMinute)
	assert.Equal(t, time.Hour, cfg.Attom.CacheTTL)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 15*time.Second, cfg.Server.ProcessingTimeout)
	assert.Equal(t, 5, cfg.EventLog.Capacity)
	assert.False(t, cfg.Webhook.VerifySignatures)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value any
		want  error
	}{
		{"zero capacity", "eventlog.capacity", 0, common.ErrInvalidConfig},
		{"negative rate", "attom.requests_per_minute", -1, common.ErrInvalidConfig},
		{"zero timeout", "server.processing_timeout", "0s", common.ErrInvalidConfig},
		{"bad log level", "logging.level", "loud", common.ErrInvalidConfig},
		{"empty database path", "database.path", "", common.ErrMissingConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newViper()
			v.Set(tt.key, tt.value)
			_, err := Load(v)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestValidateServer(t *testing.T) {
	v := newViper()
	cfg, err := Load(v)
	require.NoError(t, err)
	assert.ErrorIs(t, cfg.ValidateServer(), common.ErrMissingConfig)

	v.Set("jobber.client_id", "id")
	v.Set("jobber.client_secret", "secret")
	v.Set("attom.api_key", "key")
	v.Set("server.session_secret", "short")
	cfg, err = Load(v)
	require.NoError(t, err)
	assert.ErrorIs(t, cfg.ValidateServer(), common.ErrInvalidConfig)

	v.Set("server.session_secret", strings.Repeat("s", 32))
	cfg, err = Load(v)
	require.NoError(t, err)
	assert.NoError(t, cfg.ValidateServer())
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	t.Setenv("FIELDWISE_TEST_DIR", "/srv/data")

	assert.Equal(t, "", ExpandPath(""))
	assert.Equal(t, home, ExpandPath("~"))
	assert.Equal(t, filepath.Join(home, "db", "x.db"), ExpandPath("~/db/x.db"))
	assert.Equal(t, "/srv/data/x.db", ExpandPath("$FIELDWISE_TEST_DIR/x.db"))
	assert.Equal(t, "/abs/x.db", ExpandPath("/abs/x.db"))
}
