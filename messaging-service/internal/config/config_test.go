package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgconfig "github.com/quy-trach/TaskManagement-sub000/pkg/config"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(pkgconfig.EnvConfigFile, filepath.Join(t.TempDir(), "absent.yaml"))
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("INSTANCE_ID", "node-a")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8090, cfg.Server.Port)
	assert.Equal(t, 8091, cfg.Realtime.Port)
	assert.False(t, cfg.Realtime.EnforceMembership)
	assert.Equal(t, 20, cfg.Messaging.PageSize)
	assert.Equal(t, 3, cfg.Messaging.ResolveAttempts)
	assert.Equal(t, 30*time.Second, cfg.WebSocket.PingInterval)
	assert.Equal(t, 15*time.Minute, cfg.Storage.URLTTL)
	assert.Equal(t, "memory", cfg.PubSub.Driver)
	assert.Equal(t, "messaging-relay-node-a", cfg.PubSub.Kafka.GroupID)
	assert.Equal(t, "ulid", cfg.IDs.Message)
	assert.Equal(t, "uuid", cfg.IDs.Conversation)
	assert.Equal(t, "none", cfg.Storage.Driver)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
jwt:
  secret: file-secret
realtime:
  enforce_membership: true
messaging:
  resolve_attempts: 2
websocket:
  pong_wait: 5s
storage:
  driver: s3
  s3:
    bucket: avatars
`), 0o600))
	t.Setenv(pkgconfig.EnvConfigFile, file)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "file-secret", cfg.JWT.Secret)
	assert.True(t, cfg.Realtime.EnforceMembership)
	assert.Equal(t, 2, cfg.Messaging.ResolveAttempts)
	assert.Equal(t, 5*time.Second, cfg.WebSocket.PongWait)
	assert.Equal(t, "s3", cfg.Storage.Driver)
	assert.Equal(t, "avatars", cfg.Storage.S3.Bucket)
}

func TestValidate(t *testing.T) {
	valid := Config{
		JWT:       JWTConfig{Secret: "s"},
		Messaging: MessagingConfig{PageSize: 20, ResolveAttempts: 3},
		WebSocket: WebSocketConfig{SendBuffer: 16},
	}
	require.NoError(t, valid.Validate())

	noSecret := valid
	noSecret.JWT.Secret = ""
	assert.Error(t, noSecret.Validate())

	tooMany := valid
	tooMany.Messaging.ResolveAttempts = 4
	assert.Error(t, tooMany.Validate())

	none := valid
	none.Messaging.ResolveAttempts = 0
	assert.Error(t, none.Validate())
}
