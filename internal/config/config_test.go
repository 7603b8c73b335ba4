package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFrom(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, 3, cfg.Mesh.MaxChildren)
	require.Equal(t, 500*time.Millisecond, cfg.Chat.RefillInterval)
	require.Equal(t, 500, cfg.Chat.MaxLength)
	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.Equal(t, 30*time.Second, cfg.WebSocket.PingInterval)
	require.Empty(t, cfg.Redis.Address)
	require.Empty(t, cfg.Kafka.Brokers)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	yaml := `
server:
  port: 9000
mesh:
  max_children: 5
chat:
  refill_interval: 250ms
  censored_words: ["darn", "heck"]
accounts:
  seed:
    - username: alice
      channel_id: alice
      balance: 1000
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))

	cfg, err := LoadFrom(dir)
	require.NoError(t, err)

	require.Equal(t, 9000, cfg.Server.Port)
	require.Equal(t, 5, cfg.Mesh.MaxChildren)
	require.Equal(t, 250*time.Millisecond, cfg.Chat.RefillInterval)
	require.Equal(t, []string{"darn", "heck"}, cfg.Chat.CensoredWords)
	require.Len(t, cfg.Accounts.Seed, 1)
	require.Equal(t, "alice", cfg.Accounts.Seed[0].Username)
	require.Equal(t, int64(1000), cfg.Accounts.Seed[0].Balance)
}

func TestLoadBadDurationFallsBack(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("chat:\n  refill_interval: soon\n"), 0o600))

	cfg, err := LoadFrom(dir)
	require.NoError(t, err)
	require.Equal(t, 500*time.Millisecond, cfg.Chat.RefillInterval)
}
