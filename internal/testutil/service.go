package testutil

import (
	"testing"
	"time"

	"rgit-go/internal/database"
	"rgit-go/internal/encryption"
	"rgit-go/internal/metrics"
	"rgit-go/internal/rgit"
	"rgit-go/internal/vault"
)

// Env bundles a Service with the test doubles behind it.
type Env struct {
	Service   *rgit.Service
	DB        *database.SQLDatabase
	Vault     *vault.MemoryVault
	Encryptor *encryption.TestEncryptor
	Metrics   *metrics.Metrics
	Clock     *StubClock
	IDs       *StubIDGenerator
}

// EnvOption customizes NewEnv.
type EnvOption func(*envConfig)

type envConfig struct {
	encrypt bool
}

// WithEncryption stores snapshots through a TestEncryptor.
func WithEncryption() EnvOption {
	return func(c *envConfig) { c.encrypt = true }
}

// NewEnv creates a Service over an in-memory database and vault, a ticking
// clock and sequential ids.
func NewEnv(t *testing.T, opts ...EnvOption) *Env {
	t.Helper()

	var cfg envConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	env := &Env{
		DB:      NewTestDatabase(t),
		Vault:   NewTestVault(),
		Metrics: metrics.New(),
		Clock:   TickingClock(time.Second),
		IDs:     NewStubIDGenerator(),
	}

	var enc rgit.Encryptor
	if cfg.encrypt {
		env.Encryptor = NewTestEncryptor()
		enc = env.Encryptor
	}
	env.Service = rgit.NewService(env.DB, env.Vault, enc, env.Metrics, rgit.NewNopLogger(), env.Clock, env.IDs)
	return env
}
