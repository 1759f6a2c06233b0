package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabfab/asset-query/config"
)

func TestLoad(t *testing.T) {
	t.Run("Should apply defaults", func(t *testing.T) {
		cfg, err := config.Load()
		require.NoError(t, err)

		assert.Equal(t, config.ProviderOllama, cfg.Provider)
		assert.Equal(t, config.BudgetChars, cfg.ContextBudget)
		assert.Equal(t, 5, cfg.MaxAssets)
		assert.Equal(t, 3, cfg.MaxSections)
		assert.Equal(t, 4000, cfg.MaxContextSize)
		assert.Equal(t, 60*time.Second, cfg.RequestTimeout)
		assert.Equal(t, 2, cfg.MaxRetries)
		assert.NotEmpty(t, cfg.Persona)
	})

	t.Run("Should let environment variables override defaults", func(t *testing.T) {
		t.Setenv("PROVIDER", "openai")
		t.Setenv("OPENAI_API_KEY", "sk-test")
		t.Setenv("MAX_ASSETS", "9")
		t.Setenv("MAX_CONTEXT_SIZE", "1234")
		t.Setenv("REQUEST_TIMEOUT", "90s")
		t.Setenv("ASSET_INDEX_PATH", "/tmp/assets.json")

		cfg, err := config.Load()
		require.NoError(t, err)

		assert.Equal(t, config.ProviderOpenAI, cfg.Provider)
		assert.Equal(t, "sk-test", cfg.OpenAIAPIKey)
		assert.Equal(t, 9, cfg.MaxAssets)
		assert.Equal(t, 1234, cfg.MaxContextSize)
		assert.Equal(t, 90*time.Second, cfg.RequestTimeout)
		assert.Equal(t, "/tmp/assets.json", cfg.AssetIndexPath)
	})

	t.Run("Should reject an unknown provider from the environment", func(t *testing.T) {
		t.Setenv("PROVIDER", "smoke-signals")

		_, err := config.Load()
		require.ErrorIs(t, err, config.ErrInvalidConfig)
	})
}

func TestValidate(t *testing.T) {
	valid := func() config.Config {
		return config.Config{
			Provider:       config.ProviderOllama,
			ContextBudget:  config.BudgetChars,
			MaxAssets:      5,
			MaxSections:    3,
			MaxContextSize: 4000,
			RequestTimeout: time.Minute,
			MaxRetries:     2,
			HistoryLimit:   6,
		}
	}

	t.Run("Should accept a valid configuration", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	t.Run("Should reject a bad context budget unit", func(t *testing.T) {
		cfg := valid()
		cfg.ContextBudget = "words"
		assert.ErrorIs(t, cfg.Validate(), config.ErrInvalidConfig)
	})

	t.Run("Should reject non-positive sizes and timeouts", func(t *testing.T) {
		cfg := valid()
		cfg.MaxContextSize = 0
		assert.ErrorIs(t, cfg.Validate(), config.ErrInvalidConfig)

		cfg = valid()
		cfg.RequestTimeout = 0
		assert.ErrorIs(t, cfg.Validate(), config.ErrInvalidConfig)

		cfg = valid()
		cfg.MaxAssets = -1
		assert.ErrorIs(t, cfg.Validate(), config.ErrInvalidConfig)

		cfg = valid()
		cfg.MaxRetries = -1
		assert.ErrorIs(t, cfg.Validate(), config.ErrInvalidConfig)

		cfg = valid()
		cfg.HistoryLimit = -1
		assert.ErrorIs(t, cfg.Validate(), config.ErrInvalidConfig)
	})
}
