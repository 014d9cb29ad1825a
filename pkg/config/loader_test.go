package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/subsync/pkg/config"
)

func TestLoad(t *testing.T) {
	t.Run("parses environment into struct", func(t *testing.T) {
		type testConfig struct {
			Secret    string        `env:"TEST_LOAD_SECRET,required"`
			Tolerance time.Duration `env:"TEST_LOAD_TOLERANCE" envDefault:"5m"`
		}

		t.Setenv("TEST_LOAD_SECRET", "whsec_test")

		var cfg testConfig
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, "whsec_test", cfg.Secret)
		assert.Equal(t, 5*time.Minute, cfg.Tolerance)
	})

	t.Run("caches per type", func(t *testing.T) {
		type cachedConfig struct {
			Value string `env:"TEST_CACHED_VALUE" envDefault:"first"`
		}

		var first cachedConfig
		require.NoError(t, config.Load(&first))
		require.Equal(t, "first", first.Value)

		// Changing the environment after the first load has no effect.
		t.Setenv("TEST_CACHED_VALUE", "second")

		var second cachedConfig
		require.NoError(t, config.Load(&second))
		assert.Equal(t, "first", second.Value)
	})

	t.Run("missing required variable fails", func(t *testing.T) {
		type missingConfig struct {
			Required string `env:"TEST_MISSING_REQUIRED,required"`
		}

		var cfg missingConfig
		err := config.Load(&cfg)
		require.Error(t, err)
		assert.ErrorIs(t, err, config.ErrParsingConfig)
	})

	t.Run("nil pointer", func(t *testing.T) {
		err := config.Load[struct{}](nil)
		assert.ErrorIs(t, err, config.ErrNilPointer)
	})
}

func TestMustLoad(t *testing.T) {
	type panicConfig struct {
		Required string `env:"TEST_MUSTLOAD_REQUIRED,required"`
	}

	assert.Panics(t, func() {
		var cfg panicConfig
		config.MustLoad(&cfg)
	})
}
