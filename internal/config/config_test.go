package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load("bg")
	require.NoError(t, err)

	assert.Equal(t, "bg", cfg.RunMode)
	assert.Equal(t, 30*time.Second, cfg.FeedFetchTimeout)
	assert.Equal(t, 1, cfg.FeedFetchRetries)
	assert.Equal(t, 2*time.Second, cfg.FeedFetchBackoff)
	assert.Equal(t, "@every 1h", cfg.FeedRefreshCron)
	assert.False(t, cfg.EmailQueue)
}

func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	// JWT_SECRET may exist in the developer's shell; unset it for this test only.
	unsetForTest(t, "JWT_SECRET")

	_, err := Load("api")
	assert.ErrorContains(t, err, "JWT_SECRET")
}

func TestLoad_InvalidNumber(t *testing.T) {
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("FEED_FETCH_RETRIES", "two")

	_, err := Load("api")
	assert.ErrorContains(t, err, "invalid FEED_FETCH_RETRIES")
}

func unsetForTest(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	os.Unsetenv(key)
}
