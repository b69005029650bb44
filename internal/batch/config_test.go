package batch_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/microtravel/internal/batch"
)

func TestConfigDefaults(t *testing.T) {
	var cfg batch.Config
	require.NoError(t, cfg.Finalize(nil))

	assert.Equal(t, 1, cfg.Workers)
	assert.Equal(t, time.Minute, cfg.ItemTimeoutDuration())
	assert.Equal(t, time.Hour, cfg.RetentionDuration())
	assert.Equal(t, batch.DefaultArchivePrefix, cfg.ArchivePrefix)
	assert.Equal(t, 500, cfg.MaxSelection)
}

func TestConfigEnvOverrides(t *testing.T) {
	t.Setenv("TEST_BATCH_WORKERS", "4")
	t.Setenv("TEST_BATCH_ITEM_TIMEOUT", "15s")
	t.Setenv("TEST_BATCH_ARCHIVE_PREFIX", "trip")

	cfg := batch.Config{}
	err := cfg.Finalize(&batch.Env{
		Workers:       "TEST_BATCH_WORKERS",
		ItemTimeout:   "TEST_BATCH_ITEM_TIMEOUT",
		ArchivePrefix: "TEST_BATCH_ARCHIVE_PREFIX",
	})
	require.NoError(t, err)

	opts := cfg.Options()
	assert.Equal(t, 4, opts.Workers)
	assert.Equal(t, "trip", opts.ArchivePrefix)
	assert.Equal(t, 15*time.Second, cfg.ItemTimeoutDuration())
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  batch.Config
	}{
		{"too many workers", batch.Config{Workers: 64}},
		{"negative workers", batch.Config{Workers: -1}},
		{"bad timeout", batch.Config{ItemTimeout: "soon"}},
		{"zero retention", batch.Config{Retention: "0s"}},
		{"negative selection", batch.Config{MaxSelection: -5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.cfg.Finalize(nil))
		})
	}
}

func TestConfigMerge(t *testing.T) {
	base := batch.Config{Workers: 1, ItemTimeout: "60s", ArchivePrefix: "microtravel-images"}
	base.Merge(&batch.Config{Workers: 2, Retention: "2h"})

	assert.Equal(t, 2, base.Workers)
	assert.Equal(t, "60s", base.ItemTimeout)
	assert.Equal(t, "2h", base.Retention)
	assert.Equal(t, "microtravel-images", base.ArchivePrefix)
}
