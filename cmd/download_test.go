package cmd

import (
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flagCommand() *cobra.Command {
	c := &cobra.Command{Use: "download"}
	c.Flags().IntVar(&flagLimit, "limit", 0, "")
	c.Flags().DurationVar(&flagImageDelay, "image-delay", 0, "")
	c.Flags().DurationVar(&flagChapterDelay, "chapter-delay", 0, "")
	c.Flags().IntVar(&flagRetries, "retries", 0, "")
	return c
}

func TestLoadConfig_NumericFlagsOnlyWhenSet(t *testing.T) {
	t.Setenv("APPDATA", "")
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	flagIgnoreConfig = true
	t.Cleanup(func() { flagIgnoreConfig = false })

	cfg, err := loadConfig(flagCommand())
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, cfg.ImageDelay)
	assert.Equal(t, time.Second, cfg.ChapterDelay)

	c := flagCommand()
	require.NoError(t, c.Flags().Set("image-delay", "0"))
	require.NoError(t, c.Flags().Set("limit", "2"))

	cfg, err = loadConfig(c)
	require.NoError(t, err)
	assert.Zero(t, cfg.ImageDelay)
	assert.Equal(t, time.Second, cfg.ChapterDelay)
	assert.Equal(t, 2, cfg.Limit)
}
