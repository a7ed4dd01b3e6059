package logger

import (
	"testing"

	"github.com/oagudo/txscope/internal/config"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestNew_FormatterAndLevel(t *testing.T) {
	cfg := &config.Config{}
	cfg.Log.Level = int(logrus.DebugLevel)

	log := New(cfg)
	require.NotNil(t, log)
	require.Equal(t, logrus.DebugLevel, log.Level)

	tf, ok := log.Formatter.(*logrus.TextFormatter)
	require.True(t, ok, "expected TextFormatter")
	require.True(t, tf.ForceColors)
	require.True(t, tf.FullTimestamp)
	require.Equal(t, "2006-01-02 15:04:05", tf.TimestampFormat)
}

func TestNew_LevelMapping(t *testing.T) {
	for _, lv := range logrus.AllLevels {
		cfg := &config.Config{}
		cfg.Log.Level = int(lv)
		require.Equal(t, lv, New(cfg).Level)
	}
}
