package utils

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInitLoggerWritesJSONFile(t *testing.T) {
	dir := t.TempDir()

	logger, err := InitLogger(AppConfig{Name: "booking-test", LogPath: dir})
	require.NoError(t, err)

	logger.Info("Booking created", zap.String("order_id", "BOOK-20240601-120000-0001"))
	logger.Debug("dropped at info level")
	_ = logger.Sync()

	raw, err := os.ReadFile(filepath.Join(dir, "booking-test.log"))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "Booking created", entry["msg"])
	assert.Equal(t, "booking-test", entry["app"])
	assert.Equal(t, "BOOK-20240601-120000-0001", entry["order_id"])
	assert.Contains(t, entry, "timestamp")
}
