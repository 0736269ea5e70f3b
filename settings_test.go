package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSettingsValid(t *testing.T) {
	s := defaultSettings()
	require.NoError(t, s.validate())
	assert.Equal(t, fieldModeMagnitude, s.FieldMode)
	assert.Greater(t, s.WaveLength, float32(0))
}

func TestSettingsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	s := defaultSettings()
	s.SliceWidth = 123
	s.ColorScale = 0.33
	s.FieldMode = fieldModeReal
	s.CameraPos = [3]float32{1, 2, 3}
	require.NoError(t, saveSettings(path, s))

	loaded, err := loadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, s, loaded)
}

func TestSettingsMissingFileUsesDefaults(t *testing.T) {
	loaded, err := loadSettings(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, defaultSettings(), loaded)
}

func TestSettingsRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		toml string
	}{
		{"non-positive wavelength", "wave_length = -1.0\n"},
		{"unknown field mode", "field_mode = \"imaginary\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "settings.toml")
			require.NoError(t, os.WriteFile(path, []byte(tt.toml), 0o644))
			_, err := loadSettings(path)
			assert.Error(t, err)
		})
	}
}
