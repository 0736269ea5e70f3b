package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// fieldMode selects the scalar drawn for the complex pressure at each texel.
type fieldMode string

const (
	fieldModeMagnitude fieldMode = "magnitude"
	fieldModeReal      fieldMode = "real"
)

// viewerSettings is the per-frame snapshot of everything the renderer reads.
// Mutations happen only between ticks and must be paired with the caller
// raising the matching update flag; the core performs no dirty-diffing of
// settings itself.
type viewerSettings struct {
	WindowWidth  int `toml:"window_width"`
	WindowHeight int `toml:"window_height"`

	Port int `toml:"port"`

	SliceWidth  int32      `toml:"slice_width"`
	SliceHeight int32      `toml:"slice_height"`
	SlicePos    [3]float32 `toml:"slice_pos"`
	SliceRot    [3]float32 `toml:"slice_rot"`

	WaveLength float32 `toml:"wave_length"`
	ColorScale float32 `toml:"color_scale"`
	SliceAlpha float32 `toml:"slice_alpha"`

	SourceAlpha float32 `toml:"source_alpha"`

	FieldMode fieldMode `toml:"field_mode"`

	CameraPos [3]float32 `toml:"camera_pos"`
	CameraRot [3]float32 `toml:"camera_rot"`
	Fov       float32    `toml:"fov"`
	NearClip  float32    `toml:"near_clip"`
	FarClip   float32    `toml:"far_clip"`
}

// defaultSettings places the camera above the array origin looking down the
// device normal, with the slice standing upright through the focal region.
func defaultSettings() viewerSettings {
	centerX := float32(transSpacing * (numTransX - 1) / 2)
	centerY := float32(transSpacing * (numTransY - 1) / 2)
	return viewerSettings{
		WindowWidth:  defaultWindowWidth,
		WindowHeight: defaultWindowHeight,
		Port:         defaultPort,
		SliceWidth:   defaultSliceWidth,
		SliceHeight:  defaultSliceHeight,
		SlicePos:     [3]float32{centerX, centerY, 150},
		SliceRot:     [3]float32{1.5708, 0, 0},
		WaveLength:   defaultWaveLength,
		ColorScale:   defaultColorScale,
		SliceAlpha:   defaultSliceAlpha,
		SourceAlpha:  1.0,
		FieldMode:    fieldModeMagnitude,
		CameraPos:    [3]float32{centerX, -250, 180},
		CameraRot:    [3]float32{1.25, 0, 0},
		Fov:          60,
		NearClip:     0.1,
		FarClip:      1000,
	}
}

// validate rejects settings the core assumes were filtered at the boundary.
func (s *viewerSettings) validate() error {
	if s.WaveLength <= 0 {
		return fmt.Errorf("wave length must be positive, got %v", s.WaveLength)
	}
	if s.FieldMode != fieldModeMagnitude && s.FieldMode != fieldModeReal {
		return fmt.Errorf("unknown field mode %q", s.FieldMode)
	}
	return nil
}

// loadSettings reads the TOML settings file, falling back to defaults when
// the file does not exist yet.
func loadSettings(path string) (viewerSettings, error) {
	s := defaultSettings()
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("reading settings: %w", err)
	}
	if err := toml.Unmarshal(raw, &s); err != nil {
		return s, fmt.Errorf("parsing settings: %w", err)
	}
	if err := s.validate(); err != nil {
		return s, err
	}
	return s, nil
}

// saveSettings writes the settings back to disk on shutdown.
func saveSettings(path string, s viewerSettings) error {
	raw, err := toml.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("writing settings: %w", err)
	}
	return nil
}
