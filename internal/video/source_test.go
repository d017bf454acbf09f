package video

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetadataDuration(t *testing.T) {
	meta := Metadata{FPS: 30, TotalFrames: 900}
	assert.InDelta(t, 30.0, meta.Duration(), 1e-9)

	// Без валидного fps длительность не определена
	meta = Metadata{FPS: 0, TotalFrames: 900}
	assert.Equal(t, 0.0, meta.Duration())
}

func TestMetadataResolution(t *testing.T) {
	meta := Metadata{Width: 1920, Height: 1080}
	assert.Equal(t, "1920x1080", meta.Resolution())
}

func TestValidate(t *testing.T) {
	ok := Metadata{FPS: 30, TotalFrames: 900, Width: 640, Height: 480}
	assert.NoError(t, Validate(ok))

	// Ровно на границе лимита длительности
	edge := Metadata{FPS: 30, TotalFrames: 30 * 600}
	assert.NoError(t, Validate(edge))
}

func TestValidateRejectsBadVideo(t *testing.T) {
	cases := []struct {
		name string
		meta Metadata
	}{
		{"zero frames", Metadata{FPS: 30, TotalFrames: 0}},
		{"negative frames", Metadata{FPS: 30, TotalFrames: -1}},
		{"zero fps", Metadata{FPS: 0, TotalFrames: 100}},
		{"negative fps", Metadata{FPS: -25, TotalFrames: 100}},
		{"too long", Metadata{FPS: 30, TotalFrames: 30*600 + 1}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.meta)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}
