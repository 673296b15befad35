package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakePNG(size int) []byte {
	header := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	data := make([]byte, size)
	copy(data, header)
	return data
}

func TestNewScreenshot(t *testing.T) {
	shot, err := NewScreenshot(fakePNG(1024))

	require.NoError(t, err)
	assert.Equal(t, "image/png", shot.MIMEType)
	assert.True(t, strings.HasPrefix(shot.DataURL(), "data:image/png;base64,"))
}

func TestNewScreenshot_AtLimit(t *testing.T) {
	_, err := NewScreenshot(fakePNG(MaxScreenshotBytes))
	assert.NoError(t, err)
}

func TestNewScreenshot_TooLarge(t *testing.T) {
	_, err := NewScreenshot(fakePNG(900_000))

	assert.ErrorIs(t, err, ErrPayloadTooLarge)
	assert.Contains(t, err.Error(), "900000 bytes")
}

func TestNewScreenshot_NotAnImage(t *testing.T) {
	_, err := NewScreenshot([]byte("just some text, definitely not a picture"))
	assert.ErrorIs(t, err, ErrInvalidTrade)
}

func TestNewScreenshot_Empty(t *testing.T) {
	_, err := NewScreenshot(nil)
	assert.ErrorIs(t, err, ErrInvalidTrade)
}
