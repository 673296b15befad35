package domain

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// MaxScreenshotBytes is the raw size limit for an attached screenshot
const MaxScreenshotBytes = 800_000

// Screenshot is an accepted image, stored inline with its trade
type Screenshot struct {
	MIMEType string
	Data     []byte
}

// NewScreenshot checks the size bound and that raw is an image.
// The size check runs first so oversized input is rejected without being inspected.
func NewScreenshot(raw []byte) (*Screenshot, error) {
	if len(raw) > MaxScreenshotBytes {
		return nil, fmt.Errorf("%w: screenshot is %d bytes, limit is %d bytes",
			ErrPayloadTooLarge, len(raw), MaxScreenshotBytes)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: screenshot is empty", ErrInvalidTrade)
	}

	mtype := mimetype.Detect(raw)
	if !strings.HasPrefix(mtype.String(), "image/") {
		return nil, fmt.Errorf("%w: screenshot must be an image, got %s", ErrInvalidTrade, mtype.String())
	}

	data := make([]byte, len(raw))
	copy(data, raw)
	return &Screenshot{MIMEType: mtype.String(), Data: data}, nil
}

// DataURL encodes the image as a self-contained text payload
func (s *Screenshot) DataURL() string {
	return "data:" + s.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(s.Data)
}
