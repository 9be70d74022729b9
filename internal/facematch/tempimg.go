package facematch

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"
)

// DecodeDataURL converts a base64 data URL (or bare base64) into raw image
// bytes. Webcam captures arrive as "data:image/jpeg;base64,....".
func DecodeDataURL(dataURL string) ([]byte, error) {
	payload := dataURL
	if idx := strings.IndexByte(dataURL, ','); idx >= 0 {
		payload = dataURL[idx+1:]
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decode image data: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty image data")
	}
	return data, nil
}

// writeTemp stores image bytes in a scoped temp file. The cleanup func must
// run on every exit path; high-frequency webcam polling would otherwise
// grow the temp dir without bound.
func writeTemp(data []byte) (string, func(), error) {
	f, err := os.CreateTemp("", "facematch-*.jpg")
	if err != nil {
		return "", nil, fmt.Errorf("create temp image: %w", err)
	}
	name := f.Name()
	cleanup := func() { os.Remove(name) }

	if _, err := f.Write(data); err != nil {
		f.Close()
		cleanup()
		return "", nil, fmt.Errorf("write temp image: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, err
	}
	return name, cleanup, nil
}
