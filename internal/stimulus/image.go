package stimulus

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/jonathan/exam-compiler/internal/llm"
)

const (
	minImageDimension = 64
	maxImageBytes     = 8 << 20
)

// generateImage renders an image stimulus from a description and returns
// it as a data URI. The bytes are decoded before acceptance so a
// truncated or non-image response is rejected.
func generateImage(ctx context.Context, client llm.Client, prompt string) (string, error) {
	data, mimeType, err := client.GenerateImage(ctx, prompt)
	if err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", fmt.Errorf("image response was empty")
	}
	if len(data) > maxImageBytes {
		return "", fmt.Errorf("image is %d bytes, limit is %d", len(data), maxImageBytes)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("image bytes failed to decode: %w", err)
	}
	if cfg.Width < minImageDimension || cfg.Height < minImageDimension {
		return "", fmt.Errorf("image is %dx%d, minimum dimension is %d", cfg.Width, cfg.Height, minImageDimension)
	}

	if mimeType == "" {
		mimeType = "image/png"
	}
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data)), nil
}
