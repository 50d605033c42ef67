package browser

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-rod/rod/lib/proto"
	"github.com/nfnt/resize"
)

// Capture implements crawler.Diagnostics. It writes a downscaled screenshot
// of the viewport to the diagnostics directory.
func (b *Browser) Capture(ctx context.Context, name string) error {
	if b.opts.DiagnosticsDir == "" {
		return nil
	}

	data, err := b.page.Context(ctx).Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return fmt.Errorf("screenshot: %w", err)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("decode screenshot: %w", err)
	}

	path := filepath.Join(b.opts.DiagnosticsDir, captureName(name, time.Now()))
	if err := writePNG(path, img, b.opts.DiagnosticsWidth); err != nil {
		return err
	}
	b.logger.Info("diagnostics captured", "path", path)
	return nil
}

// writePNG scales img down to at most width pixels wide, keeping the aspect
// ratio, and encodes it to path.
func writePNG(path string, img image.Image, width uint) error {
	if width > 0 && uint(img.Bounds().Dx()) > width {
		img = resize.Resize(width, 0, img, resize.Lanczos3)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create diagnostics dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}

func captureName(name string, at time.Time) string {
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
	return fmt.Sprintf("%s-%s.png", at.UTC().Format("20060102T150405.000"), clean)
}
