package browser

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ysmood/gson"

	"github.com/v0xg/menucrawl/internal/crawler"
)

// bindingArg builds the argument the way rod's Expose hands it to the
// callback: the "req" field of the parsed binding payload.
func bindingArg(req string) gson.JSON {
	return gson.NewFrom(`{"req":` + req + `,"cb":"__menucrawlBatch1"}`).Get("req")
}

func TestDecodeBatch(t *testing.T) {
	req := bindingArg(`[
		{"type": "attributes", "attribute": "class", "added": 0, "removed": 0, "key": "mc-3", "classes": ["cal-day-child", "selected"], "text": "19\nWed"},
		{"type": "childList", "added": 2, "removed": 0, "key": "", "classes": ["menu-item-card"], "text": "Fries\n\n380 Cal"}
	]`)

	batch, err := decodeBatch(req)
	require.NoError(t, err)
	require.Len(t, batch, 2)

	assert.Equal(t, crawler.MutationRecord{
		Type: "attributes", AttributeName: "class", Key: "mc-3",
		Classes: []string{"cal-day-child", "selected"}, Text: "19\nWed",
	}, batch[0])
	assert.Equal(t, 2, batch[1].Added)
	assert.True(t, batch[1].HasClass("menu-item-card"))
}

func TestDecodeBatch_NotAnArray(t *testing.T) {
	_, err := decodeBatch(bindingArg(`"oops"`))
	assert.Error(t, err)

	batch, err := decodeBatch(bindingArg(`[]`))
	require.NoError(t, err)
	assert.Empty(t, batch)
}

func TestCaptureName(t *testing.T) {
	at := time.Date(2025, 11, 18, 9, 30, 1, 0, time.UTC)
	assert.Equal(t, "20251118T093001.000-day-mc_4.png", captureName("day-mc 4", at))
	assert.Equal(t, "20251118T093001.000-station-_.png", captureName("station-/", at))
}

func TestWritePNG_Downscales(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 200, 100))
	for x := 0; x < 200; x++ {
		for y := 0; y < 100; y++ {
			src.Set(x, y, color.RGBA{R: uint8(x), A: 255})
		}
	}
	path := filepath.Join(t.TempDir(), "diag", "shot.png")

	require.NoError(t, writePNG(path, src, 50))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 50, img.Bounds().Dx())
	assert.Equal(t, 25, img.Bounds().Dy())
}

func TestWritePNG_KeepsSmallImages(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 40, 30))
	path := filepath.Join(t.TempDir(), "small.png")

	require.NoError(t, writePNG(path, src, 800))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 40, cfg.Width)
	assert.Equal(t, 30, cfg.Height)
}
