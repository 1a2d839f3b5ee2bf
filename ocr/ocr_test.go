package ocr

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tagged images carry their identity in the first pixel's red channel.
func tagged(n uint8) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: n, A: 255})
	return img
}

func tagOf(img image.Image) uint8 {
	r, _, _, _ := img.At(0, 0).RGBA()
	return uint8(r >> 8)
}

var fakeEngine = RecognizerFunc(func(_ context.Context, img image.Image) (string, error) {
	n := tagOf(img)
	if n == 99 {
		return "", errors.New("blurry")
	}
	return fmt.Sprintf("text %d", n), nil
})

func TestExtractTextsPageFormat(t *testing.T) {
	e := NewExtractor(fakeEngine, PolicyAbort)
	out, err := e.ExtractTexts(context.Background(), []image.Image{tagged(1), tagged(2), tagged(3)})
	require.NoError(t, err)
	assert.Equal(t, "--- Page 1 ---\ntext 1\n\n--- Page 2 ---\ntext 2\n\n--- Page 3 ---\ntext 3", out)
}

func TestExtractTextsMatchesSingleResults(t *testing.T) {
	e := NewExtractor(fakeEngine, PolicyAbort)
	imgs := []image.Image{tagged(7), tagged(4)}

	var singles []string
	for _, img := range imgs {
		s, err := e.ExtractText(context.Background(), img)
		require.NoError(t, err)
		singles = append(singles, s)
	}
	batch, err := e.ExtractTexts(context.Background(), imgs)
	require.NoError(t, err)
	assert.Equal(t, FormatPages(singles), batch)
}

func TestExtractTextsEmpty(t *testing.T) {
	e := NewExtractor(fakeEngine, PolicyAbort)
	out, err := e.ExtractTexts(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "", out)
}

func TestExtractTextsEmptyPageBody(t *testing.T) {
	e := NewExtractor(RecognizerFunc(func(context.Context, image.Image) (string, error) { return "", nil }), PolicyAbort)
	out, err := e.ExtractTexts(context.Background(), []image.Image{tagged(1)})
	require.NoError(t, err)
	assert.Equal(t, "--- Page 1 ---\n", out)
}

func TestExtractTextsAbortPolicy(t *testing.T) {
	e := NewExtractor(fakeEngine, PolicyAbort)
	_, err := e.ExtractTexts(context.Background(), []image.Image{tagged(1), tagged(99), tagged(3)})
	require.Error(t, err)

	var pe *PageError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 2, pe.Page)
	assert.Contains(t, err.Error(), "blurry")
}

func TestExtractTextsMarkerPolicy(t *testing.T) {
	e := NewExtractor(fakeEngine, PolicyMarker)
	out, err := e.ExtractTexts(context.Background(), []image.Image{tagged(1), tagged(99)})
	require.NoError(t, err)
	assert.Equal(t, "--- Page 1 ---\ntext 1\n\n--- Page 2 ---\n[OCR failed: blurry]", out)
}

func TestExtractTextsCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e := NewExtractor(fakeEngine, PolicyMarker)
	_, err := e.ExtractTexts(ctx, []image.Image{tagged(1)})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseBatchPolicy(t *testing.T) {
	assert.Equal(t, PolicyMarker, ParseBatchPolicy(" Marker "))
	assert.Equal(t, PolicyAbort, ParseBatchPolicy("abort"))
	assert.Equal(t, PolicyAbort, ParseBatchPolicy(""))
	assert.Equal(t, PolicyAbort, ParseBatchPolicy("whatever"))
}

func TestLoadImageRoundTrip(t *testing.T) {
	data, err := EncodePNG(tagged(42))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "page.png")
	require.NoError(t, os.WriteFile(path, data, 0600))

	img, err := LoadImage(path)
	require.NoError(t, err)
	assert.Equal(t, uint8(42), tagOf(img))

	_, err = LoadImages([]string{path, filepath.Join(t.TempDir(), "missing.png")})
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.png")
	require.NoError(t, os.WriteFile(bad, []byte("not an image"), 0600))
	_, err = LoadImage(bad)
	assert.Error(t, err)
}
