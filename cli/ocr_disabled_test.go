//go:build !tesseract

package cli

import (
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOCRWithoutEngineExplainsBuildTag(t *testing.T) {
	setupEnv(t)

	path := filepath.Join(t.TempDir(), "page.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, image.NewGray(image.Rect(0, 0, 2, 2))))
	require.NoError(t, f.Close())

	_, _, err = execute(t, "", "ocr", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "-tags tesseract")

	_, _, err = execute(t, "", "ocr", "--summarize", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "-tags tesseract")
}

func TestAskReportsOCRWarningBeforeReturning(t *testing.T) {
	_, fake := setupEnv(t)

	path := filepath.Join(t.TempDir(), "receipt.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, image.NewGray(image.Rect(0, 0, 2, 2))))
	require.NoError(t, f.Close())

	out, errOut, err := execute(t, "", "ask", "-q", "-i", path, "What is the total?")
	require.NoError(t, err)

	assert.Equal(t, "echo: What is the total?\n", out)
	assert.Contains(t, errOut, "Warning: image text extraction failed")
	assert.Equal(t, []string{"What is the total?"}, fake.prompts)
}
