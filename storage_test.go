package tryon

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuggestedFilename(t *testing.T) {
	assert.Equal(t, "tryon-front.png", SuggestedFilename(ViewFront, "image/png"))
	assert.Equal(t, "tryon-side.jpg", SuggestedFilename(ViewSide, "image/jpeg"))
	assert.Equal(t, "tryon-model.webp", SuggestedFilename("", "image/webp"))
}

func TestGetMIMEType(t *testing.T) {
	assert.Equal(t, "image/jpeg", GetMIMEType("shirt.JPG"))
	assert.Equal(t, "image/webp", GetMIMEType("/tmp/a.webp"))
	assert.Equal(t, "image/png", GetMIMEType("noext"))
}

func TestDirStorage_StaysUnderRoot(t *testing.T) {
	dir := t.TempDir()
	storage, err := NewDirStorage(dir)
	require.NoError(t, err)

	url, err := storage.SaveFile(context.Background(), []byte("x"), "../../escape.png", "image/png")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "escape.png"), url)
	_, err = os.Stat(url)
	assert.NoError(t, err)
}

func TestSaveToStorage(t *testing.T) {
	dir := t.TempDir()
	storage, err := NewDirStorage(dir)
	require.NoError(t, err)

	res := &GenerationResult{Image: &GeneratedImage{Data: []byte("jpeg"), MIMEType: "image/jpeg"}, Angle: ViewSide}
	saved, err := SaveToStorage(context.Background(), storage, res, "session/tryon-side.png")
	require.NoError(t, err)

	assert.Equal(t, "session/tryon-side.jpg", saved.Path)
	assert.Equal(t, 4, saved.Size)

	_, err = SaveToStorage(context.Background(), storage, &GenerationResult{}, "empty")
	assert.ErrorIs(t, err, ErrNoImage)

	_, err = SaveToStorage(context.Background(), nil, res, "x")
	assert.ErrorIs(t, err, ErrStorageNotConfigured)
}
