package media

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStoreSaveAndRead(t *testing.T) {
	assert := assert.New(t)
	store, err := NewStore(t.TempDir())
	assert.NoError(err)

	payload := []byte("jpeg-bytes-here")
	relPath, err := store.Save("log-1", "image1", bytes.NewReader(payload))
	assert.NoError(err)
	assert.Equal(filepath.Join("change_detection", "log-1", "image1.jpg"), relPath)

	data, err := store.Read(relPath)
	assert.NoError(err)
	assert.Equal(payload, data)
}

func TestStoreRejectsUnknownField(t *testing.T) {
	store, err := NewStore(t.TempDir())
	assert.NoError(t, err)

	_, err = store.Save("log-1", "image3", bytes.NewReader([]byte("x")))
	assert.ErrorIs(t, err, ErrInvalidField)
}

func TestStoreReadMissing(t *testing.T) {
	store, err := NewStore(t.TempDir())
	assert.NoError(t, err)

	_, err = store.Read(filepath.Join("change_detection", "no-such-log", "image1.jpg"))
	assert.ErrorIs(t, err, ErrImageNotFound)
}

func TestStoreRemove(t *testing.T) {
	assert := assert.New(t)
	store, err := NewStore(t.TempDir())
	assert.NoError(err)

	relPath, err := store.Save("log-1", "image1", bytes.NewReader([]byte("x")))
	assert.NoError(err)
	_, err = store.Save("log-1", "image2", bytes.NewReader([]byte("y")))
	assert.NoError(err)

	assert.NoError(store.Remove("log-1"))

	_, err = store.Read(relPath)
	assert.ErrorIs(err, ErrImageNotFound)

	// Removing a log that never existed is fine
	assert.NoError(store.Remove("ghost"))
}

func TestStoreOverwriteSameField(t *testing.T) {
	assert := assert.New(t)
	store, err := NewStore(t.TempDir())
	assert.NoError(err)

	_, err = store.Save("log-1", "image1", bytes.NewReader([]byte("first")))
	assert.NoError(err)
	relPath, err := store.Save("log-1", "image1", bytes.NewReader([]byte("second")))
	assert.NoError(err)

	data, err := store.Read(relPath)
	assert.NoError(err)
	assert.Equal([]byte("second"), data)
}

func TestNewStoreCreatesRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "nested", "media")
	_, err := NewStore(root)
	assert.NoError(t, err)

	info, err := os.Stat(filepath.Join(root, "change_detection"))
	assert.NoError(t, err)
	assert.True(t, info.IsDir())
}
