package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskUploadOverwrite(t *testing.T) {
	root := t.TempDir()
	d, err := NewDisk(root, "http://localhost:8080/", 0)
	require.NoError(t, err)
	ctx := context.Background()

	key, err := d.Upload(ctx, "user-1/profile.jpg", strings.NewReader("first"), true)
	require.NoError(t, err)
	assert.Equal(t, "user-1/profile.jpg", key)

	_, err = d.Upload(ctx, "user-1/profile.jpg", strings.NewReader("second"), false)
	assert.ErrorIs(t, err, ErrExists)

	_, err = d.Upload(ctx, "user-1/profile.jpg", strings.NewReader("second"), true)
	require.NoError(t, err)

	got, err := os.ReadFile(filepath.Join(root, "user-1", "profile.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "second", string(got))

	assert.Equal(t, "http://localhost:8080/uploads/user-1/profile.jpg", d.PublicURL(key))
}

func TestDiskRejectsTraversal(t *testing.T) {
	d, err := NewDisk(t.TempDir(), "http://x", 0)
	require.NoError(t, err)

	for _, p := range []string{"", "/etc/passwd", "../secret", "a/../../b", "a//b", `a\b`, "."} {
		_, err := d.Upload(context.Background(), p, strings.NewReader("x"), true)
		assert.ErrorIs(t, err, ErrInvalidPath, p)
	}
}

func TestDiskSizeLimit(t *testing.T) {
	root := t.TempDir()
	d, err := NewDisk(root, "http://x", 4)
	require.NoError(t, err)

	_, err = d.Upload(context.Background(), "u/profile.png", strings.NewReader("12345"), true)
	assert.ErrorIs(t, err, ErrTooLarge)
	_, statErr := os.Stat(filepath.Join(root, "u", "profile.png"))
	assert.True(t, os.IsNotExist(statErr))

	_, err = d.Upload(context.Background(), "u/profile.png", strings.NewReader("1234"), true)
	assert.NoError(t, err)
}
