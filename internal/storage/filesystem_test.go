package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contentstudio/internal/domain"
)

func TestSanitizeKey(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "generated/a/b.png", want: "generated/a/b.png"},
		{in: "/leading/slash.png", want: "leading/slash.png"},
		{in: "./dot/x.wav", want: "dot/x.wav"},
		{in: `win\style\path.png`, want: "win/style/path.png"},
		{in: "a/../b.png", want: "b.png"},
		{in: "../escape.png", wantErr: true},
		{in: "..", wantErr: true},
		{in: "  ", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := sanitizeKey(tc.in)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestFileStoreWriteRead(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)
	ctx := context.Background()

	key, err := store.Write(ctx, "/generated/x/asset.txt", []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, "generated/x/asset.txt", key)

	onDisk, err := os.ReadFile(filepath.Join(dir, "generated", "x", "asset.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(onDisk))

	data, err := store.Read(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	_, err = store.Read(ctx, "generated/missing.txt")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestNewFileStoreRequiresPath(t *testing.T) {
	_, err := NewFileStore(" ")
	require.Error(t, err)
}
