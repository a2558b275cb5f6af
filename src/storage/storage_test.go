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

func TestLocalStoreSaveAndDelete(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	ref, err := store.Save(ctx, FolderPosts, Image{
		Filename:    "cat.png",
		ContentType: "image/png",
		Body:        strings.NewReader("png-bytes"),
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ref, "/uploads/posts/"))
	assert.True(t, strings.HasSuffix(ref, ".png"))

	onDisk := filepath.Join(store.Root, FolderPosts, filepath.Base(ref))
	data, err := os.ReadFile(onDisk)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))

	require.NoError(t, store.Delete(ctx, ref))
	_, err = os.Stat(onDisk)
	assert.True(t, os.IsNotExist(err))

	// deleting twice is not an error
	require.NoError(t, store.Delete(ctx, ref))
}

func TestLocalStoreGeneratesDistinctNames(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		ref, err := store.Save(context.Background(), FolderProfilePics, Image{
			ContentType: "image/jpeg",
			Body:        strings.NewReader("x"),
		})
		require.NoError(t, err)
		assert.False(t, seen[ref])
		seen[ref] = true
	}
}

func TestLocalStoreIgnoresMarkupExtensions(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	for _, img := range []Image{
		{Filename: "x.svg", ContentType: "image/svg+xml"},
		{Filename: "x.html", ContentType: "text/html"},
	} {
		img.Body = strings.NewReader("<svg></svg>")
		ref, err := store.Save(context.Background(), FolderPosts, img)
		require.NoError(t, err)
		assert.Empty(t, filepath.Ext(ref), img.Filename)
	}
}

func TestLocalStoreDeleteStaysInsideRoot(t *testing.T) {
	parent := t.TempDir()
	outside := filepath.Join(parent, "keep.txt")
	require.NoError(t, os.WriteFile(outside, []byte("keep"), 0o644))

	store, err := NewLocalStore(filepath.Join(parent, "uploads"))
	require.NoError(t, err)

	require.NoError(t, store.Delete(context.Background(), "/uploads/../keep.txt"))
	require.NoError(t, store.Delete(context.Background(), "https://res.cloudinary.com/demo/image/upload/x.jpg"))

	_, err = os.Stat(outside)
	assert.NoError(t, err)
}

func TestPublicIDFromURL(t *testing.T) {
	cases := map[string]string{
		"https://res.cloudinary.com/demo/image/upload/v1712/profile-pics/abc123.jpg": "profile-pics/abc123",
		"https://res.cloudinary.com/demo/image/upload/posts/xyz.png":                 "posts/xyz",
		"https://res.cloudinary.com/demo/image/upload/c_limit,w_300/v9/a/b.webp":     "a/b",
	}
	for raw, want := range cases {
		got, err := PublicIDFromURL(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	_, err := PublicIDFromURL("/uploads/posts/a.png")
	assert.Error(t, err)
}
