package storage

import (
	"context"
	"io"
)

const (
	FolderProfilePics = "profile-pics"
	FolderPosts       = "posts"
)

// Image is a validated upload waiting to be stored
type Image struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// ImageStore persists image bytes and hands back the reference saved on the owning entity
type ImageStore interface {
	Save(ctx context.Context, folder string, img Image) (string, error)
	Delete(ctx context.Context, ref string) error
}
