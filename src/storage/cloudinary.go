package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

var versionSegment = regexp.MustCompile(`^v\d+$`)

// CloudinaryStore forwards images to Cloudinary and keeps only the secure URL
type CloudinaryStore struct {
	cld *cloudinary.Cloudinary
}

func NewCloudinaryStore(cloudinaryURL string) (*CloudinaryStore, error) {
	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("error configuring Cloudinary: %w", err)
	}
	return &CloudinaryStore{cld: cld}, nil
}

func (s *CloudinaryStore) Save(ctx context.Context, folder string, img Image) (string, error) {
	params := uploader.UploadParams{Folder: folder}
	if folder == FolderProfilePics {
		params.Transformation = "c_limit,h_300,w_300"
	}

	result, err := s.cld.Upload.Upload(ctx, img.Body, params)
	if err != nil {
		return "", fmt.Errorf("error uploading image to Cloudinary: %w", err)
	}
	if result.Error.Message != "" {
		return "", fmt.Errorf("error uploading image to Cloudinary: %s", result.Error.Message)
	}
	return result.SecureURL, nil
}

func (s *CloudinaryStore) Delete(ctx context.Context, ref string) error {
	publicID, err := PublicIDFromURL(ref)
	if err != nil {
		// not a Cloudinary asset, nothing to remove
		return nil
	}

	result, err := s.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID})
	if err != nil {
		return fmt.Errorf("error deleting image from Cloudinary: %w", err)
	}
	if result.Error.Message != "" {
		return errors.New(result.Error.Message)
	}
	return nil
}

// PublicIDFromURL extracts the public id from a delivery URL such as
// https://res.cloudinary.com/<cloud>/image/upload/v123/profile-pics/abc.jpg
func PublicIDFromURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}

	_, rest, found := strings.Cut(u.Path, "/upload/")
	if !found || rest == "" {
		return "", fmt.Errorf("not a Cloudinary upload URL: %s", raw)
	}

	segments := strings.Split(rest, "/")
	for i, seg := range segments {
		if versionSegment.MatchString(seg) {
			segments = segments[i+1:]
			break
		}
	}
	if len(segments) == 0 {
		return "", fmt.Errorf("not a Cloudinary upload URL: %s", raw)
	}

	id := strings.Join(segments, "/")
	return strings.TrimSuffix(id, path.Ext(id)), nil
}
