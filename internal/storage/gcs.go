package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	gcs "cloud.google.com/go/storage"
	"github.com/google/uuid"
)

// Folder is the bucket prefix an asset is stored under.
type Folder string

const (
	FolderImages    Folder = "imagenes"
	FolderDocuments Folder = "files"
	FolderVideos    Folder = "videos"
)

const publicURLFormat = "https://firebasestorage.googleapis.com/v0/b/%s/o/%s?alt=media"

var ErrInvalidAssetURL = errors.New("not an object storage url")

type GCSStore struct {
	bucket     *gcs.BucketHandle
	bucketName string
}

func NewGCSStore(client *gcs.Client, bucket string) *GCSStore {
	return &GCSStore{
		bucket:     client.Bucket(bucket),
		bucketName: bucket,
	}
}

// Upload stores r under a random name in folder and returns its public URL.
func (s *GCSStore) Upload(ctx context.Context, folder Folder, filename, contentType string, r io.Reader) (string, error) {
	name := objectName(folder, filename)

	w := s.bucket.Object(name).NewWriter(ctx)
	w.ContentType = contentType
	w.ContentDisposition = "inline"

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("failed to write object %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to upload object %s: %w", name, err)
	}
	return PublicURL(s.bucketName, name), nil
}

// Delete removes the object behind a URL returned by Upload. Missing objects
// are not an error.
func (s *GCSStore) Delete(ctx context.Context, assetURL string) error {
	name, err := ObjectPath(assetURL)
	if err != nil {
		return err
	}

	err = s.bucket.Object(name).Delete(ctx)
	if err != nil && !errors.Is(err, gcs.ErrObjectNotExist) {
		return fmt.Errorf("failed to delete object %s: %w", name, err)
	}
	return nil
}

func PublicURL(bucket, object string) string {
	return fmt.Sprintf(publicURLFormat, bucket, url.PathEscape(object))
}

// ObjectPath extracts the object name from a public URL.
func ObjectPath(assetURL string) (string, error) {
	u, err := url.Parse(assetURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidAssetURL, err)
	}
	_, name, ok := strings.Cut(u.Path, "/o/")
	if !ok || name == "" {
		return "", fmt.Errorf("%w: %s", ErrInvalidAssetURL, assetURL)
	}
	return name, nil
}

func objectName(folder Folder, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	return fmt.Sprintf("%s/%s%s", folder, strings.ReplaceAll(uuid.NewString(), "-", ""), ext)
}
