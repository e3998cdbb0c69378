package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	supa "github.com/supabase-community/storage-go"
)

// ErrRemoteDisabled is returned when no remote object store is configured.
var ErrRemoteDisabled = errors.New("remote storage not configured")

const listLimit = 100

// RemoteObject describes a file listed from the remote bucket.
type RemoteObject struct {
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// SupabaseStorage stores report files in a Supabase Storage bucket.
type SupabaseStorage struct {
	endpoint string
	apiKey   string
	timeout  time.Duration
	// reader serves lists and URLs. Uploads set per-file headers on their
	// client, so each one gets a fresh client instead.
	reader *supa.Client
}

// NewSupabaseStorage builds a client for the project at baseURL. An empty
// baseURL or apiKey yields a client whose calls all fail with
// ErrRemoteDisabled.
func NewSupabaseStorage(baseURL, apiKey string, timeout time.Duration) *SupabaseStorage {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	s := &SupabaseStorage{apiKey: apiKey, timeout: timeout}
	if base := strings.TrimRight(baseURL, "/"); base != "" {
		s.endpoint = base + "/storage/v1"
	}
	if s.configured() {
		s.reader = s.newClient()
	}
	return s
}

// Upload stores data at bucket/objectPath, replacing any existing object, and
// returns its public URL.
func (s *SupabaseStorage) Upload(ctx context.Context, bucket, objectPath, contentType string, data []byte) (string, error) {
	if !s.configured() {
		return "", ErrRemoteDisabled
	}
	upsert := true
	opts := supa.FileOptions{ContentType: &contentType, Upsert: &upsert}
	err := s.call(ctx, func() error {
		_, err := s.newClient().UploadFile(url.PathEscape(bucket), escapeObjectPath(objectPath), bytes.NewReader(data), opts)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("upload object: %w", err)
	}
	return s.PublicURL(bucket, objectPath), nil
}

// List returns the objects stored under prefix.
func (s *SupabaseStorage) List(ctx context.Context, bucket, prefix string) ([]RemoteObject, error) {
	if !s.configured() {
		return nil, ErrRemoteDisabled
	}
	var files []supa.FileObject
	err := s.call(ctx, func() error {
		var err error
		files, err = s.reader.ListFiles(url.PathEscape(bucket), prefix, supa.FileSearchOptions{Limit: listLimit})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list objects: %w", err)
	}

	objects := make([]RemoteObject, 0, len(files))
	for _, file := range files {
		updated, _ := time.Parse(time.RFC3339, file.UpdatedAt)
		objects = append(objects, RemoteObject{
			Name:      file.Name,
			URL:       s.PublicURL(bucket, strings.TrimSuffix(prefix, "/")+"/"+file.Name),
			UpdatedAt: updated,
		})
	}
	return objects, nil
}

// PublicURL returns the public download URL for an object.
func (s *SupabaseStorage) PublicURL(bucket, objectPath string) string {
	if !s.configured() {
		return ""
	}
	return s.reader.GetPublicUrl(url.PathEscape(bucket), escapeObjectPath(objectPath)).SignedURL
}

func (s *SupabaseStorage) configured() bool {
	return s != nil && s.endpoint != "" && s.apiKey != ""
}

func (s *SupabaseStorage) newClient() *supa.Client {
	return supa.NewClient(s.endpoint, s.apiKey, map[string]string{"apikey": s.apiKey})
}

// call runs fn until it returns or the deadline passes. The client takes no
// context, so an abandoned request finishes in the background.
func (s *SupabaseStorage) call(ctx context.Context, fn func() error) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()
	select {
	case err := <-done:
		return remoteError(err)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func escapeObjectPath(p string) string {
	segments := strings.Split(strings.TrimLeft(p, "/"), "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.Join(segments, "/")
}

func remoteError(err error) error {
	if err == nil {
		return nil
	}
	var storageErr *supa.StorageError
	if errors.As(err, &storageErr) {
		if storageErr.Message == "" {
			return errors.New("remote storage: request rejected")
		}
		if storageErr.Status != 0 {
			return fmt.Errorf("remote storage: %s (status %d)", storageErr.Message, storageErr.Status)
		}
		return fmt.Errorf("remote storage: %s", storageErr.Message)
	}
	return err
}
