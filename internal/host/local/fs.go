package local

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"

	"resumind/internal/host"
	"resumind/internal/shared/storage/object"
)

type files struct {
	store  object.ObjectStore
	userID string
	root   string
}

// key maps a "/"-rooted user path to a storage key under the user's root.
func (f *files) key(p string) (string, string, error) {
	clean, err := object.CleanKey(p)
	if err != nil {
		return "", "", fmt.Errorf("path %q: %w", p, err)
	}
	if clean == "" {
		return f.root, "/", nil
	}
	return f.root + "/" + clean, "/" + clean, nil
}

func (f *files) userPath(key string) string {
	return "/" + strings.TrimPrefix(strings.TrimPrefix(key, f.root), "/")
}

func (f *files) Write(ctx context.Context, p string, data []byte) (host.FSItem, error) {
	key, userPath, err := f.key(p)
	if err != nil {
		return host.FSItem{}, err
	}
	if userPath == "/" {
		return host.FSItem{}, errors.New("cannot write to the root directory")
	}
	size, err := f.store.SaveWithKey(ctx, key, contentType(userPath, data), bytes.NewReader(data))
	if err != nil {
		return host.FSItem{}, err
	}
	return host.FSItem{
		ID:       key,
		Name:     path.Base(userPath),
		Path:     userPath,
		Size:     size,
		Modified: time.Now().UTC(),
	}, nil
}

func (f *files) Read(ctx context.Context, p string) (host.Blob, error) {
	key, userPath, err := f.key(p)
	if err != nil {
		return host.Blob{}, err
	}
	body, err := f.store.Open(ctx, key)
	if err != nil {
		return host.Blob{}, mapNotFound(err)
	}
	defer body.Close()
	data, err := io.ReadAll(body)
	if err != nil {
		return host.Blob{}, fmt.Errorf("read %s: %w", userPath, err)
	}
	return host.Blob{Data: data, Type: contentType(userPath, data)}, nil
}

func (f *files) ReadDir(ctx context.Context, p string) ([]host.FSItem, error) {
	key, _, err := f.key(p)
	if err != nil {
		return nil, err
	}
	entries, err := f.store.List(ctx, key)
	if err != nil {
		return nil, err
	}
	items := make([]host.FSItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, host.FSItem{
			ID:       e.Key,
			Name:     e.Name,
			Path:     f.userPath(e.Key),
			IsDir:    e.IsDir,
			Size:     e.Size,
			Modified: e.ModTime,
		})
	}
	return items, nil
}

func (f *files) Upload(ctx context.Context, uploads []host.UploadFile) (host.FSItem, error) {
	if len(uploads) == 0 {
		return host.FSItem{}, errors.New("no files to upload")
	}
	var last host.FSItem
	for _, u := range uploads {
		key, size, _, err := f.store.Save(ctx, f.userID, u.Name, bytes.NewReader(u.Data))
		if err != nil {
			return host.FSItem{}, fmt.Errorf("upload %s: %w", u.Name, err)
		}
		userPath := f.userPath(key)
		last = host.FSItem{
			ID:       key,
			Name:     path.Base(userPath),
			Path:     userPath,
			Size:     size,
			Modified: time.Now().UTC(),
		}
	}
	return last, nil
}

func (f *files) Delete(ctx context.Context, p string) error {
	key, userPath, err := f.key(p)
	if err != nil {
		return err
	}
	if userPath == "/" {
		return errors.New("cannot delete the root directory")
	}
	return mapNotFound(f.store.Delete(ctx, key))
}

func mapNotFound(err error) error {
	if errors.Is(err, object.ErrNotFound) {
		return fmt.Errorf("%w: %v", host.ErrNotFound, err)
	}
	return err
}

// contentType prefers the extension and falls back to sniffing.
func contentType(name string, data []byte) string {
	if t := mime.TypeByExtension(strings.ToLower(path.Ext(name))); t != "" {
		return t
	}
	return http.DetectContentType(data)
}
