package platform

import (
	"context"

	"resumind/internal/host"
)

// FileGateway delegates to the host filesystem.
type FileGateway struct {
	s *Store
}

func (g *FileGateway) Write(ctx context.Context, path string, data []byte) (host.FSItem, bool) {
	return delegate(g.s, StorageFailure, "fs.write", func(h host.Host) (host.FSItem, error) {
		return h.FS().Write(ctx, path, data)
	})
}

func (g *FileGateway) Read(ctx context.Context, path string) (host.Blob, bool) {
	return delegate(g.s, StorageFailure, "fs.read", func(h host.Host) (host.Blob, error) {
		return h.FS().Read(ctx, path)
	})
}

func (g *FileGateway) ReadDir(ctx context.Context, path string) ([]host.FSItem, bool) {
	return delegate(g.s, StorageFailure, "fs.readdir", func(h host.Host) ([]host.FSItem, error) {
		return h.FS().ReadDir(ctx, path)
	})
}

func (g *FileGateway) Upload(ctx context.Context, files []host.UploadFile) (host.FSItem, bool) {
	return delegate(g.s, StorageFailure, "fs.upload", func(h host.Host) (host.FSItem, error) {
		return h.FS().Upload(ctx, files)
	})
}

// Delete is unconditional and not confirmed.
func (g *FileGateway) Delete(ctx context.Context, path string) bool {
	_, ok := delegate(g.s, StorageFailure, "fs.delete", func(h host.Host) (struct{}, error) {
		return struct{}{}, h.FS().Delete(ctx, path)
	})
	return ok
}
