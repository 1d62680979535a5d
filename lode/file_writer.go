package lode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/justapithecus/lode/lode"
)

// ErrInvalidFilename is returned for sidecar names containing path
// separators or "..".
var ErrInvalidFilename = errors.New("invalid sidecar filename")

// FileWriter writes sidecar files to Lode Store.
// Files land at Hive-partitioned paths under files/, bypassing Dataset
// segment/manifest machinery entirely.
type FileWriter interface {
	// PutFile writes a file to the Hive-partitioned files/ prefix.
	// The filename must not contain path separators or "..".
	PutFile(ctx context.Context, filename, contentType string, data []byte) error
}

// Verify LodeClient implements FileWriter.
var _ FileWriter = (*LodeClient)(nil)

// PutFile writes a sidecar file to Lode Store at the computed Hive path.
// Uses lazy store initialization via storeFactory.
func (c *LodeClient) PutFile(ctx context.Context, filename, _ string, data []byte) error {
	if filename == "" || strings.ContainsAny(filename, `/\`) || strings.Contains(filename, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidFilename, filename)
	}

	store, err := c.getOrCreateStore()
	if err != nil {
		return WrapInitError(fmt.Errorf("file write store init failed: %w", err), c.config.Dataset)
	}

	path := FilePath(c.config, filename)
	return WrapPutError(store.Put(ctx, path, bytes.NewReader(data)), path)
}

// getOrCreateStore lazily initializes the Store from the factory.
func (c *LodeClient) getOrCreateStore() (lode.Store, error) {
	c.storeOnce.Do(func() {
		c.store, c.storeErr = c.storeFactory()
	})
	return c.store, c.storeErr
}

// FilePath computes the Hive-partitioned path for a sidecar file.
// Format: datasets/<dataset>/partitions/input=<i>/day=<d>/run_id=<r>/files/<filename>
func FilePath(cfg Config, filename string) string {
	return fmt.Sprintf("datasets/%s/partitions/input=%s/day=%s/run_id=%s/files/%s",
		cfg.Dataset,
		cfg.Input,
		cfg.Day,
		cfg.RunID,
		filename,
	)
}
