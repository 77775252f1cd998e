package filestore

import (
	"context"
	"path/filepath"

	"github.com/trezcool/habari/core"
)

// New returns the store selected by conf.Storage.Backend.
func New(ctx context.Context, conf *core.Config) (core.FileStore, error) {
	if conf.Storage.Backend == core.StorageS3 {
		return NewS3Store(ctx, conf)
	}
	root := conf.Storage.LocalRoot
	if root == "" {
		root = filepath.Join(conf.WorkDir, "uploads")
	}
	return NewLocalStore(root, conf.FrontendBaseURL+"/media"), nil
}
