package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/habari/core"
)

const filesDir = "media_library/files/"

var (
	// errors
	ErrFolderNotFound = core.NewNotFoundError("folder")
	ErrFileNotFound   = core.NewNotFoundError("file")
	ErrEmptyFile      = errors.New("the file is empty")
	ErrFolderCycle    = errors.New("a folder cannot be moved inside itself")
)

type (
	Repository interface {
		CreateFolder(ctx context.Context, f Folder, exec ...core.DBExecutor) (Folder, error)
		UpdateFolder(ctx context.Context, f Folder, exec ...core.DBExecutor) (Folder, error)
		GetFolder(ctx context.Context, id string, exec ...core.DBExecutor) (Folder, error)
		// QueryFolders returns the folders ordered by name.
		QueryFolders(ctx context.Context, exec ...core.DBExecutor) ([]Folder, error)
		// DeleteFolders also deletes subfolders; their files are kept outside any folder.
		DeleteFolders(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error)

		CreateFile(ctx context.Context, f File, exec ...core.DBExecutor) (File, error)
		UpdateFile(ctx context.Context, f File, exec ...core.DBExecutor) (File, error)
		GetFile(ctx context.Context, id string, exec ...core.DBExecutor) (File, error)
		// QueryFiles returns files newest first.
		QueryFiles(ctx context.Context, filter Filter, exec ...core.DBExecutor) ([]File, error)
		DeleteFile(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	Service struct {
		repo   Repository
		store  core.FileStore
		logger core.Logger
		conf   *core.Config
	}
)

func NewService(repo Repository, store core.FileStore, logger core.Logger, conf *core.Config) *Service {
	return &Service{
		repo:   repo,
		store:  store,
		logger: logger,
		conf:   conf,
	}
}

func (svc *Service) withURL(f File) File {
	f.URL = svc.store.URL(f.Key)
	return f
}

// Folders

// checkParent makes sure parentID exists and is neither id nor one of its descendants.
func (svc *Service) checkParent(ctx context.Context, id, parentID string) error {
	if parentID == "" {
		return nil
	}
	folders, err := svc.repo.QueryFolders(ctx)
	if err != nil {
		return errors.Wrap(err, "querying folders")
	}
	parents := make(map[string]string, len(folders))
	for _, f := range folders {
		parents[f.ID] = f.ParentID.String
	}
	if _, ok := parents[parentID]; !ok {
		return core.NewFieldError("parent_id", "folder not found")
	}
	for curr := parentID; curr != "" && id != ""; curr = parents[curr] {
		if curr == id {
			return core.NewFieldError("parent_id", ErrFolderCycle.Error())
		}
	}
	return nil
}

func (svc *Service) CreateFolder(ctx context.Context, data FolderData) (Folder, error) {
	if err := svc.checkParent(ctx, "", data.ParentID); err != nil {
		return Folder{}, err
	}
	f := Folder{Name: data.Name}
	if data.ParentID != "" {
		f.ParentID = null.StringFrom(data.ParentID)
	}
	return svc.repo.CreateFolder(ctx, f)
}

func (svc *Service) UpdateFolder(ctx context.Context, orig Folder, data FolderData) (Folder, error) {
	if err := svc.checkParent(ctx, orig.ID, data.ParentID); err != nil {
		return Folder{}, err
	}
	f := orig
	f.Name = data.Name
	f.ParentID = null.NewString(data.ParentID, data.ParentID != "")
	return svc.repo.UpdateFolder(ctx, f)
}

func (svc *Service) GetFolder(ctx context.Context, id string) (Folder, error) {
	return svc.repo.GetFolder(ctx, id)
}

func (svc *Service) ListFolders(ctx context.Context) ([]Folder, error) {
	return svc.repo.QueryFolders(ctx)
}

func (svc *Service) DeleteFolders(ctx context.Context, ids ...string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	return svc.repo.DeleteFolders(ctx, ids)
}

// Files

func (svc *Service) checkFolder(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if _, err := svc.repo.GetFolder(ctx, id); err != nil {
		if core.IsNotFound(err) {
			return core.NewFieldError("folder_id", "folder not found")
		}
		return errors.Wrap(err, "finding folder")
	}
	return nil
}

// Upload stores r under media_library/files/ and records it in the library.
func (svc *Service) Upload(ctx context.Context, up Upload, r io.Reader) (File, error) {
	if up.Size <= 0 || r == nil {
		return File{}, core.NewFieldError("file", ErrEmptyFile.Error())
	}
	if limit := svc.conf.Storage.MaxMediaSize; limit > 0 && up.Size > limit {
		return File{}, core.NewFieldError("file", fmt.Sprintf("the file is too large (max %d MB)", limit>>20))
	}
	if err := svc.checkFolder(ctx, up.FolderID); err != nil {
		return File{}, err
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(r, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return File{}, errors.Wrap(err, "reading file")
	}
	head = head[:n]
	contentType, fileType := DetectType(head, up.Filename)

	ext := strings.ToLower(path.Ext(up.Filename))
	key := filesDir + uuid.New().String() + ext
	if err = svc.store.Save(ctx, key, io.MultiReader(bytes.NewReader(head), r), up.Size, contentType); err != nil {
		return File{}, errors.Wrap(err, "saving file")
	}

	title := core.CleanString(up.Title)
	if title == "" {
		title = strings.TrimSuffix(path.Base(up.Filename), path.Ext(up.Filename))
	}
	now := core.Now()
	f, err := svc.repo.CreateFile(ctx, File{
		Title:       title,
		Key:         key,
		FileType:    fileType,
		FolderID:    null.NewString(up.FolderID, up.FolderID != ""),
		UploadedBy:  null.NewString(up.UploadedBy, up.UploadedBy != ""),
		FileSize:    up.Size,
		ContentType: contentType,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		if derr := svc.store.Delete(ctx, key); derr != nil {
			svc.logger.Error("deleting orphan media file", derr, map[string]interface{}{"key": key})
		}
		return File{}, errors.Wrap(err, "creating file")
	}
	return svc.withURL(f), nil
}

func (svc *Service) List(ctx context.Context, filter Filter) ([]File, error) {
	files, err := svc.repo.QueryFiles(ctx, filter)
	if err != nil {
		return nil, err
	}
	for i := range files {
		files[i] = svc.withURL(files[i])
	}
	return files, nil
}

func (svc *Service) Get(ctx context.Context, id string) (File, error) {
	f, err := svc.repo.GetFile(ctx, id)
	if err != nil {
		return File{}, err
	}
	return svc.withURL(f), nil
}

func (svc *Service) Update(ctx context.Context, orig File, data FileUpdate) (File, error) {
	if err := svc.checkFolder(ctx, data.FolderID); err != nil {
		return File{}, err
	}
	f := orig
	f.Title = data.Title
	f.AltText = data.AltText
	f.FolderID = null.NewString(data.FolderID, data.FolderID != "")
	f.UpdatedAt = core.Now()
	f, err := svc.repo.UpdateFile(ctx, f)
	if err != nil {
		return File{}, err
	}
	return svc.withURL(f), nil
}

// Delete removes the file from the library and from the store.
func (svc *Service) Delete(ctx context.Context, f File) error {
	if err := svc.repo.DeleteFile(ctx, f.ID); err != nil {
		return err
	}
	return errors.Wrap(svc.store.Delete(ctx, f.Key), "deleting stored file")
}

// Open returns the stored content of f.
func (svc *Service) Open(ctx context.Context, f File) (io.ReadCloser, error) {
	return svc.store.Open(ctx, f.Key)
}
