package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/trezcool/habari/core"
	"github.com/trezcool/habari/core/media"
)

var (
	folderColumns    = []string{"id", "name", "parent_id"}
	mediaFileColumns = []string{
		"id", "title", "file_key", "file_type", "alt_text", "folder_id", "uploaded_by", "file_size", "content_type",
		"created_at", "updated_at",
	}
)

type mediaRepository struct {
	repository
}

var _ media.Repository = (*mediaRepository)(nil)

func NewMediaRepository(exec core.DBExecutor) *mediaRepository {
	return &mediaRepository{repository{exec: exec}}
}

// Folders

func (repo mediaRepository) CreateFolder(ctx context.Context, f media.Folder, exec ...core.DBExecutor) (media.Folder, error) {
	exe := repo.getExec(exec)
	f.ID = newID()
	q := builder(exe).Insert("media_folders").Columns(folderColumns...).Values(f.ID, f.Name, f.ParentID)
	if _, err := execute(ctx, exe, q); err != nil {
		return media.Folder{}, errors.Wrap(err, "inserting folder")
	}
	return f, nil
}

func (repo mediaRepository) UpdateFolder(ctx context.Context, f media.Folder, exec ...core.DBExecutor) (media.Folder, error) {
	exe := repo.getExec(exec)
	q := builder(exe).Update("media_folders").Set("name", f.Name).Set("parent_id", f.ParentID).Where(sq.Eq{"id": f.ID})
	n, err := execute(ctx, exe, q)
	if err != nil {
		return media.Folder{}, errors.Wrap(err, "updating folder")
	}
	if n == 0 {
		return media.Folder{}, media.ErrFolderNotFound
	}
	return f, nil
}

func (repo mediaRepository) GetFolder(ctx context.Context, id string, exec ...core.DBExecutor) (media.Folder, error) {
	exe := repo.getExec(exec)
	var f media.Folder
	q := builder(exe).Select(folderColumns...).From("media_folders").Where(sq.Eq{"id": id})
	if err := getOne(ctx, exe, &f, q); err != nil {
		return media.Folder{}, trapNoRowsErr(err, media.ErrFolderNotFound, "finding folder")
	}
	return f, nil
}

func (repo mediaRepository) QueryFolders(ctx context.Context, exec ...core.DBExecutor) ([]media.Folder, error) {
	exe := repo.getExec(exec)
	folders := make([]media.Folder, 0)
	q := builder(exe).Select(folderColumns...).From("media_folders").OrderBy("name ASC")
	if err := selectAll(ctx, exe, &folders, q); err != nil {
		return nil, errors.Wrap(err, "querying folders")
	}
	return folders, nil
}

func (repo mediaRepository) DeleteFolders(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	exe := repo.getExec(exec)
	n, err := execute(ctx, exe, builder(exe).Delete("media_folders").Where(sq.Eq{"id": ids}))
	return int(n), errors.Wrap(err, "deleting folders")
}

// Files

func (repo mediaRepository) CreateFile(ctx context.Context, f media.File, exec ...core.DBExecutor) (media.File, error) {
	exe := repo.getExec(exec)
	f.ID = newID()
	q := builder(exe).Insert("media_files").Columns(mediaFileColumns...).Values(
		f.ID, f.Title, f.Key, f.FileType, f.AltText, f.FolderID, f.UploadedBy, f.FileSize, f.ContentType,
		f.CreatedAt, f.UpdatedAt,
	)
	if _, err := execute(ctx, exe, q); err != nil {
		return media.File{}, errors.Wrap(err, "inserting file")
	}
	return f, nil
}

func (repo mediaRepository) UpdateFile(ctx context.Context, f media.File, exec ...core.DBExecutor) (media.File, error) {
	exe := repo.getExec(exec)
	q := builder(exe).Update("media_files").
		Set("title", f.Title).
		Set("alt_text", f.AltText).
		Set("folder_id", f.FolderID).
		Set("updated_at", f.UpdatedAt).
		Where(sq.Eq{"id": f.ID})
	n, err := execute(ctx, exe, q)
	if err != nil {
		return media.File{}, errors.Wrap(err, "updating file")
	}
	if n == 0 {
		return media.File{}, media.ErrFileNotFound
	}
	return f, nil
}

func (repo mediaRepository) GetFile(ctx context.Context, id string, exec ...core.DBExecutor) (media.File, error) {
	exe := repo.getExec(exec)
	var f media.File
	q := builder(exe).Select(mediaFileColumns...).From("media_files").Where(sq.Eq{"id": id})
	if err := getOne(ctx, exe, &f, q); err != nil {
		return media.File{}, trapNoRowsErr(err, media.ErrFileNotFound, "finding file")
	}
	return f, nil
}

func (repo mediaRepository) QueryFiles(ctx context.Context, filter media.Filter, exec ...core.DBExecutor) ([]media.File, error) {
	exe := repo.getExec(exec)
	q := builder(exe).Select(mediaFileColumns...).From("media_files").OrderBy("created_at DESC")
	if filter.FolderID != "" {
		q = q.Where(sq.Eq{"folder_id": filter.FolderID})
	}
	if filter.FileType != "" {
		q = q.Where(sq.Eq{"file_type": filter.FileType})
	}
	if filter.Search != "" {
		q = q.Where(ilike(filter.Search, "title", "alt_text"))
	}

	files := make([]media.File, 0)
	if err := selectAll(ctx, exe, &files, q); err != nil {
		return nil, errors.Wrap(err, "querying files")
	}
	return files, nil
}

func (repo mediaRepository) DeleteFile(ctx context.Context, id string, exec ...core.DBExecutor) error {
	exe := repo.getExec(exec)
	n, err := execute(ctx, exe, builder(exe).Delete("media_files").Where(sq.Eq{"id": id}))
	if err != nil {
		return errors.Wrap(err, "deleting file")
	}
	if n == 0 {
		return media.ErrFileNotFound
	}
	return nil
}
