package media_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/habari/core"
	"github.com/trezcool/habari/core/media"
	"github.com/trezcool/habari/core/user"
	"github.com/trezcool/habari/services/filestore"
	"github.com/trezcool/habari/storage/database/sqlxrepos"
	"github.com/trezcool/habari/tests"
)

var (
	png = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")
	pdf = []byte("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")
)

func setup(t *testing.T) (*media.Service, user.User, string) {
	db := testutil.PrepareDB(t)
	root := t.TempDir()
	svc := media.NewService(
		sqlxrepos.NewMediaRepository(db),
		filestore.NewLocalStore(root, "/media"),
		testutil.NewLogger(),
		testutil.NewConfig(),
	)
	usr := testutil.CreateUser(t, sqlxrepos.NewUserRepository(db), "editor", "editor@example.com", "", user.RoleNewsEditor, true)
	return svc, usr, root
}

func TestDetectType(t *testing.T) {
	tests := []struct {
		name         string
		head         []byte
		filename     string
		wantFileType string
	}{
		{"png", png, "logo.png", media.TypeImage},
		{"png with a wrong extension", png, "logo.pdf", media.TypeImage},
		{"pdf", pdf, "report.pdf", media.TypeDocument},
		{"plain text", []byte("hello world"), "notes.txt", media.TypeDocument},
		{"unknown binary", []byte{0x00, 0x01, 0x02}, "blob", media.TypeOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, fileType := media.DetectType(tt.head, tt.filename)
			assert.Equal(t, tt.wantFileType, fileType)
		})
	}
}

func TestService_Folders(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	root, err := svc.CreateFolder(ctx, media.FolderData{Name: "Photos"})
	require.NoError(t, err)
	sub, err := svc.CreateFolder(ctx, media.FolderData{Name: "2024", ParentID: root.ID})
	require.NoError(t, err)

	t.Run("cycle", func(t *testing.T) {
		_, err := svc.UpdateFolder(ctx, root, media.FolderData{Name: "Photos", ParentID: sub.ID})
		var verr *core.ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, "parent_id", verr.Fields[0].Field)
	})

	t.Run("unknown parent", func(t *testing.T) {
		_, err := svc.CreateFolder(ctx, media.FolderData{Name: "x", ParentID: "nope"})
		assert.Error(t, err)
	})

	folders, err := svc.ListFolders(ctx)
	require.NoError(t, err)
	require.Len(t, folders, 2)
	assert.Equal(t, "2024", folders[0].Name)

	n, err := svc.DeleteFolders(ctx, root.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, err = svc.GetFolder(ctx, sub.ID)
	assert.True(t, core.IsNotFound(err), "subfolders are deleted too")
}

func TestService_Files(t *testing.T) {
	svc, usr, root := setup(t)
	ctx := context.Background()
	folder, err := svc.CreateFolder(ctx, media.FolderData{Name: "Docs"})
	require.NoError(t, err)

	logo, err := svc.Upload(ctx, media.Upload{Filename: "School Logo.PNG", Size: int64(len(png)), UploadedBy: usr.ID}, bytes.NewReader(png))
	require.NoError(t, err)
	assert.Equal(t, "School Logo", logo.Title)
	assert.Equal(t, media.TypeImage, logo.FileType)
	assert.Equal(t, "image/png", logo.ContentType)
	assert.Regexp(t, `^media_library/files/[0-9a-f-]{36}\.png$`, logo.Key)
	assert.Equal(t, "/media/"+logo.Key, logo.URL)
	assert.Equal(t, usr.ID, logo.UploadedBy.String)

	report, err := svc.Upload(ctx, media.Upload{Title: "Report", FolderID: folder.ID, Filename: "r.pdf", Size: int64(len(pdf))}, bytes.NewReader(pdf))
	require.NoError(t, err)
	assert.Equal(t, media.TypeDocument, report.FileType)

	t.Run("invalid uploads", func(t *testing.T) {
		tests := []struct {
			name  string
			up    media.Upload
			field string
		}{
			{"empty", media.Upload{Filename: "a.png"}, "file"},
			{"too large", media.Upload{Filename: "a.png", Size: 21 << 20}, "file"},
			{"unknown folder", media.Upload{Filename: "a.png", Size: 3, FolderID: "nope"}, "folder_id"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := svc.Upload(ctx, tt.up, bytes.NewReader(png))
				var verr *core.ValidationError
				require.True(t, errors.As(err, &verr), "got %v", err)
				assert.Equal(t, tt.field, verr.Fields[0].Field)
			})
		}
	})

	t.Run("list", func(t *testing.T) {
		files, err := svc.List(ctx, media.Filter{})
		require.NoError(t, err)
		assert.Len(t, files, 2)

		files, err = svc.List(ctx, media.Filter{FileType: media.TypeImage})
		require.NoError(t, err)
		require.Len(t, files, 1)
		assert.Equal(t, logo.ID, files[0].ID)

		files, err = svc.List(ctx, media.Filter{FolderID: folder.ID})
		require.NoError(t, err)
		require.Len(t, files, 1)
		assert.Equal(t, report.ID, files[0].ID)
	})

	t.Run("update", func(t *testing.T) {
		f, err := svc.Update(ctx, logo, media.FileUpdate{Title: "Logo", AltText: "The school logo", FolderID: folder.ID})
		require.NoError(t, err)
		got, err := svc.Get(ctx, f.ID)
		require.NoError(t, err)
		assert.Equal(t, "The school logo", got.AltText)
		assert.Equal(t, folder.ID, got.FolderID.String)
	})

	t.Run("deleting a folder detaches its files", func(t *testing.T) {
		_, err := svc.DeleteFolders(ctx, folder.ID)
		require.NoError(t, err)
		got, err := svc.Get(ctx, report.ID)
		require.NoError(t, err)
		assert.False(t, got.FolderID.Valid)
	})

	t.Run("delete removes the stored object", func(t *testing.T) {
		path := filepath.Join(root, filepath.FromSlash(report.Key))
		_, err := os.Stat(path)
		require.NoError(t, err)

		require.NoError(t, svc.Delete(ctx, report))
		_, err = os.Stat(path)
		assert.True(t, os.IsNotExist(err))

		_, err = svc.Get(ctx, report.ID)
		assert.True(t, core.IsNotFound(err))
	})
}
