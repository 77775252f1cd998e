package echoapi

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/habari/core/media"
	"github.com/trezcool/habari/core/user"
)

var pngImage = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00\x1f\x15\xc4\x89")

func Test_mediaApi(t *testing.T) {
	f := setup(t)
	hr, hrToken := f.user(t, "hr", user.RoleHiringManager)
	_, readerToken := f.user(t, "reader", user.RoleReader)

	t.Run("staff only", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/admin/media/files", readerToken)
		f.serve(req, rec)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marshallObj(t, httpErr{Error: "permission denied"})}, rec)
	})

	var folder media.Folder
	req, rec := newAuthRequest(http.MethodPost, "/v1/admin/media/folders", hrToken, marshallObj(t, media.FolderData{Name: "Campus"}))
	f.serve(req, rec)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	unmarshall(t, rec, &folder)

	t.Run("folder cannot contain itself", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/v1/admin/media/folders/"+folder.ID, hrToken,
			marshallObj(t, media.FolderData{Name: "Campus", ParentID: folder.ID}))
		f.serve(req, rec)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	tests := []struct {
		name     string
		fields   map[string]string
		filename string
		content  []byte
		wantCode int
		wantData []byte
	}{
		{
			name: "missing file", fields: map[string]string{"title": "Lol"}, wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, map[string]string{"file": media.ErrEmptyFile.Error()}),
		},
		{
			name: "unknown folder", fields: map[string]string{"folder_id": "lol"},
			filename: "logo.png", content: pngImage, wantCode: http.StatusBadRequest,
		},
		{
			name: "uploaded", fields: map[string]string{"folder_id": folder.ID},
			filename: "School Logo.png", content: pngImage, wantCode: http.StatusCreated,
		},
		{
			name: "uploaded document", fields: map[string]string{"title": "Rules"},
			filename: "rules.txt", content: []byte("Be kind."), wantCode: http.StatusCreated,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fileField := ""
			if tt.filename != "" {
				fileField = "file"
			}
			req, rec := newMultipartRequest(t, "/v1/admin/media/files", hrToken, tt.fields, fileField, tt.filename, tt.content)
			f.serve(req, rec)
			checkCodeAndData(t, httpTest{wantCode: tt.wantCode, wantData: tt.wantData}, rec)
		})
	}

	list := func(t *testing.T, query string) []media.File {
		req, rec := newAuthRequest(http.MethodGet, "/v1/admin/media/files"+query, hrToken)
		f.serve(req, rec)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got []media.File
		unmarshall(t, rec, &got)
		return got
	}

	var logo media.File
	t.Run("list", func(t *testing.T) {
		assert.Len(t, list(t, ""), 2)
		assert.Len(t, list(t, "?type="+media.TypeDocument), 1)

		images := list(t, "?folder="+folder.ID)
		require.Len(t, images, 1)
		logo = images[0]
		assert.Equal(t, "School Logo", logo.Title)
		assert.Equal(t, media.TypeImage, logo.FileType)
		assert.Equal(t, "image/png", logo.ContentType)
		assert.Equal(t, int64(len(pngImage)), logo.FileSize)
		assert.Equal(t, hr.ID, logo.UploadedBy.String)
		assert.True(t, strings.HasPrefix(logo.URL, "/media/media_library/files/"))
	})

	t.Run("update", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/v1/admin/media/files/"+logo.ID, hrToken,
			marshallObj(t, media.FileUpdate{Title: "Logo", AltText: "The school logo"}))
		f.serve(req, rec)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got media.File
		unmarshall(t, rec, &got)
		assert.Equal(t, "Logo", got.Title)
		assert.Equal(t, "The school logo", got.AltText)
		assert.False(t, got.FolderID.Valid)
	})

	t.Run("delete", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/admin/media/files/"+logo.ID, hrToken)
		f.serve(req, rec)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		req, rec = newAuthRequest(http.MethodGet, "/v1/admin/media/files/"+logo.ID, hrToken)
		f.serve(req, rec)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marshallObj(t, httpErr{Error: "file not found"})}, rec)
	})
}
