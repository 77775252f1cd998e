package media

import (
	"mime"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/habari/core"
)

// File types
const (
	TypeImage    = "image"
	TypeDocument = "document"
	TypeVideo    = "video"
	TypeAudio    = "audio"
	TypeOther    = "other"
)

var (
	FileTypes = []string{TypeImage, TypeDocument, TypeVideo, TypeAudio, TypeOther}

	documentTypes = map[string]bool{
		"application/pdf":    true,
		"application/msword": true,
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   true,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         true,
		"application/vnd.openxmlformats-officedocument.presentationml.presentation": true,
		"application/vnd.oasis.opendocument.text":                                  true,
		"application/vnd.ms-excel":                                                  true,
		"text/plain":                                                                true,
		"text/csv":                                                                  true,
	}
)

type Folder struct {
	ID       string      `json:"id" db:"id"`
	Name     string      `json:"name" db:"name"`
	ParentID null.String `json:"parent_id" db:"parent_id"`
}

type File struct {
	ID          string      `json:"id" db:"id"`
	Title       string      `json:"title" db:"title"`
	Key         string      `json:"key" db:"file_key"`
	FileType    string      `json:"file_type" db:"file_type"`
	AltText     string      `json:"alt_text" db:"alt_text"`
	FolderID    null.String `json:"folder_id" db:"folder_id"`
	UploadedBy  null.String `json:"uploaded_by" db:"uploaded_by"`
	FileSize    int64       `json:"file_size" db:"file_size"`
	ContentType string      `json:"content_type" db:"content_type"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at" db:"updated_at"`

	URL string `json:"url" db:"-"`
}

type Filter struct {
	FolderID string `query:"folder"`
	FileType string `query:"type"`
	Search   string `query:"search"`
}

// DetectType returns the content type and file type of a file from its first bytes, falling back on its
// extension when the content is not recognized.
func DetectType(head []byte, filename string) (contentType, fileType string) {
	contentType = http.DetectContentType(head)
	if contentType == "application/octet-stream" || contentType == "application/zip" ||
		strings.HasPrefix(contentType, "text/plain") {
		if byExt := mime.TypeByExtension(strings.ToLower(path.Ext(filename))); byExt != "" {
			contentType = byExt
		}
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = contentType
	}
	return contentType, fileTypeOf(mediaType)
}

func fileTypeOf(mediaType string) string {
	switch {
	case strings.HasPrefix(mediaType, "image/"):
		return TypeImage
	case strings.HasPrefix(mediaType, "video/"):
		return TypeVideo
	case strings.HasPrefix(mediaType, "audio/"):
		return TypeAudio
	case documentTypes[mediaType]:
		return TypeDocument
	default:
		return TypeOther
	}
}

type FolderData struct {
	Name     string `json:"name" validate:"required,max=200"`
	ParentID string `json:"parent_id"`
}

func (fd *FolderData) Validate(validate *validator.Validate) error {
	fd.Name = core.CleanString(fd.Name)
	return validate.Struct(fd)
}

// Upload describes a file sent to the library.
type Upload struct {
	Title      string
	FolderID   string
	Filename   string
	Size       int64
	UploadedBy string
}

type FileUpdate struct {
	Title    string `json:"title" validate:"required,max=255"`
	AltText  string `json:"alt_text" validate:"max=255"`
	FolderID string `json:"folder_id"`
}

func (fu *FileUpdate) Validate(validate *validator.Validate) error {
	fu.Title = core.CleanString(fu.Title)
	fu.AltText = core.CleanString(fu.AltText)
	return validate.Struct(fu)
}
