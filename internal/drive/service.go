package drive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

const (
	folderMimeType      = "application/vnd.google-apps.folder"
	spreadsheetMimeType = "application/vnd.google-apps.spreadsheet"
	xlsxMimeType        = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Source is the read-only view of Drive used by the handler and watcher.
type Source interface {
	ListFiles(ctx context.Context, folderID string) ([]*File, error)
	FindFolderByPath(ctx context.Context, path string) (string, error)
	Download(ctx context.Context, fileID string) (*File, []byte, error)
}

type Service struct {
	srv *drive.Service
}

// NewService authenticates with a service account key.
func NewService(ctx context.Context, credentialsJSON []byte) (*Service, error) {
	config, err := google.JWTConfigFromJSON(credentialsJSON, drive.DriveReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse service account key: %w", err)
	}

	srv, err := drive.NewService(ctx, option.WithHTTPClient(config.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve Drive client: %w", err)
	}

	return &Service{srv: srv}, nil
}

// NewServiceFromFile reads the service account key from path.
func NewServiceFromFile(ctx context.Context, path string) (*Service, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read drive credentials: %w", err)
	}
	return NewService(ctx, data)
}

type File struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	MimeType     string `json:"mimeType"`
	ModifiedTime string `json:"modifiedTime,omitempty"`
	Size         int64  `json:"size,string,omitempty"`
}

// IsWorkbook reports whether f can be read as an xlsx workbook, either
// directly or through a Google Sheets export.
func (f *File) IsWorkbook() bool {
	return f.MimeType == spreadsheetMimeType ||
		f.MimeType == xlsxMimeType ||
		strings.HasSuffix(strings.ToLower(f.Name), ".xlsx")
}

func (s *Service) ListFiles(ctx context.Context, folderID string) ([]*File, error) {
	var files []*File

	// If no folder ID is provided, use "root"
	if folderID == "" {
		folderID = "root"
	}

	err := s.srv.Files.List().
		Q(fmt.Sprintf("'%s' in parents and trashed=false", escapeQuery(folderID))).
		Fields("nextPageToken, files(id, name, mimeType, modifiedTime, size)").
		OrderBy("modifiedTime desc").
		Pages(ctx, func(page *drive.FileList) error {
			for _, f := range page.Files {
				files = append(files, fromAPI(f))
			}
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve files: %w", err)
	}

	return files, nil
}

// Download returns the file's metadata and content. Google Sheets are
// exported as xlsx.
func (s *Service) Download(ctx context.Context, fileID string) (*File, []byte, error) {
	meta, err := s.srv.Files.Get(fileID).Fields("id, name, mimeType, modifiedTime, size").Context(ctx).Do()
	if err != nil {
		return nil, nil, fmt.Errorf("unable to get file %s: %w", fileID, err)
	}
	f := fromAPI(meta)

	var buf bytes.Buffer
	if f.MimeType == spreadsheetMimeType {
		resp, err := s.srv.Files.Export(fileID, xlsxMimeType).Context(ctx).Download()
		if err != nil {
			return nil, nil, fmt.Errorf("unable to export %s: %w", f.Name, err)
		}
		defer resp.Body.Close()
		if _, err := io.Copy(&buf, resp.Body); err != nil {
			return nil, nil, err
		}
		if !strings.HasSuffix(strings.ToLower(f.Name), ".xlsx") {
			f.Name += ".xlsx"
		}
		return f, buf.Bytes(), nil
	}

	resp, err := s.srv.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return nil, nil, fmt.Errorf("unable to download file: %w", err)
	}
	defer resp.Body.Close()

	if _, err := io.Copy(&buf, resp.Body); err != nil {
		return nil, nil, err
	}
	return f, buf.Bytes(), nil
}

func (s *Service) FindFolderByPath(ctx context.Context, path string) (string, error) {
	if path == "" {
		return "root", nil
	}

	folders := strings.Split(path, "/")
	currentID := "root"

	for _, folder := range folders {
		if folder == "" {
			continue
		}

		result, err := s.srv.Files.List().
			Q(fmt.Sprintf("'%s' in parents and name='%s' and mimeType='%s' and trashed=false",
				escapeQuery(currentID), escapeQuery(folder), folderMimeType)).
			Fields("files(id, name)").
			Context(ctx).
			Do()
		if err != nil {
			return "", fmt.Errorf("error finding folder %s: %w", folder, err)
		}

		if len(result.Files) == 0 {
			return "", fmt.Errorf("folder not found: %s", folder)
		}

		currentID = result.Files[0].Id
	}

	return currentID, nil
}

func fromAPI(f *drive.File) *File {
	return &File{
		ID:           f.Id,
		Name:         f.Name,
		MimeType:     f.MimeType,
		ModifiedTime: f.ModifiedTime,
		Size:         f.Size,
	}
}

// escapeQuery quotes a value for a Drive search query.
func escapeQuery(s string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s)
}

var _ Source = (*Service)(nil)
