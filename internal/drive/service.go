package drive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

const (
	folderMimeType = "application/vnd.google-apps.folder"
	sheetsMimeType = "application/vnd.google-apps.spreadsheet"
	xlsxMimeType   = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type Service struct {
	srv *drive.Service
}

func NewService(ctx context.Context, credentialsJSON string) (*Service, error) {
	// Parse credentials from JSON
	config, err := google.JWTConfigFromJSON(
		[]byte(credentialsJSON),
		drive.DriveReadonlyScope,
	)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file to config: %w", err)
	}

	srv, err := drive.NewService(ctx, option.WithHTTPClient(config.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve Drive client: %w", err)
	}

	return &Service{srv: srv}, nil
}

type File struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	MimeType     string `json:"mimeType"`
	ModifiedTime string `json:"modifiedTime,omitempty"`
	Size         int64  `json:"size,string,omitempty"`
}

func (s *Service) ListFiles(ctx context.Context, folderID string) ([]*File, error) {
	var files []*File

	// If no folder ID is provided, use "root"
	if folderID == "" {
		folderID = "root"
	}

	call := s.srv.Files.List().
		Q(fmt.Sprintf("'%s' in parents and trashed=false", folderID)).
		Fields("nextPageToken, files(id, name, mimeType, modifiedTime, size)").
		OrderBy("name").
		Context(ctx)
	err := call.Pages(ctx, func(page *drive.FileList) error {
		for _, f := range page.Files {
			files = append(files, &File{
				ID:           f.Id,
				Name:         f.Name,
				MimeType:     f.MimeType,
				ModifiedTime: f.ModifiedTime,
				Size:         f.Size,
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve files: %w", err)
	}

	return files, nil
}

// FindFolderByPath walks "a/b/c" from the Drive root and returns the folder id.
func (s *Service) FindFolderByPath(ctx context.Context, path string) (string, error) {
	if path == "" {
		return "root", nil
	}

	currentID := "root"
	for _, folder := range strings.Split(path, "/") {
		if folder == "" {
			continue
		}

		result, err := s.srv.Files.List().
			Q(fmt.Sprintf("'%s' in parents and name='%s' and mimeType='%s' and trashed=false",
				currentID, escapeQuery(folder), folderMimeType)).
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

// DownloadFile streams a file to w. Google Sheets documents are exported as xlsx.
func (s *Service) DownloadFile(ctx context.Context, fileID string, w io.Writer) (*File, error) {
	meta, err := s.srv.Files.Get(fileID).Fields("id, name, mimeType").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to read file %s: %w", fileID, err)
	}
	file := &File{ID: meta.Id, Name: meta.Name, MimeType: meta.MimeType}

	var body io.ReadCloser
	if meta.MimeType == sheetsMimeType {
		resp, err := s.srv.Files.Export(fileID, xlsxMimeType).Context(ctx).Download()
		if err != nil {
			return nil, fmt.Errorf("unable to export file %s: %w", fileID, err)
		}
		body = resp.Body
		file.Name = strings.TrimSuffix(file.Name, ".xlsx") + ".xlsx"
	} else {
		resp, err := s.srv.Files.Get(fileID).Context(ctx).Download()
		if err != nil {
			return nil, fmt.Errorf("unable to download file %s: %w", fileID, err)
		}
		body = resp.Body
	}
	defer body.Close()

	if _, err := io.Copy(w, body); err != nil {
		return nil, fmt.Errorf("unable to download file %s: %w", fileID, err)
	}
	return file, nil
}

// Fetch resolves a drive://fileID reference.
func (s *Service) Fetch(ctx context.Context, ref string) (string, []byte, error) {
	fileID, err := ParseRef(ref)
	if err != nil {
		return "", nil, err
	}
	var buf bytes.Buffer
	file, err := s.DownloadFile(ctx, fileID, &buf)
	if err != nil {
		return "", nil, err
	}
	return file.Name, buf.Bytes(), nil
}

// ParseRef returns the file id of a drive:// reference.
func ParseRef(ref string) (string, error) {
	id, ok := strings.CutPrefix(ref, "drive://")
	id = strings.Trim(id, "/")
	if !ok || id == "" || strings.Contains(id, "/") {
		return "", fmt.Errorf("not a drive reference: %q", ref)
	}
	return id, nil
}

// Ref builds the drive:// reference of a file id.
func Ref(fileID string) string {
	return "drive://" + fileID
}

func escapeQuery(s string) string {
	return strings.ReplaceAll(s, "'", `\'`)
}
