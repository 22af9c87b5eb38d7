// Package googledrive implements drive.Store on top of the Google Drive v3 API.
package googledrive

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jrsteele09/home-logistic/drive"
	"github.com/jrsteele09/home-logistic/internal/google"
	"golang.org/x/time/rate"
	drivev3 "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// Google Drive MIME types.
const (
	MimeTypeFolder      = "application/vnd.google-apps.folder"
	MimeTypeSpreadsheet = "application/vnd.google-apps.spreadsheet"
)

const (
	listFields = "nextPageToken, files(id, name, createdTime)"
	fileFields = "id, name, createdTime"
	pageSize   = 100
)

// Factory opens Drive stores for individual access tokens. All stores opened
// from one Factory share a rate limiter.
type Factory struct {
	limiter *rate.Limiter
	options []option.ClientOption
}

var _ drive.StoreFactory = (*Factory)(nil)

// NewFactory creates a Factory limited to requestsPerSecond with the given
// burst. Extra client options (for example option.WithEndpoint) are applied to
// every Drive service it creates.
func NewFactory(requestsPerSecond float64, burst int, options ...option.ClientOption) *Factory {
	return &Factory{
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
		options: options,
	}
}

func (f *Factory) ForAccessToken(ctx context.Context, accessToken string) (drive.Store, error) {
	opts := append([]option.ClientOption{google.AccessTokenOption(accessToken)}, f.options...)
	svc, err := drivev3.NewService(ctx, opts...)
	if err != nil {
		return nil, google.ClassifyError("create drive service", err)
	}
	return &Store{svc: svc, limiter: f.limiter}, nil
}

// Store is a drive.Store bound to one user's credentials.
type Store struct {
	svc     *drivev3.Service
	limiter *rate.Limiter
}

var _ drive.Store = (*Store)(nil)

func (s *Store) ListFoldersByName(ctx context.Context, name string) ([]drive.Folder, error) {
	q := fmt.Sprintf("name = '%s' and mimeType = '%s' and 'root' in parents and 'me' in owners and trashed = false",
		escapeQuery(name), MimeTypeFolder)

	files, err := s.list(ctx, "list folders", q)
	if err != nil {
		return nil, err
	}

	folders := make([]drive.Folder, 0, len(files))
	for _, f := range files {
		folders = append(folders, drive.Folder{ID: f.Id, Name: f.Name, CreatedTime: parseTime(f.CreatedTime)})
	}
	return folders, nil
}

func (s *Store) ListFilesInFolderByName(ctx context.Context, folderID, name string) ([]drive.File, error) {
	q := fmt.Sprintf("name = '%s' and '%s' in parents and trashed = false", escapeQuery(name), escapeQuery(folderID))

	files, err := s.list(ctx, "list files", q)
	if err != nil {
		return nil, err
	}

	out := make([]drive.File, 0, len(files))
	for _, f := range files {
		out = append(out, drive.File{ID: f.Id, Name: f.Name, CreatedTime: parseTime(f.CreatedTime)})
	}
	return out, nil
}

func (s *Store) CreateFolder(ctx context.Context, name string) (drive.Folder, error) {
	created, err := s.create(ctx, "create folder", &drivev3.File{
		Name:     name,
		MimeType: MimeTypeFolder,
		Parents:  []string{"root"},
	})
	if err != nil {
		return drive.Folder{}, err
	}
	return drive.Folder{ID: created.Id, Name: created.Name, CreatedTime: parseTime(created.CreatedTime)}, nil
}

// CreateSpreadsheet creates an empty Google Sheets file; Drive converts the
// metadata-only upload into a native spreadsheet.
func (s *Store) CreateSpreadsheet(ctx context.Context, folderID, name string) (drive.File, error) {
	created, err := s.create(ctx, "create spreadsheet", &drivev3.File{
		Name:     name,
		MimeType: MimeTypeSpreadsheet,
		Parents:  []string{folderID},
	})
	if err != nil {
		return drive.File{}, err
	}
	return drive.File{ID: created.Id, Name: created.Name, CreatedTime: parseTime(created.CreatedTime)}, nil
}

func (s *Store) list(ctx context.Context, op, q string) ([]*drivev3.File, error) {
	var files []*drivev3.File
	call := s.svc.Files.List().
		Q(q).
		Spaces("drive").
		Fields(listFields).
		OrderBy("createdTime desc").
		PageSize(pageSize)

	if err := s.wait(ctx); err != nil {
		return nil, google.ClassifyError(op, err)
	}
	err := call.Pages(ctx, func(page *drivev3.FileList) error {
		files = append(files, page.Files...)
		if page.NextPageToken != "" {
			return s.wait(ctx)
		}
		return nil
	})
	if err != nil {
		return nil, google.ClassifyError(op, err)
	}
	return files, nil
}

func (s *Store) create(ctx context.Context, op string, file *drivev3.File) (*drivev3.File, error) {
	if err := s.wait(ctx); err != nil {
		return nil, google.ClassifyError(op, err)
	}
	created, err := s.svc.Files.Create(file).Fields(fileFields).Context(ctx).Do()
	if err != nil {
		return nil, google.ClassifyError(op, err)
	}
	return created, nil
}

func (s *Store) wait(ctx context.Context) error {
	return s.limiter.Wait(ctx)
}

// escapeQuery escapes a value for a single-quoted Drive query string.
func escapeQuery(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	return strings.ReplaceAll(v, `'`, `\'`)
}

func parseTime(v string) time.Time {
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}
	}
	return t
}
