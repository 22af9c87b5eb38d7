package drive

import (
	"context"
	"time"
)

// Folder is a folder in the user's drive.
type Folder struct {
	ID          string
	Name        string
	CreatedTime time.Time
}

// File is a file inside a folder.
type File struct {
	ID          string
	Name        string
	CreatedTime time.Time
}

// Store is the capability the provisioner needs from the external storage.
// Name matching is exact. Errors should wrap ErrUnauthorized,
// ErrPermissionDenied or ErrTransport from internal/errors; anything else,
// ErrNotFound included, is treated as a transport failure.
type Store interface {
	// ListFoldersByName lists top-level folders owned by the caller.
	ListFoldersByName(ctx context.Context, name string) ([]Folder, error)
	ListFilesInFolderByName(ctx context.Context, folderID, name string) ([]File, error)
	CreateFolder(ctx context.Context, name string) (Folder, error)
	CreateSpreadsheet(ctx context.Context, folderID, name string) (File, error)
}

// StoreFactory opens a Store authenticated as the owner of accessToken.
type StoreFactory interface {
	ForAccessToken(ctx context.Context, accessToken string) (Store, error)
}
