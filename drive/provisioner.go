package drive

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"

	apperrors "github.com/jrsteele09/home-logistic/internal/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// Provisioner ensures a named folder with a named spreadsheet inside it exists
// in the user's drive, creating each at most once.
//
// Existence is decided by listing the store before every create. Two
// processes racing on the same user can still both create; the in-process
// single-flight only collapses concurrent calls made through this value.
type Provisioner struct {
	stores   StoreFactory
	inflight singleflight.Group
}

func NewProvisioner(stores StoreFactory) *Provisioner {
	return &Provisioner{stores: stores}
}

// Provision runs the check-then-create sequence. The calls are strictly
// sequential: list folders, optionally create the folder, list files, and
// optionally create the spreadsheet. Any failure stops the sequence; a
// folder created before the failure is kept and reused on retry.
//
// Cancelling ctx returns a retryable failure to this caller only; the
// sequence itself runs to completion for any other caller waiting on it.
func (p *Provisioner) Provision(ctx context.Context, accessToken, folderName, sheetName string) Result {
	if accessToken == "" {
		return Failed(apperrors.Wrapf(apperrors.ErrUnauthorized, "[Provisioner Provision] missing access token"))
	}
	if folderName == "" || sheetName == "" {
		return Failed(apperrors.Wrapf(apperrors.ErrInvalidRequest, "[Provisioner Provision] folder and sheet names are required"))
	}

	flight := p.inflight.DoChan(flightKey(accessToken, folderName, sheetName), func() (interface{}, error) {
		return p.provision(context.WithoutCancel(ctx), accessToken, folderName, sheetName), nil
	})
	select {
	case res := <-flight:
		return res.Val.(Result)
	case <-ctx.Done():
		return Failed(classify("wait", ctx.Err()))
	}
}

func (p *Provisioner) provision(ctx context.Context, accessToken, folderName, sheetName string) Result {
	store, err := p.stores.ForAccessToken(ctx, accessToken)
	if err != nil {
		return Failed(classify("open store", err))
	}

	folders, err := store.ListFoldersByName(ctx, folderName)
	if err != nil {
		return Failed(classify("list folders", err))
	}

	var result Result
	folder, ambiguous := canonicalFolder(folders, folderName)
	if ambiguous {
		result.Ambiguous = true
		log.Warn().
			Err(apperrors.ErrAmbiguousFolder).
			Str("folder_name", folderName).
			Int("matches", countFolders(folders, folderName)).
			Str("folder_id", folder.ID).
			Msg("Resolved duplicate folders to the most recently created")
	}

	if folder == nil {
		created, err := store.CreateFolder(ctx, folderName)
		if err != nil {
			return Failed(classify("create folder", err))
		}
		folder = &created
		result.FolderCreated = true
		log.Info().Str("folder_name", folderName).Str("folder_id", created.ID).Msg("Created folder")
	}

	files, err := store.ListFilesInFolderByName(ctx, folder.ID, sheetName)
	if err != nil {
		return Failed(classify("list files", err))
	}

	if sheet := latestFile(files, sheetName); sheet != nil {
		result.Status = StatusAlreadyExists
		result.FolderID = folder.ID
		result.SheetID = sheet.ID
		return result
	}

	sheet, err := store.CreateSpreadsheet(ctx, folder.ID, sheetName)
	if err != nil {
		return Failed(classify("create spreadsheet", err))
	}
	log.Info().Str("folder_id", folder.ID).Str("sheet_id", sheet.ID).Msg("Created spreadsheet")

	result.Status = StatusCreated
	result.FolderID = folder.ID
	result.SheetID = sheet.ID
	return result
}

// canonicalFolder picks the folder to use among exact-name matches. With more
// than one match the most recently created wins, ties broken by the larger ID.
func canonicalFolder(folders []Folder, name string) (*Folder, bool) {
	matches := make([]Folder, 0, len(folders))
	for _, f := range folders {
		if f.Name == name {
			matches = append(matches, f)
		}
	}
	if len(matches) == 0 {
		return nil, false
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if !matches[i].CreatedTime.Equal(matches[j].CreatedTime) {
			return matches[i].CreatedTime.After(matches[j].CreatedTime)
		}
		return matches[i].ID > matches[j].ID
	})
	return &matches[0], len(matches) > 1
}

func countFolders(folders []Folder, name string) int {
	n := 0
	for _, f := range folders {
		if f.Name == name {
			n++
		}
	}
	return n
}

func latestFile(files []File, name string) *File {
	var latest *File
	for i := range files {
		f := &files[i]
		if f.Name != name {
			continue
		}
		if latest == nil || f.CreatedTime.After(latest.CreatedTime) ||
			(f.CreatedTime.Equal(latest.CreatedTime) && f.ID > latest.ID) {
			latest = f
		}
	}
	return latest
}

// classify keeps taxonomy errors as they are and treats anything else as a
// transport failure.
func classify(op string, err error) error {
	for _, kind := range []error{apperrors.ErrUnauthorized, apperrors.ErrPermissionDenied, apperrors.ErrTransport} {
		if errors.Is(err, kind) {
			return fmt.Errorf("[Provisioner %s] %w", op, err)
		}
	}
	return fmt.Errorf("[Provisioner %s] %w: %w", op, apperrors.ErrTransport, err)
}

// flightKey identifies concurrent calls for the same user and target without
// keeping the raw token as a map key.
func flightKey(accessToken, folderName, sheetName string) string {
	h := sha256.New()
	for _, part := range []string{accessToken, folderName, sheetName} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
