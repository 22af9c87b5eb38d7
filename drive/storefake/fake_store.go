package storefake

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jrsteele09/home-logistic/drive"
	apperrors "github.com/jrsteele09/home-logistic/internal/errors"
)

// Operation names accepted by FailNext.
const (
	OpListFolders       = "ListFoldersByName"
	OpListFiles         = "ListFilesInFolderByName"
	OpCreateFolder      = "CreateFolder"
	OpCreateSpreadsheet = "CreateSpreadsheet"
)

// FakeDrive is an in-memory, read-after-write consistent drive for a single
// user. It implements drive.StoreFactory.
type FakeDrive struct {
	mu          sync.Mutex
	validTokens map[string]struct{}
	folders     []drive.Folder
	files       map[string][]drive.File
	failures    map[string]error
	calls       []string
	nextID      int
	clock       time.Time
}

var _ drive.StoreFactory = (*FakeDrive)(nil)

// NewFakeDrive creates an empty drive that accepts the given access tokens.
func NewFakeDrive(validTokens ...string) *FakeDrive {
	d := &FakeDrive{
		validTokens: make(map[string]struct{}),
		files:       make(map[string][]drive.File),
		failures:    make(map[string]error),
		clock:       time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	for _, t := range validTokens {
		d.validTokens[t] = struct{}{}
	}
	return d
}

func (d *FakeDrive) ForAccessToken(_ context.Context, accessToken string) (drive.Store, error) {
	return &fakeStore{drive: d, accessToken: accessToken}, nil
}

// SeedFolder adds a folder as if the user had created it at the given time.
func (d *FakeDrive) SeedFolder(name string, created time.Time) drive.Folder {
	d.mu.Lock()
	defer d.mu.Unlock()
	f := drive.Folder{ID: d.newID("folder"), Name: name, CreatedTime: created}
	d.folders = append(d.folders, f)
	return f
}

// SeedFile adds a file to a folder.
func (d *FakeDrive) SeedFile(folderID, name string, created time.Time) drive.File {
	d.mu.Lock()
	defer d.mu.Unlock()
	f := drive.File{ID: d.newID("file"), Name: name, CreatedTime: created}
	d.files[folderID] = append(d.files[folderID], f)
	return f
}

// FailNext makes the next call of op fail with err.
func (d *FakeDrive) FailNext(op string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failures[op] = err
}

// Folders returns every folder with the given name.
func (d *FakeDrive) Folders(name string) []drive.Folder {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []drive.Folder
	for _, f := range d.folders {
		if f.Name == name {
			out = append(out, f)
		}
	}
	return out
}

// Files returns every file with the given name inside a folder.
func (d *FakeDrive) Files(folderID, name string) []drive.File {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []drive.File
	for _, f := range d.files[folderID] {
		if f.Name == name {
			out = append(out, f)
		}
	}
	return out
}

// Calls returns the operations performed so far, in order.
func (d *FakeDrive) Calls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.calls...)
}

// CreateCalls counts the create operations performed so far.
func (d *FakeDrive) CreateCalls() int {
	n := 0
	for _, c := range d.Calls() {
		if c == OpCreateFolder || c == OpCreateSpreadsheet {
			n++
		}
	}
	return n
}

// begin records a call and returns the injected or authorization failure, if any.
// Must be called with d.mu held.
func (d *FakeDrive) begin(op, accessToken string) error {
	d.calls = append(d.calls, op)
	if _, ok := d.validTokens[accessToken]; !ok {
		return fmt.Errorf("fake drive %s: %w", op, apperrors.ErrUnauthorized)
	}
	if err, ok := d.failures[op]; ok {
		delete(d.failures, op)
		return err
	}
	return nil
}

func (d *FakeDrive) newID(prefix string) string {
	d.nextID++
	return fmt.Sprintf("%s-%d", prefix, d.nextID)
}

func (d *FakeDrive) tick() time.Time {
	d.clock = d.clock.Add(time.Second)
	return d.clock
}

type fakeStore struct {
	drive       *FakeDrive
	accessToken string
}

func (s *fakeStore) ListFoldersByName(_ context.Context, name string) ([]drive.Folder, error) {
	d := s.drive
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.begin(OpListFolders, s.accessToken); err != nil {
		return nil, err
	}
	var out []drive.Folder
	for _, f := range d.folders {
		if f.Name == name {
			out = append(out, f)
		}
	}
	return out, nil
}

func (s *fakeStore) ListFilesInFolderByName(_ context.Context, folderID, name string) ([]drive.File, error) {
	d := s.drive
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.begin(OpListFiles, s.accessToken); err != nil {
		return nil, err
	}
	var out []drive.File
	for _, f := range d.files[folderID] {
		if f.Name == name {
			out = append(out, f)
		}
	}
	return out, nil
}

func (s *fakeStore) CreateFolder(_ context.Context, name string) (drive.Folder, error) {
	d := s.drive
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.begin(OpCreateFolder, s.accessToken); err != nil {
		return drive.Folder{}, err
	}
	f := drive.Folder{ID: d.newID("folder"), Name: name, CreatedTime: d.tick()}
	d.folders = append(d.folders, f)
	return f, nil
}

func (s *fakeStore) CreateSpreadsheet(_ context.Context, folderID, name string) (drive.File, error) {
	d := s.drive
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.begin(OpCreateSpreadsheet, s.accessToken); err != nil {
		return drive.File{}, err
	}
	f := drive.File{ID: d.newID("sheet"), Name: name, CreatedTime: d.tick()}
	d.files[folderID] = append(d.files[folderID], f)
	return f, nil
}
