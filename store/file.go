package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

const (
	ActivityListFile = "activities.txt"
	SkippedFile      = "skipped.txt"
	TokenFile        = ".strava-token.json"
)

// FileStore keeps the activity list, skipped list and tokens as plain files,
// normally next to the downloaded GPX files.
type FileStore struct {
	listPath    string
	skippedPath string
	tokenPath   string
}

// NewFileStore stores everything under dir. A non-empty listPath overrides the
// location of the activity list.
func NewFileStore(dir, listPath string) *FileStore {
	if listPath == "" {
		listPath = filepath.Join(dir, ActivityListFile)
	}
	return &FileStore{
		listPath:    listPath,
		skippedPath: filepath.Join(dir, SkippedFile),
		tokenPath:   filepath.Join(dir, TokenFile),
	}
}

func (s *FileStore) ActivityList(ctx context.Context) ([]Activity, error) {
	f, err := os.Open(s.listPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "store: failed to open activity list")
	}
	defer f.Close()
	activities, err := readActivityList(f)
	if err != nil {
		return nil, errors.Wrapf(err, "store: failed to read %s", s.listPath)
	}
	return activities, nil
}

func (s *FileStore) StoreActivityList(ctx context.Context, activities []Activity) error {
	return writeFileAtomic(s.listPath, 0644, func(f *os.File) error {
		return writeActivityList(f, activities)
	})
}

func (s *FileStore) StoreSkipped(ctx context.Context, ids []int64) error {
	return writeFileAtomic(s.skippedPath, 0644, func(f *os.File) error {
		return writeIDs(f, ids)
	})
}

func (s *FileStore) GetTokens(ctx context.Context) (*Tokens, error) {
	data, err := os.ReadFile(s.tokenPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "store: failed to read tokens")
	}
	var tokens Tokens
	if err := json.Unmarshal(data, &tokens); err != nil {
		return nil, errors.Wrap(err, "store: failed to decode tokens")
	}
	return &tokens, nil
}

func (s *FileStore) StoreTokens(ctx context.Context, tokens Tokens) error {
	data, err := json.MarshalIndent(tokens, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(s.tokenPath, 0600, func(f *os.File) error {
		_, err := f.Write(data)
		return err
	})
}

func (s *FileStore) Close() error {
	return nil
}

// writeFileAtomic writes through a temp file in the same directory and renames
// it into place.
func writeFileAtomic(path string, perm os.FileMode, write func(*os.File) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(err, "store: failed to create %s", dir)
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return errors.Wrap(err, "store: failed to create temp file")
	}
	defer os.Remove(f.Name())
	if err := write(f); err != nil {
		f.Close()
		return errors.Wrapf(err, "store: failed to write %s", path)
	}
	if err := f.Chmod(perm); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return errors.Wrapf(os.Rename(f.Name(), path), "store: failed to replace %s", path)
}
