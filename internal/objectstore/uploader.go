package objectstore

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/jmylchreest/vodforge/internal/apperrors"
	"github.com/jmylchreest/vodforge/internal/progress"
)

// DefaultUploadConcurrency is the default bounded fan-out width for
// Upload, matching spec.md §4.E.
const DefaultUploadConcurrency = 30

// fileEntry pairs a local path with the object key it uploads to.
type fileEntry struct {
	localPath string
	objectKey string
}

// Uploader is the Artifact Uploader: it walks a transcode output
// directory and uploads every file found there to the object store.
type Uploader struct {
	client      *Client
	progress    *progress.Registry
	concurrency int
}

// New creates an Uploader. concurrency <= 0 falls back to
// DefaultUploadConcurrency.
func New(client *Client, registry *progress.Registry, concurrency int) *Uploader {
	if concurrency <= 0 {
		concurrency = DefaultUploadConcurrency
	}
	return &Uploader{client: client, progress: registry, concurrency: concurrency}
}

// Upload walks localDir recursively, uploads every file under
// keyPrefix+relativePath, and returns the master playlist's object key.
// keyPrefix must end in "/". Upload fails fast with apperrors.NoMasterPlaylist
// if no index.m3u8 exists at depth 1 under the prefix, or
// apperrors.ObjectStorePut on the first PUT failure; in-flight uploads are
// allowed to finish before the error is returned.
func (u *Uploader) Upload(ctx context.Context, uploadID, videoName, localDir, keyPrefix string) (string, error) {
	entries, masterKey, err := collectFiles(localDir, keyPrefix)
	if err != nil {
		return "", apperrors.Internal(fmt.Errorf("walking transcode output: %w", err))
	}
	if masterKey == "" {
		return "", apperrors.NoMasterPlaylist(fmt.Errorf("no index.m3u8 found under %s", keyPrefix))
	}

	total := len(entries)
	var uploaded atomic.Int32

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(u.concurrency)

	for _, e := range entries {
		e := e
		group.Go(func() error {
			if err := u.putFile(groupCtx, e); err != nil {
				return apperrors.ObjectStorePut(e.objectKey, err)
			}

			current := int(uploaded.Add(1))
			u.progress.Upsert(uploadID, progress.Entry{
				Stage:       "Upload to R2",
				CurrentUnit: current,
				TotalUnits:  total,
				Percentage:  current * 100 / total,
				HumanDetail: fmt.Sprintf("Uploaded %d/%d files", current, total),
				VideoName:   videoName,
				Status:      progress.StatusProcessing,
			})
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return "", err
	}

	return masterKey, nil
}

func (u *Uploader) putFile(ctx context.Context, e fileEntry) error {
	f, err := os.Open(e.localPath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", e.localPath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stating %s: %w", e.localPath, err)
	}

	return u.client.Put(ctx, e.objectKey, f, info.Size(), contentTypeForKey(e.objectKey))
}

// collectFiles walks dir recursively, returning (localPath, objectKey)
// pairs with objectKey = prefix + path relative to dir. The master
// playlist is the file named index.m3u8 found directly under dir (depth
// 1 relative to prefix, not inside a variant subdirectory).
func collectFiles(dir, prefix string) ([]fileEntry, string, error) {
	var entries []fileEntry
	var masterKey string

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		key := prefix + rel

		if rel == "index.m3u8" {
			masterKey = key
		}
		entries = append(entries, fileEntry{localPath: path, objectKey: key})
		return nil
	})
	if err != nil {
		return nil, "", err
	}

	return entries, masterKey, nil
}

func contentTypeForKey(key string) string {
	switch ext := strings.ToLower(filepath.Ext(key)); ext {
	case ".m3u8":
		return "application/vnd.apple.mpegurl"
	case ".ts":
		return "video/mp2t"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	default:
		if ct := mime.TypeByExtension(ext); ct != "" {
			return ct
		}
		return "application/octet-stream"
	}
}
