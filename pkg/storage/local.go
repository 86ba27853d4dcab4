package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Local stores objects under a base directory on disk. Logical paths use
// forward slashes regardless of platform.
type Local struct {
	base string
}

// NewLocal creates the base directory if needed and returns a disk backend.
func NewLocal(base string) (*Local, error) {
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create base dir: %w", err)
	}
	return &Local{base: base}, nil
}

// abs resolves a logical path under the base dir, refusing escapes.
func (l *Local) abs(p string) (string, error) {
	p = NormalizePath(p)
	full := filepath.Join(l.base, filepath.FromSlash(p))
	if rel, err := filepath.Rel(l.base, full); err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("storage: path escapes base: %q", p)
	}
	return full, nil
}

func (l *Local) CreateFolder(name, parent string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrEmptyName
	}
	folderPath := name
	if parent = NormalizePath(parent); parent != "" {
		folderPath = parent + "/" + name
	}
	full, err := l.abs(folderPath)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(full, 0o755); err != nil {
		return "", fmt.Errorf("storage: create folder: %w", err)
	}
	return folderPath, nil
}

func (l *Local) Put(dir, filename string, data []byte) (Entry, error) {
	if strings.TrimSpace(filename) == "" {
		return Entry{}, ErrEmptyName
	}
	filePath := filename
	if dir = NormalizePath(dir); dir != "" {
		filePath = dir + "/" + filename
	}
	full, err := l.abs(filePath)
	if err != nil {
		return Entry{}, err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return Entry{}, fmt.Errorf("storage: mkdir: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return Entry{}, fmt.Errorf("storage: write: %w", err)
	}
	fi, err := os.Stat(full)
	if err != nil {
		return Entry{}, err
	}
	return Entry{
		Name:        filename,
		Path:        filePath,
		Size:        int64(len(data)),
		ContentType: ContentTypeFor(filename),
		Extension:   extOf(filename),
		Modified:    fi.ModTime(),
	}, nil
}

func (l *Local) List(dir string, includeHidden bool, sortBy, sortOrder string) (Listing, error) {
	dir = NormalizePath(dir)
	full, err := l.abs(dir)
	if err != nil {
		return Listing{}, err
	}
	dirents, err := os.ReadDir(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Listing{}, ErrNotFound
		}
		return Listing{}, fmt.Errorf("storage: list: %w", err)
	}
	entries := make([]Entry, 0, len(dirents))
	for _, de := range dirents {
		name := de.Name()
		if !includeHidden && strings.HasPrefix(name, ".") {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		p := name
		if dir != "" {
			p = dir + "/" + name
		}
		e := Entry{Name: name, Path: p, IsFolder: de.IsDir(), Modified: info.ModTime()}
		if !e.IsFolder {
			e.Size = info.Size()
			e.ContentType = ContentTypeFor(name)
			e.Extension = extOf(name)
		}
		entries = append(entries, e)
	}
	sortEntries(entries, sortBy, sortOrder)
	return Listing{Path: dir, Entries: entries, TotalCount: len(entries)}, nil
}

// Search matches entry names case-insensitively within one directory level,
// optionally restricted to a file extension (without the dot).
func (l *Local) Search(query, dir, fileType string) ([]Entry, error) {
	listing, err := l.List(dir, true, "name", "asc")
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(query)
	var results []Entry
	for _, e := range listing.Entries {
		if fileType != "" && e.IsFolder {
			continue
		}
		if !strings.Contains(strings.ToLower(e.Name), q) {
			continue
		}
		if fileType != "" && e.Extension != "."+strings.ToLower(fileType) {
			continue
		}
		results = append(results, e)
	}
	return results, nil
}

func (l *Local) Get(filePath string) ([]byte, string, string, error) {
	full, err := l.abs(filePath)
	if err != nil {
		return nil, "", "", err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, "", "", ErrNotFound
		}
		return nil, "", "", fmt.Errorf("storage: read: %w", err)
	}
	filename := baseName(NormalizePath(filePath))
	return data, ContentTypeFor(filename), filename, nil
}

func (l *Local) Stat(filePath string) (Entry, error) {
	p := NormalizePath(filePath)
	full, err := l.abs(p)
	if err != nil {
		return Entry{}, err
	}
	fi, err := os.Stat(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Entry{}, ErrNotFound
		}
		return Entry{}, err
	}
	name := baseName(p)
	e := Entry{Name: name, Path: p, IsFolder: fi.IsDir(), Modified: fi.ModTime()}
	if !e.IsFolder {
		e.Size = fi.Size()
		e.ContentType = ContentTypeFor(name)
		e.Extension = extOf(name)
	}
	return e, nil
}

func (l *Local) Delete(itemPath string, recursive bool) (DeleteResult, error) {
	p := NormalizePath(itemPath)
	if p == "" {
		return DeleteResult{}, ErrEmptyName
	}
	full, err := l.abs(p)
	if err != nil {
		return DeleteResult{}, err
	}
	fi, err := os.Stat(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return DeleteResult{}, ErrNotFound
		}
		return DeleteResult{}, err
	}
	if !fi.IsDir() {
		if err := os.Remove(full); err != nil {
			return DeleteResult{}, fmt.Errorf("storage: delete: %w", err)
		}
		return DeleteResult{Path: p, Type: "file"}, nil
	}
	count, err := countFiles(full)
	if err != nil {
		return DeleteResult{}, err
	}
	if count > 0 && !recursive {
		return DeleteResult{}, ErrNotEmpty
	}
	if err := os.RemoveAll(full); err != nil {
		return DeleteResult{}, fmt.Errorf("storage: delete folder: %w", err)
	}
	return DeleteResult{Path: p, Type: "folder", DeletedItems: count}, nil
}

func (l *Local) Copy(src, dst string) error {
	data, _, _, err := l.Get(src)
	if err != nil {
		return err
	}
	dst = NormalizePath(dst)
	_, err = l.Put(parentPath(dst), baseName(dst), data)
	return err
}

func (l *Local) Move(src, dst string) error {
	srcFull, err := l.abs(src)
	if err != nil {
		return err
	}
	dstFull, err := l.abs(dst)
	if err != nil {
		return err
	}
	if _, err := os.Stat(srcFull); errors.Is(err, fs.ErrNotExist) {
		return ErrNotFound
	}
	if err := os.MkdirAll(filepath.Dir(dstFull), 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}
	if err := os.Rename(srcFull, dstFull); err == nil {
		return nil
	}
	// cross-device rename: fall back to copy + delete
	if err := l.Copy(src, dst); err != nil {
		return err
	}
	_, err = l.Delete(src, false)
	return err
}

func (l *Local) Stats() (Stats, error) {
	stats := Stats{FileTypes: map[string]int{}}
	err := filepath.WalkDir(l.base, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		stats.TotalFiles++
		stats.TotalSize += info.Size()
		ext := extOf(d.Name())
		if ext == "" {
			ext = "no_extension"
		}
		stats.FileTypes[ext]++
		return nil
	})
	if err != nil {
		return Stats{}, fmt.Errorf("storage: stats: %w", err)
	}
	stats.TotalSizeMB = float64(stats.TotalSize) / (1024 * 1024)
	best := 0
	for ext, n := range stats.FileTypes {
		if n > best {
			best = n
			stats.MostCommonType = ext
		}
	}
	return stats, nil
}

func countFiles(dir string) (int, error) {
	count := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			count++
		}
		return nil
	})
	return count, err
}
