// Package storage provides the file backend behind the upload and folder
// endpoints: a Backend interface with a local-disk implementation, plus a TTL
// cache for listing results. An S3-compatible backend can satisfy the same
// interface; only the local backend ships here.
package storage

import (
	"errors"
	"mime"
	"path"
	"sort"
	"strings"
	"time"
)

var (
	ErrNotFound  = errors.New("storage: not found")
	ErrNotEmpty  = errors.New("storage: folder not empty")
	ErrEmptyName = errors.New("storage: name cannot be empty")
)

// Entry describes a file or folder as returned by listings and stat calls.
type Entry struct {
	Name        string    `json:"name"`
	Path        string    `json:"path"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type,omitempty"`
	Extension   string    `json:"extension,omitempty"`
	IsFolder    bool      `json:"is_folder"`
	Modified    time.Time `json:"modified"`
}

// Listing is one directory level: folders first when sorted by type.
type Listing struct {
	Path       string  `json:"path"`
	Entries    []Entry `json:"files"`
	TotalCount int     `json:"total_count"`
}

// DeleteResult reports what a Delete removed.
type DeleteResult struct {
	Path         string `json:"path"`
	Type         string `json:"type"` // "file" or "folder"
	DeletedItems int    `json:"deleted_items,omitempty"`
}

// Stats aggregates usage over the whole backend.
type Stats struct {
	TotalFiles     int            `json:"total_files"`
	TotalSize      int64          `json:"total_size"`
	TotalSizeMB    float64        `json:"total_size_mb"`
	FileTypes      map[string]int `json:"file_types"`
	MostCommonType string         `json:"most_common_type,omitempty"`
}

// Backend is the storage contract the HTTP layer talks to.
type Backend interface {
	CreateFolder(name, parent string) (string, error)
	Put(dir, filename string, data []byte) (Entry, error)
	List(dir string, includeHidden bool, sortBy, sortOrder string) (Listing, error)
	Search(query, dir, fileType string) ([]Entry, error)
	Get(filePath string) (data []byte, contentType, filename string, err error)
	Stat(filePath string) (Entry, error)
	Delete(itemPath string, recursive bool) (DeleteResult, error)
	Copy(src, dst string) error
	Move(src, dst string) error
	Stats() (Stats, error)
}

// NormalizePath trims whitespace and leading slashes so "a/b", "/a/b" and
// " /a/b " address the same object. Empty means the root.
func NormalizePath(p string) string {
	p = strings.TrimSpace(p)
	p = strings.TrimLeft(p, "/")
	return path.Clean("/" + p)[1:]
}

func parentPath(p string) string {
	if !strings.Contains(p, "/") {
		return ""
	}
	return p[:strings.LastIndex(p, "/")]
}

func baseName(p string) string {
	if i := strings.LastIndex(p, "/"); i >= 0 {
		return p[i+1:]
	}
	return p
}

func extOf(name string) string {
	return strings.ToLower(path.Ext(name))
}

// ContentTypeFor maps a filename to a MIME type, defaulting to octet-stream.
func ContentTypeFor(filename string) string {
	if ct := mime.TypeByExtension(extOf(filename)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

var textExtensions = map[string]bool{
	".txt": true, ".md": true, ".py": true, ".js": true, ".html": true,
	".css": true, ".json": true, ".xml": true, ".yml": true, ".yaml": true,
	".csv": true, ".sql": true, ".log": true, ".ini": true, ".cfg": true,
	".conf": true, ".go": true,
}

// IsTextFile reports whether the file can be previewed as plain text.
func IsTextFile(filename string) bool {
	return textExtensions[extOf(filename)]
}

// sortEntries orders a listing in place. "type" puts folders first.
func sortEntries(entries []Entry, sortBy, sortOrder string) {
	desc := sortOrder == "desc"
	less := func(a, b Entry) bool { return strings.ToLower(a.Name) < strings.ToLower(b.Name) }
	switch sortBy {
	case "size":
		less = func(a, b Entry) bool { return a.Size < b.Size }
	case "modified":
		less = func(a, b Entry) bool { return a.Modified.Before(b.Modified) }
	case "type":
		less = func(a, b Entry) bool {
			if a.IsFolder != b.IsFolder {
				return a.IsFolder
			}
			return strings.ToLower(a.Name) < strings.ToLower(b.Name)
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if desc {
			return less(entries[j], entries[i])
		}
		return less(entries[i], entries[j])
	})
}
