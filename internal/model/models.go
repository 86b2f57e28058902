package model

import "time"

// Directory represents a tracked directory on the local host.
type Directory struct {
	ID   int64  // Surrogate key (dir_props.id)
	Path string // Absolute path on host, unique
}

// DirectoryAction is one immutable entry of a directory's action log.
// Entries are only ever appended; ID gives the total order per directory.
type DirectoryAction struct {
	ID          int64
	DirectoryID int64      // Foreign key to Directory
	Kind        ActionKind // Stored as an integer via ActionCodec
	CachedDate  time.Time  // When the action was recorded
}

// FileRecord is the cached metadata of one file within a tracked directory.
type FileRecord struct {
	ID           int64
	DirectoryID  int64     // Foreign key to Directory
	Name         string    // Unique within the directory
	CachedDate   time.Time // Last time the record was verified against the filesystem
	CreatedDate  time.Time // Birth time observed at caching time
	ModifiedDate time.Time // Modification time observed at caching time
}

// Entry is one file as observed by a listing provider.
type Entry struct {
	Name         string
	CreatedDate  time.Time
	ModifiedDate time.Time
}

// Listing is the result of listing one directory.
type Listing struct {
	Path    string
	Files   []Entry
	Subdirs []string // Absolute paths of child directories
}
