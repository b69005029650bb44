// Package archive packages in-memory payloads into a single zip artifact.
package archive

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"
)

// ContentType is the media type of artifacts produced by a Builder.
const ContentType = "application/zip"

var (
	// ErrEmptyName indicates an entry was added without a usable name.
	ErrEmptyName = errors.New("archive entry name must not be empty")
	// ErrFinalized indicates the builder was used after Finalize.
	ErrFinalized = errors.New("archive already finalized")
)

// Artifact is a finalized archive ready for delivery.
type Artifact struct {
	Name      string    `json:"name"`
	SizeBytes int64     `json:"size_bytes"`
	Entries   []string  `json:"entries"`
	CreatedAt time.Time `json:"created_at"`
	Data      []byte    `json:"-"`
}

type entry struct {
	name string
	data []byte
}

// Builder accumulates named payloads and writes them into one zip on Finalize.
// Adding a name that already exists replaces the earlier payload in place,
// so the entry keeps its first position but carries the last data added.
type Builder struct {
	entries   []entry
	index     map[string]int
	finalized bool
}

// NewBuilder creates an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		entries: make([]entry, 0),
		index:   make(map[string]int),
	}
}

// Add stores data under name. The name is reduced to its base component.
// Reports whether an earlier entry with the same name was replaced.
func (b *Builder) Add(name string, data []byte) (bool, error) {
	if b.finalized {
		return false, ErrFinalized
	}

	name = EntryName(name)
	if name == "" {
		return false, ErrEmptyName
	}

	if i, ok := b.index[name]; ok {
		b.entries[i].data = data
		return true, nil
	}

	b.index[name] = len(b.entries)
	b.entries = append(b.entries, entry{name: name, data: data})
	return false, nil
}

// Len returns the number of distinct entries.
func (b *Builder) Len() int {
	return len(b.entries)
}

// Finalize writes all entries into a zip named artifactName and releases the
// buffered payloads. The builder cannot be reused afterwards.
func (b *Builder) Finalize(artifactName string, now time.Time) (*Artifact, error) {
	if b.finalized {
		return nil, ErrFinalized
	}
	b.finalized = true

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	names := make([]string, 0, len(b.entries))
	for _, e := range b.entries {
		header := &zip.FileHeader{
			Name:     e.name,
			Method:   zip.Deflate,
			Modified: now,
		}

		w, err := zw.CreateHeader(header)
		if err != nil {
			return nil, fmt.Errorf("create entry %s: %w", e.name, err)
		}
		if _, err := w.Write(e.data); err != nil {
			return nil, fmt.Errorf("write entry %s: %w", e.name, err)
		}
		names = append(names, e.name)
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finalize archive: %w", err)
	}

	b.entries = nil
	b.index = nil

	return &Artifact{
		Name:      artifactName,
		SizeBytes: int64(buf.Len()),
		Entries:   names,
		CreatedAt: now,
		Data:      buf.Bytes(),
	}, nil
}

// EntryName reduces a display name to a safe, slash-free zip entry name.
func EntryName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(strings.TrimSpace(name))
	if name == "." || name == "/" || name == ".." {
		return ""
	}
	return name
}

// ArtifactName returns "<prefix>_<YYYY-MM-DD>.zip" for the given day.
func ArtifactName(prefix string, day time.Time) string {
	if prefix == "" {
		prefix = "archive"
	}
	return fmt.Sprintf("%s_%s.zip", prefix, day.Format("2006-01-02"))
}
