package store

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

const (
	filePrefix = "conversation-"
	fileExt    = ".json"
)

var (
	slugStrip    = regexp.MustCompile(`[^a-zA-Z0-9 _-]`)
	slugSpace    = regexp.MustCompile(`\s+`)
	fileWithSlug = regexp.MustCompile(`^conversation-(\d{4}-\d{2}-\d{2}T\d{2}-\d{2}-\d{2}-\d{3}Z)-(.+)\.json$`)
	fileNoSlug   = regexp.MustCompile(`^conversation-(\d{4}-\d{2}-\d{2}T\d{2}-\d{2}-\d{2}-\d{3}Z)\.json$`)
)

// Slug renders a title as a filesystem-safe fragment: unsupported characters
// stripped, whitespace runs collapsed to underscores, lowercased.
func Slug(title string) string {
	s := slugStrip.ReplaceAllString(title, "")
	s = slugSpace.ReplaceAllString(strings.TrimSpace(s), "_")
	return strings.ToLower(s)
}

// FileName maps a conversation id and title to its file name.
func FileName(id, title string) string {
	if slug := Slug(title); slug != "" {
		return fmt.Sprintf("%s%s-%s%s", filePrefix, id, slug, fileExt)
	}
	return filePrefix + id + fileExt
}

// ExtractTitle recovers a human title from a file name carrying a slug:
// underscores become spaces and each word is title-cased. Files without a
// slug yield ok=false.
func ExtractTitle(fileName string) (string, bool) {
	m := fileWithSlug.FindStringSubmatch(fileName)
	if m == nil {
		return "", false
	}
	words := strings.Split(strings.ReplaceAll(m[2], "_", " "), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " "), true
}

// ExtractID pulls the identifier fragment out of a conversation file name.
// The result is not validated; pass it through ResolveID.
func ExtractID(fileName string) string {
	if m := fileWithSlug.FindStringSubmatch(fileName); m != nil {
		return m[1]
	}
	if m := fileNoSlug.FindStringSubmatch(fileName); m != nil {
		return m[1]
	}
	// Best effort for malformed names: strip the fixed prefix and suffix.
	s := strings.TrimPrefix(fileName, filePrefix)
	s = strings.TrimSuffix(s, fileExt)
	return s
}

// Rename moves the conversation file at oldPath to the path implied by
// (id, newTitle) and returns the resulting path. It never overwrites: if the
// destination exists, the source is missing, or the paths are equal, oldPath
// is returned untouched. I/O failures are logged and reported as no-ops.
func (s *Store) Rename(oldPath, id, newTitle string) string {
	newPath := filepath.Join(s.dir, FileName(id, newTitle))
	if newPath == oldPath {
		return oldPath
	}
	if _, err := os.Stat(oldPath); err != nil {
		return oldPath
	}
	if _, err := os.Stat(newPath); err == nil {
		s.log.Warnw("rename destination exists, keeping old name", "old", oldPath, "new", newPath)
		return oldPath
	}
	if err := os.Rename(oldPath, newPath); err != nil {
		s.log.Warnw("failed to rename conversation file", "old", oldPath, "new", newPath, "error", err)
		return oldPath
	}
	return newPath
}

// FixMalformed renames a conversation file whose embedded identifier failed
// validation onto the proper id, preserving any title. Same no-overwrite
// semantics as Rename.
func (s *Store) FixMalformed(badFileName, properID, title string) string {
	return s.Rename(filepath.Join(s.dir, badFileName), properID, title)
}
