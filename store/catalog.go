package store

import (
	"os"
	"path/filepath"
	"sort"
	"time"

	"confab/message"
)

// maxListed caps the catalog so listing stays cheap regardless of how many
// conversations have accumulated.
const maxListed = 10

// Metadata describes one saved conversation for resume selection.
type Metadata struct {
	// DisplayID is the 1-based position in this listing only. It is
	// recomputed every call and is not a stable identifier.
	DisplayID    int
	ID           string
	Title        string
	Preview      string
	MessageCount int
	FileName     string
	LastModified time.Time
}

// FindByID locates the conversation file for an identifier, with or without
// a title slug, and returns its base name.
func (s *Store) FindByID(id string) (string, bool) {
	matches, err := filepath.Glob(filepath.Join(s.dir, filePrefix+id+"*"+fileExt))
	if err != nil || len(matches) == 0 {
		return "", false
	}
	return filepath.Base(matches[0]), true
}

// List enumerates saved conversations newest-first, capped at 10. Files that
// fail to parse are skipped; one bad file never aborts the listing.
func (s *Store) List() []Metadata {
	paths, err := filepath.Glob(filepath.Join(s.dir, filePrefix+"*"+fileExt))
	if err != nil {
		s.log.Warnw("failed to scan conversation directory", "dir", s.dir, "error", err)
		return nil
	}

	type candidate struct {
		path    string
		modTime time.Time
	}
	var candidates []candidate
	for _, p := range paths {
		fi, err := os.Stat(p)
		if err != nil || fi.IsDir() {
			continue
		}
		candidates = append(candidates, candidate{path: p, modTime: fi.ModTime()})
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].modTime.After(candidates[j].modTime)
	})

	var out []Metadata
	for _, c := range candidates {
		if len(out) == maxListed {
			break
		}
		msgs, err := s.Load(c.path)
		if err != nil {
			s.log.Debugw("skipping unreadable conversation file", "path", c.path, "error", err)
			continue
		}
		name := filepath.Base(c.path)
		md := Metadata{
			ID:           ExtractID(name),
			FileName:     name,
			LastModified: c.modTime,
		}
		for _, m := range msgs {
			switch m.Role {
			case message.RoleUser:
				md.Preview = m.Text()
				md.MessageCount++
			case message.RoleAssistant:
				md.MessageCount++
			}
		}
		if title, ok := ExtractTitle(name); ok {
			md.Title = title
		} else {
			md.Title = md.Preview
		}
		md.DisplayID = len(out) + 1
		out = append(out, md)
	}
	return out
}
