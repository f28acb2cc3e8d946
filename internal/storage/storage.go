// Package storage uploads shared files and avatars to object storage and
// returns a URL the other participant can fetch.
package storage

import (
	"context"
	"errors"
	"path"
	"strings"
)

// ErrEmptyObject is returned when asked to upload zero bytes.
var ErrEmptyObject = errors.New("empty object")

// Uploader stores data under key and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// ObjectKey builds a key for a file shared in a session. Path separators and
// leading dots in name are stripped so a name cannot escape its directory.
func ObjectKey(topic, id, name string) string {
	name = strings.NewReplacer("/", "_", "\\", "_").Replace(strings.TrimSpace(name))
	name = strings.TrimLeft(name, ".")
	if name == "" {
		name = "file"
	}
	return path.Join("sessions", cleanSegment(topic), cleanSegment(id), name)
}

func cleanSegment(s string) string {
	s = strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(strings.TrimSpace(s))
	if s == "" {
		return "_"
	}
	return s
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}

// ParseObjectKey splits a key built by ObjectKey.
func ParseObjectKey(key string) (topic, id, name string, ok bool) {
	parts := strings.Split(key, "/")
	if len(parts) != 4 || parts[0] != "sessions" {
		return "", "", "", false
	}
	for _, p := range parts[1:] {
		if p == "" || p == "." || p == ".." {
			return "", "", "", false
		}
	}
	return parts[1], parts[2], parts[3], true
}
