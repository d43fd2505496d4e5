package storage

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// Open selects a backend from the URL scheme:
// memory://, redis://, rediss://, postgres://, postgresql:// or sqlite://<path>.
func Open(ctx context.Context, rawURL string) (Store, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid storage URL: %w", err)
	}

	switch strings.ToLower(u.Scheme) {
	case "memory", "mem":
		return NewMemoryStore(), nil
	case "redis", "rediss":
		return NewRedisStore(ctx, rawURL)
	case "postgres", "postgresql":
		return NewPostgresStore(ctx, rawURL)
	case "sqlite", "file":
		path := sqlitePath(rawURL)
		if path == "" {
			return nil, fmt.Errorf("sqlite storage URL %q has no path", rawURL)
		}
		return NewSQLiteStore(ctx, path)
	default:
		return nil, fmt.Errorf("unsupported storage scheme %q", u.Scheme)
	}
}

// sqlitePath accepts sqlite:///abs/path, sqlite://rel/path and file: forms
func sqlitePath(rawURL string) string {
	_, rest, _ := strings.Cut(rawURL, ":")
	rest = strings.TrimPrefix(rest, "//")
	return rest
}
