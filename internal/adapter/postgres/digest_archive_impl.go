// Package postgres implements the blob store port on a Postgres table, so
// archived digests stay queryable alongside the rest of the system's data.
package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/digest-service/internal/repository"
)

const upsertDigest = `
INSERT INTO digest_archive (path, content, content_type, created_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (path) DO UPDATE
SET content = EXCLUDED.content,
    content_type = EXCLUDED.content_type,
    created_at = EXCLUDED.created_at`

// DigestArchive stores rendered digests keyed by path. baseURL is the public
// prefix the stored digests are served from.
type DigestArchive struct {
	pool    *pgxpool.Pool
	baseURL string
}

var _ repository.BlobStore = (*DigestArchive)(nil)

func NewDigestArchive(pool *pgxpool.Pool, baseURL string) *DigestArchive {
	return &DigestArchive{pool: pool, baseURL: strings.TrimRight(baseURL, "/")}
}

// Put upserts the digest under path and returns its public URL.
func (a *DigestArchive) Put(ctx context.Context, content, contentType, path string) (string, error) {
	if _, err := a.pool.Exec(ctx, upsertDigest, path, content, contentType, time.Now().UTC()); err != nil {
		return "", fmt.Errorf("store digest: %w", err)
	}
	return a.baseURL + "/" + strings.TrimLeft(path, "/"), nil
}
