package repository

import (
	"context"

	"github.com/user/digest-service/internal/entity"
)

// BlobStore persists a rendered digest under a path and returns the URL it
// can be read from.
type BlobStore interface {
	Put(ctx context.Context, content, contentType, path string) (string, error)
}

// MailSender delivers a fully-formed digest email.
type MailSender interface {
	Send(ctx context.Context, email entity.Email) error
}

// ForumPoster submits a fully-formed self-post and returns the post URL
// when the forum reports one.
type ForumPoster interface {
	Submit(ctx context.Context, post entity.ForumPost) (string, error)
}
