package community

import (
	"context"

	"github.com/aegis-hub/aegis-portal/internal/domain/shared"
)

// PostRepository stores posts and their comments.
type PostRepository interface {
	// ListPosts returns posts newest first.
	ListPosts(ctx context.Context, page shared.Pagination) ([]*Post, error)
	GetPost(ctx context.Context, id string) (*Post, error)
	CreatePost(ctx context.Context, p *Post) error
	// DeletePost removes the post and its comments.
	DeletePost(ctx context.Context, id string) error
	FlagPost(ctx context.Context, id string) error
	// LikePost adds one like and returns the new total.
	LikePost(ctx context.Context, id string) (int, error)

	// ListComments returns comments oldest first.
	ListComments(ctx context.Context, postID string) ([]*Comment, error)
	CreateComment(ctx context.Context, c *Comment) error
	DeleteComment(ctx context.Context, id string) error
}

// BanRepository stores bans keyed by email.
type BanRepository interface {
	// GetBan returns nil, nil when the email is not banned.
	GetBan(ctx context.Context, email string) (*Ban, error)
	// CreateBan returns ErrAlreadyBanned when the email is already banned.
	CreateBan(ctx context.Context, b *Ban) error
}

// BanCache remembers ban lookups so every post and comment does not hit the
// database.
type BanCache interface {
	// GetBanStatus reports hit=false on a miss.
	GetBanStatus(ctx context.Context, email string) (status BanStatus, hit bool, err error)
	SetBanStatus(ctx context.Context, email string, status BanStatus) error
	InvalidateBanStatus(ctx context.Context, email string) error
}

// BanLookup answers "is this email banned" through the cache, falling back
// to the repository and filling the cache on a miss.
type BanLookup struct {
	repo  BanRepository
	cache BanCache
}

// NewBanLookup creates a BanLookup. cache may be nil.
func NewBanLookup(repo BanRepository, cache BanCache) *BanLookup {
	return &BanLookup{repo: repo, cache: cache}
}

// Status returns the ban standing of email. Cache errors are ignored.
func (l *BanLookup) Status(ctx context.Context, email string) (BanStatus, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return BanStatus{}, nil
	}

	if l.cache != nil {
		if status, hit, err := l.cache.GetBanStatus(ctx, email); err == nil && hit {
			return status, nil
		}
	}

	ban, err := l.repo.GetBan(ctx, email)
	if err != nil {
		return BanStatus{}, err
	}
	status := BanStatus{}
	if ban != nil {
		status = BanStatus{Banned: true, Reason: ban.Reason}
	}

	if l.cache != nil {
		_ = l.cache.SetBanStatus(ctx, email, status)
	}
	return status, nil
}

// Ensure returns ErrUserBanned when email is banned.
func (l *BanLookup) Ensure(ctx context.Context, email string) error {
	status, err := l.Status(ctx, email)
	if err != nil {
		return err
	}
	if status.Banned {
		return shared.ErrUserBanned
	}
	return nil
}
