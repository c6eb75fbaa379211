package query

import (
	"context"

	"github.com/aegis-hub/aegis-portal/internal/domain/community"
	"github.com/aegis-hub/aegis-portal/internal/domain/profile"
	"github.com/aegis-hub/aegis-portal/internal/domain/shared"
)

// CommunityHandler serves board reads.
type CommunityHandler struct {
	posts  community.PostRepository
	lookup *community.BanLookup
}

// NewCommunityHandler creates a new CommunityHandler. cache may be nil.
func NewCommunityHandler(posts community.PostRepository, bans community.BanRepository, cache community.BanCache) *CommunityHandler {
	return &CommunityHandler{posts: posts, lookup: community.NewBanLookup(bans, cache)}
}

// ListPosts returns posts newest first.
func (h *CommunityHandler) ListPosts(ctx context.Context, page, pageSize int) ([]*community.Post, error) {
	items, err := h.posts.ListPosts(ctx, shared.NewPagination(page, pageSize))
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*community.Post{}
	}
	return items, nil
}

// ListComments returns a post's comments oldest first.
func (h *CommunityHandler) ListComments(ctx context.Context, postID string) ([]*community.Comment, error) {
	if _, err := h.posts.GetPost(ctx, postID); err != nil {
		return nil, err
	}
	items, err := h.posts.ListComments(ctx, postID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*community.Comment{}
	}
	return items, nil
}

// BanStatus reports the caller's own standing.
func (h *CommunityHandler) BanStatus(ctx context.Context, actor profile.Actor) (community.BanStatus, error) {
	return h.lookup.Status(ctx, actor.Email)
}
