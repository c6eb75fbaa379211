package command

import (
	"context"
	"log/slog"
	"time"

	"github.com/aegis-hub/aegis-portal/internal/domain/community"
	"github.com/aegis-hub/aegis-portal/internal/domain/profile"
	"github.com/aegis-hub/aegis-portal/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// COMMUNITY COMMANDS
// All board writes share one handler since they share the ban lookup.
// ══════════════════════════════════════════════════════════════════════════════

// CommunityHandler handles writes to the discussion board.
type CommunityHandler struct {
	posts     community.PostRepository
	bans      community.BanRepository
	banCache  community.BanCache
	lookup    *community.BanLookup
	profiles  profile.Repository
	publisher shared.EventPublisher
	logger    *slog.Logger
	now       func() time.Time
}

// CommunityDeps holds the dependencies of CommunityHandler.
type CommunityDeps struct {
	Posts     community.PostRepository
	Bans      community.BanRepository
	BanCache  community.BanCache // optional
	Profiles  profile.Repository
	Publisher shared.EventPublisher
	Logger    *slog.Logger
}

// NewCommunityHandler creates a new CommunityHandler.
func NewCommunityHandler(deps CommunityDeps) *CommunityHandler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Publisher == nil {
		deps.Publisher = shared.NopPublisher{}
	}
	return &CommunityHandler{
		posts:     deps.Posts,
		bans:      deps.Bans,
		banCache:  deps.BanCache,
		lookup:    community.NewBanLookup(deps.Bans, deps.BanCache),
		profiles:  deps.Profiles,
		publisher: deps.Publisher,
		logger:    deps.Logger,
		now:       time.Now,
	}
}

func authorOf(a profile.Actor) community.Author {
	return community.Author{ID: a.ID, Name: a.Name, Email: a.Email, Role: string(a.Role)}
}

// CreatePostCommand writes a new post.
type CreatePostCommand struct {
	Actor   profile.Actor
	Title   string
	Content string
}

// CreatePost stores a post. Banned members are rejected.
func (h *CommunityHandler) CreatePost(ctx context.Context, cmd CreatePostCommand) (*community.Post, error) {
	if err := h.lookup.Ensure(ctx, cmd.Actor.Email); err != nil {
		return nil, err
	}

	post, err := community.NewPost(authorOf(cmd.Actor), cmd.Title, cmd.Content, h.now().UTC())
	if err != nil {
		return nil, err
	}
	if err := h.posts.CreatePost(ctx, post); err != nil {
		return nil, err
	}

	_ = h.publisher.Publish(shared.NewPostCreatedEvent(post.ID, post.AuthorID))
	return post, nil
}

// DeletePost removes a post and its comments. Moderators only.
func (h *CommunityHandler) DeletePost(ctx context.Context, actor profile.Actor, postID string) error {
	if !actor.Role.IsModerator() {
		return shared.ErrModeratorOnly
	}
	return h.posts.DeletePost(ctx, postID)
}

// FlagPost marks a post for moderator review.
func (h *CommunityHandler) FlagPost(ctx context.Context, actor profile.Actor, postID string) error {
	if err := h.lookup.Ensure(ctx, actor.Email); err != nil {
		return err
	}
	if err := h.posts.FlagPost(ctx, postID); err != nil {
		return err
	}
	_ = h.publisher.Publish(shared.NewPostFlaggedEvent(postID, actor.ID))
	return nil
}

// LikePost adds a like and returns the new total.
func (h *CommunityHandler) LikePost(ctx context.Context, actor profile.Actor, postID string) (int, error) {
	if err := h.lookup.Ensure(ctx, actor.Email); err != nil {
		return 0, err
	}
	return h.posts.LikePost(ctx, postID)
}

// BanAuthorCommand bans the author of a post.
type BanAuthorCommand struct {
	Actor  profile.Actor
	PostID string
	Reason string
}

// BanAuthor looks up the post author's email and bans it. Moderators only.
func (h *CommunityHandler) BanAuthor(ctx context.Context, cmd BanAuthorCommand) (*community.Ban, error) {
	if !cmd.Actor.Role.IsModerator() {
		return nil, shared.ErrModeratorOnly
	}

	post, err := h.posts.GetPost(ctx, cmd.PostID)
	if err != nil {
		return nil, err
	}
	author, err := h.profiles.GetByID(ctx, post.AuthorID)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, shared.ErrAuthorNotLocated
		}
		return nil, err
	}
	if author.ID == cmd.Actor.ID {
		return nil, shared.ErrCannotBanSelf
	}

	ban, err := community.NewBan(author.Email, cmd.Reason, cmd.Actor.Name, h.now().UTC())
	if err != nil {
		return nil, err
	}
	if err := h.bans.CreateBan(ctx, ban); err != nil {
		return nil, err
	}

	if h.banCache != nil {
		if err := h.banCache.InvalidateBanStatus(ctx, ban.Email); err != nil {
			h.logger.Warn("failed to invalidate ban cache", "error", err)
		}
	}

	_ = h.publisher.Publish(shared.NewUserBannedEvent(ban.Email, ban.Reason, cmd.Actor.ID))
	return ban, nil
}

// AddCommentCommand replies to a post.
type AddCommentCommand struct {
	Actor   profile.Actor
	PostID  string
	Content string
}

// AddComment stores a reply. Banned members are rejected.
func (h *CommunityHandler) AddComment(ctx context.Context, cmd AddCommentCommand) (*community.Comment, error) {
	if err := h.lookup.Ensure(ctx, cmd.Actor.Email); err != nil {
		return nil, err
	}

	comment, err := community.NewComment(cmd.PostID, authorOf(cmd.Actor), cmd.Content, h.now().UTC())
	if err != nil {
		return nil, err
	}
	if _, err := h.posts.GetPost(ctx, cmd.PostID); err != nil {
		return nil, err
	}
	if err := h.posts.CreateComment(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

// DeleteComment removes a reply. Moderators only.
func (h *CommunityHandler) DeleteComment(ctx context.Context, actor profile.Actor, commentID string) error {
	if !actor.Role.IsModerator() {
		return shared.ErrModeratorOnly
	}
	return h.posts.DeleteComment(ctx, commentID)
}
