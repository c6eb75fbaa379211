// Package community models the campus discussion board: posts, comments
// and bans issued by moderators.
package community

import (
	"strings"
	"time"

	"github.com/aegis-hub/aegis-portal/internal/domain/shared"
)

// DefaultBanReason is recorded when a moderator gives no reason.
const DefaultBanReason = "Violation of Citadel Protocols"

// Author identifies whoever writes a post or comment.
type Author struct {
	ID    string
	Name  string
	Email string
	Role  string
}

// ══════════════════════════════════════════════════════════════════════════════
// POST
// ══════════════════════════════════════════════════════════════════════════════

// Post is a board entry.
type Post struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	AuthorID   string    `json:"author_id"`
	AuthorName string    `json:"author_name"`
	AuthorRole string    `json:"author_role"`
	Likes      int       `json:"likes"`
	IsFlagged  bool      `json:"is_flagged"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewPost validates a post. Content is required; the title may be empty.
func NewPost(author Author, title, content string, now time.Time) (*Post, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, shared.Validation("community", "CreatePost", "content is required")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}
	return &Post{
		ID:         shared.NewID(),
		Title:      strings.TrimSpace(title),
		Content:    content,
		AuthorID:   author.ID,
		AuthorName: author.Name,
		AuthorRole: author.Role,
		CreatedAt:  now,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// COMMENT
// ══════════════════════════════════════════════════════════════════════════════

// Comment is a reply to a post.
type Comment struct {
	ID         string    `json:"id"`
	PostID     string    `json:"post_id"`
	Content    string    `json:"content"`
	AuthorID   string    `json:"author_id"`
	AuthorName string    `json:"author_name"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewComment trims content and rejects empty replies.
func NewComment(postID string, author Author, content string, now time.Time) (*Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, shared.ErrEmptyComment
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}
	return &Comment{
		ID:         shared.NewID(),
		PostID:     postID,
		Content:    content,
		AuthorID:   author.ID,
		AuthorName: author.Name,
		CreatedAt:  now,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// BAN
// ══════════════════════════════════════════════════════════════════════════════

// Ban excludes an email from posting, commenting and flagging.
type Ban struct {
	Email     string    `json:"email"`
	Reason    string    `json:"reason"`
	BannedBy  string    `json:"banned_by"`
	CreatedAt time.Time `json:"created_at"`
}

// NewBan normalizes the email and applies the default reason.
func NewBan(email, reason, bannedBy string, now time.Time) (*Ban, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, shared.ErrAuthorNotLocated
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = DefaultBanReason
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}
	return &Ban{Email: email, Reason: reason, BannedBy: bannedBy, CreatedAt: now}, nil
}

// NormalizeEmail lower-cases and trims an address for ban lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// BanStatus is what a member sees about their own standing.
type BanStatus struct {
	Banned bool   `json:"banned"`
	Reason string `json:"reason,omitempty"`
}
