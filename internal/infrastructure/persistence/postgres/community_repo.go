package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/aegis-hub/aegis-portal/internal/domain/community"
	"github.com/aegis-hub/aegis-portal/internal/domain/shared"
)

// CommunityRepository implements community.PostRepository and
// community.BanRepository using PostgreSQL.
type CommunityRepository struct {
	conn *Connection
}

// NewCommunityRepository creates a new CommunityRepository.
func NewCommunityRepository(conn *Connection) *CommunityRepository {
	return &CommunityRepository{conn: conn}
}

// -----------------------------------------------------------------------------
// Posts
// -----------------------------------------------------------------------------

const postColumns = `id::text, title, content, author_id::text, author_name, author_role, likes, is_flagged, created_at`

func scanPost(row interface{ Scan(...any) error }) (*community.Post, error) {
	var p community.Post
	err := row.Scan(&p.ID, &p.Title, &p.Content, &p.AuthorID, &p.AuthorName, &p.AuthorRole, &p.Likes, &p.IsFlagged, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListPosts returns a page of posts, newest first.
func (r *CommunityRepository) ListPosts(ctx context.Context, page shared.Pagination) ([]*community.Post, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	rows, err := r.conn.Pool().Query(ctx, `
		SELECT `+postColumns+` FROM posts
		ORDER BY created_at DESC, id
		LIMIT $1 OFFSET $2`, page.Limit(), page.Offset())
	if err != nil {
		return nil, mapError("community", "ListPosts", err, nil, nil)
	}
	defer rows.Close()

	out := make([]*community.Post, 0)
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, mapError("community", "ListPosts", err, nil, nil)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("community", "ListPosts", err, nil, nil)
	}
	return out, nil
}

// GetPost retrieves a post by id.
func (r *CommunityRepository) GetPost(ctx context.Context, id string) (*community.Post, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	p, err := scanPost(r.conn.Pool().QueryRow(ctx, `SELECT `+postColumns+` FROM posts WHERE id = $1`, id))
	if err != nil {
		return nil, mapError("community", "GetPost", err, shared.ErrPostNotFound, nil)
	}
	return p, nil
}

// CreatePost inserts a post.
func (r *CommunityRepository) CreatePost(ctx context.Context, p *community.Post) error {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	_, err := r.conn.Pool().Exec(ctx, `
		INSERT INTO posts (id, title, content, author_id, author_name, author_role, likes, is_flagged, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.ID, p.Title, p.Content, p.AuthorID, p.AuthorName, p.AuthorRole, p.Likes, p.IsFlagged, p.CreatedAt)
	return mapError("community", "CreatePost", err, nil, nil)
}

// DeletePost removes a post; comments go with it through the cascade.
func (r *CommunityRepository) DeletePost(ctx context.Context, id string) error {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	tag, err := r.conn.Pool().Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return mapError("community", "DeletePost", err, shared.ErrPostNotFound, nil)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrPostNotFound
	}
	return nil
}

// FlagPost marks a post for moderator attention.
func (r *CommunityRepository) FlagPost(ctx context.Context, id string) error {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	tag, err := r.conn.Pool().Exec(ctx, `UPDATE posts SET is_flagged = TRUE WHERE id = $1`, id)
	if err != nil {
		return mapError("community", "FlagPost", err, shared.ErrPostNotFound, nil)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrPostNotFound
	}
	return nil
}

// LikePost adds one like atomically.
func (r *CommunityRepository) LikePost(ctx context.Context, id string) (int, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	var likes int
	err := r.conn.Pool().QueryRow(ctx,
		`UPDATE posts SET likes = likes + 1 WHERE id = $1 RETURNING likes`, id).Scan(&likes)
	if err != nil {
		return 0, mapError("community", "LikePost", err, shared.ErrPostNotFound, nil)
	}
	return likes, nil
}

// -----------------------------------------------------------------------------
// Comments
// -----------------------------------------------------------------------------

// ListComments returns the replies to postID, oldest first.
func (r *CommunityRepository) ListComments(ctx context.Context, postID string) ([]*community.Comment, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	rows, err := r.conn.Pool().Query(ctx, `
		SELECT id::text, post_id::text, content, author_id::text, author_name, created_at
		FROM comments WHERE post_id = $1
		ORDER BY created_at, id`, postID)
	if err != nil {
		return nil, mapError("community", "ListComments", err, shared.ErrPostNotFound, nil)
	}
	comments, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*community.Comment, error) {
		var c community.Comment
		err := row.Scan(&c.ID, &c.PostID, &c.Content, &c.AuthorID, &c.AuthorName, &c.CreatedAt)
		return &c, err
	})
	if err != nil {
		return nil, mapError("community", "ListComments", err, nil, nil)
	}
	if comments == nil {
		comments = []*community.Comment{}
	}
	return comments, nil
}

// CreateComment inserts a reply. A missing post surfaces as ErrPostNotFound.
func (r *CommunityRepository) CreateComment(ctx context.Context, c *community.Comment) error {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	_, err := r.conn.Pool().Exec(ctx, `
		INSERT INTO comments (id, post_id, content, author_id, author_name, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ID, c.PostID, c.Content, c.AuthorID, c.AuthorName, c.CreatedAt)
	if IsForeignKeyViolation(err) {
		return shared.ErrPostNotFound
	}
	return mapError("community", "CreateComment", err, shared.ErrPostNotFound, nil)
}

// DeleteComment removes one reply.
func (r *CommunityRepository) DeleteComment(ctx context.Context, id string) error {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	tag, err := r.conn.Pool().Exec(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		return mapError("community", "DeleteComment", err, shared.ErrCommentNotFound, nil)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrCommentNotFound
	}
	return nil
}

// -----------------------------------------------------------------------------
// Bans
// -----------------------------------------------------------------------------

// GetBan returns the ban for email, or nil when there is none.
func (r *CommunityRepository) GetBan(ctx context.Context, email string) (*community.Ban, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	var b community.Ban
	err := r.conn.Pool().QueryRow(ctx, `
		SELECT email, reason, banned_by, created_at
		FROM banned_users WHERE email = $1`, community.NormalizeEmail(email)).
		Scan(&b.Email, &b.Reason, &b.BannedBy, &b.CreatedAt)
	if IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, mapError("community", "GetBan", err, nil, nil)
	}
	return &b, nil
}

// CreateBan stores a ban; the email primary key rejects repeats.
func (r *CommunityRepository) CreateBan(ctx context.Context, b *community.Ban) error {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	_, err := r.conn.Pool().Exec(ctx, `
		INSERT INTO banned_users (email, reason, banned_by, created_at)
		VALUES ($1, $2, $3, $4)`,
		community.NormalizeEmail(b.Email), b.Reason, b.BannedBy, b.CreatedAt)
	return mapError("community", "CreateBan", err, nil, shared.ErrAlreadyBanned)
}

var (
	_ community.PostRepository = (*CommunityRepository)(nil)
	_ community.BanRepository  = (*CommunityRepository)(nil)
)
