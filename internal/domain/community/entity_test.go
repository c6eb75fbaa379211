package community

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegis-hub/aegis-portal/internal/domain/shared"
)

var author = Author{ID: "u1", Name: "Arjun Mehta", Email: "b22100@students.iitmandi.ac.in", Role: "Student"}

func TestNewPost(t *testing.T) {
	p, err := NewPost(author, " Lost ID card ", " Near the library ", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, "Lost ID card", p.Title)
	assert.Equal(t, "Near the library", p.Content)
	assert.Equal(t, "Student", p.AuthorRole)
	assert.Zero(t, p.Likes)
	assert.False(t, p.IsFlagged)
	assert.False(t, p.CreatedAt.IsZero())

	_, err = NewPost(author, "title only", "   ", time.Time{})
	assert.True(t, shared.IsValidation(err))
}

func TestNewComment(t *testing.T) {
	c, err := NewComment("p1", author, "  +1  ", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, "+1", c.Content)
	assert.Equal(t, "p1", c.PostID)

	_, err = NewComment("p1", author, " \n\t ", time.Time{})
	assert.ErrorIs(t, err, shared.ErrEmptyComment)
}

func TestNewBan(t *testing.T) {
	b, err := NewBan(" B22100@Students.IITMandi.ac.in ", "", "Chief Warden", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, "b22100@students.iitmandi.ac.in", b.Email)
	assert.Equal(t, DefaultBanReason, b.Reason)
	assert.Equal(t, "Chief Warden", b.BannedBy)

	b, err = NewBan("x@y.z", "spam", "mod", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, "spam", b.Reason)

	_, err = NewBan("  ", "", "mod", time.Time{})
	assert.ErrorIs(t, err, shared.ErrAuthorNotLocated)
}
