package opportunity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegis-hub/aegis-portal/internal/domain/shared"
)

func TestNew(t *testing.T) {
	o, err := New(PublishParams{
		Title:     "Summer research on GNNs",
		Professor: "Dr. A. Sharma",
		Type:      TypeResearch,
		Deadline:  "2024-06-30",
		Tags:      " ML, ,Graphs ,",
	})
	require.NoError(t, err)

	assert.Equal(t, DefaultStipend, o.Stipend)
	assert.Equal(t, []string{"ML", "Graphs"}, o.Tags)
	assert.Equal(t, "Dr. A. Sharma", o.Professor)
	assert.Equal(t, "2024-06-30", o.Deadline)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(PublishParams{Title: " ", Deadline: "2024-06-30"})
	assert.True(t, shared.IsValidation(err))

	_, err = New(PublishParams{Title: "x", Deadline: "30/06/2024"})
	assert.True(t, shared.IsValidation(err))

	_, err = New(PublishParams{Title: "x", Deadline: "2024-06-30", Type: "Job"})
	assert.ErrorIs(t, err, shared.ErrInvalidOppType)
}

func TestParseTags(t *testing.T) {
	assert.Equal(t, []string{}, ParseTags(""))
	assert.Equal(t, []string{"a"}, ParseTags(" a "))
	assert.Equal(t, []string{"Go", "Distributed Systems"}, ParseTags("Go,Distributed Systems"))
}
