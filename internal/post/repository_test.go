package post

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPostID_Unique(t *testing.T) {
	const n = 10000
	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		id := newPostID()
		require.NotEmpty(t, id)
		_, dup := seen[id]
		require.False(t, dup, "generated ids must be pairwise distinct, got duplicate %q", id)
		seen[id] = struct{}{}
	}
}

func TestOwnerKey(t *testing.T) {
	k := NewOwnerKey("alice")
	assert.Equal(t, "USER", k.Namespace)
	assert.Equal(t, "alice", k.ID)
	assert.Equal(t, "USER#alice", k.String())

	// Identifiers containing the separator stay intact: the namespace is a
	// field, never parsed back out of the string form.
	odd := NewOwnerKey("team#42")
	assert.Equal(t, "team#42", odd.ID)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.True(t, isUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, isUniqueViolation(errors.New("connection refused")))
}
