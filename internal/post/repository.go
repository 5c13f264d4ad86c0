// Package post manages user-scoped posts and their persistence.
package post

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ownerNamespace tags owner partition keys so the posts table could be shared
// with other entity kinds without ambiguity.
const ownerNamespace = "USER"

// OwnerKey is the composite partition key a post is filed under. The
// namespace lives in its own field so owner identifiers are never parsed
// back out of a concatenated string.
type OwnerKey struct {
	Namespace string
	ID        string
}

// NewOwnerKey returns the key for a caller identity in the user namespace.
func NewOwnerKey(id string) OwnerKey {
	return OwnerKey{Namespace: ownerNamespace, ID: id}
}

// String renders the key in its tagged form, e.g. "USER#alice". Used for logs only.
func (k OwnerKey) String() string {
	return k.Namespace + "#" + k.ID
}

// Post is a stored post record.
type Post struct {
	Owner     OwnerKey
	ID        string
	Title     string
	Body      string
	Image     *string
	Labels    []string
	CreatedAt time.Time
}

// ErrNotFound is returned when no post exists at the given owner/id pair.
var ErrNotFound = errors.New("post not found")

// ErrImageAttached is returned when a post already references an image object.
var ErrImageAttached = errors.New("post already has an image")

// Repository handles all post database operations.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository with the given connection pool.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Create mints a fresh post id, inserts the record with no image, and
// returns it. Ids are random UUIDs, so a primary-key collision would mean a
// broken generator; it is surfaced as a storage error, never retried.
func (r *Repository) Create(ctx context.Context, owner OwnerKey, title, body string, labels []string) (*Post, error) {
	if labels == nil {
		labels = []string{}
	}
	p := &Post{
		Owner:  owner,
		ID:     newPostID(),
		Title:  title,
		Body:   body,
		Labels: labels,
	}
	err := r.db.QueryRow(ctx,
		`INSERT INTO posts (owner_ns, owner_id, id, title, body, labels)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at`,
		owner.Namespace, owner.ID, p.ID, title, body, labels,
	).Scan(&p.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("post id collision: %w", err)
		}
		return nil, fmt.Errorf("create post: %w", err)
	}
	return p, nil
}

// GetByOwnerAndID fetches a single post addressed by its owner/id pair.
func (r *Repository) GetByOwnerAndID(ctx context.Context, owner OwnerKey, id string) (*Post, error) {
	p := &Post{}
	err := r.db.QueryRow(ctx,
		`SELECT owner_ns, owner_id, id, title, body, image, labels, created_at
		 FROM posts
		 WHERE owner_ns = $1 AND owner_id = $2 AND id = $3`,
		owner.Namespace, owner.ID, id,
	).Scan(&p.Owner.Namespace, &p.Owner.ID, &p.ID, &p.Title, &p.Body, &p.Image, &p.Labels, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}
	return p, nil
}

// ListByOwner returns every post filed under owner, in no particular order.
// An owner with no posts yields an empty slice.
func (r *Repository) ListByOwner(ctx context.Context, owner OwnerKey) ([]*Post, error) {
	rows, err := r.db.Query(ctx,
		`SELECT owner_ns, owner_id, id, title, body, image, labels, created_at
		 FROM posts
		 WHERE owner_ns = $1 AND owner_id = $2`,
		owner.Namespace, owner.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("list posts by owner: %w", err)
	}
	return scanPosts(rows)
}

// ListAll returns every post in the store regardless of owner. This is a full
// table scan with no bound — callers take on the cost knowingly.
func (r *Repository) ListAll(ctx context.Context) ([]*Post, error) {
	rows, err := r.db.Query(ctx,
		`SELECT owner_ns, owner_id, id, title, body, image, labels, created_at
		 FROM posts`,
	)
	if err != nil {
		return nil, fmt.Errorf("list all posts: %w", err)
	}
	return scanPosts(rows)
}

// SetImage associates an uploaded object key with a post. Only a post without
// an image can be updated; a second attach reports ErrImageAttached.
func (r *Repository) SetImage(ctx context.Context, owner OwnerKey, id, key string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE posts SET image = $4
		 WHERE owner_ns = $1 AND owner_id = $2 AND id = $3 AND image IS NULL`,
		owner.Namespace, owner.ID, id, key,
	)
	if err != nil {
		return fmt.Errorf("set post image: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Either the post is missing or its image is already set.
		if _, err := r.GetByOwnerAndID(ctx, owner, id); err != nil {
			return err
		}
		return ErrImageAttached
	}
	return nil
}

// Delete removes the post at the owner/id pair. Deleting a post that does not
// exist reports ErrNotFound, never silent success.
func (r *Repository) Delete(ctx context.Context, owner OwnerKey, id string) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM posts
		 WHERE owner_ns = $1 AND owner_id = $2 AND id = $3`,
		owner.Namespace, owner.ID, id,
	)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanPosts(rows pgx.Rows) ([]*Post, error) {
	defer rows.Close()

	posts := []*Post{}
	for rows.Next() {
		p := &Post{}
		if err := rows.Scan(&p.Owner.Namespace, &p.Owner.ID, &p.ID, &p.Title, &p.Body, &p.Image, &p.Labels, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read posts: %w", err)
	}
	return posts, nil
}

// newPostID mints a globally unique post identifier.
func newPostID() string {
	return uuid.NewString()
}

// isUniqueViolation checks whether an error is a PostgreSQL unique_violation (code 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
