package post

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/postagram/service/internal/storage"
)

// urlTTL bounds how long an issued image URL stays valid. Clients must not
// cache resolved URLs beyond this window.
const urlTTL = time.Hour

// ErrMissingOwner is returned when an operation requires a caller identity
// and none was supplied.
var ErrMissingOwner = errors.New("caller identity is required")

// ErrMissingKey is returned when an image attach carries no object key.
var ErrMissingKey = errors.New("object key is required")

// Store is the persistence surface the service depends on. *Repository is
// the production implementation.
type Store interface {
	Create(ctx context.Context, owner OwnerKey, title, body string, labels []string) (*Post, error)
	GetByOwnerAndID(ctx context.Context, owner OwnerKey, id string) (*Post, error)
	ListByOwner(ctx context.Context, owner OwnerKey) ([]*Post, error)
	ListAll(ctx context.Context) ([]*Post, error)
	SetImage(ctx context.Context, owner OwnerKey, id, key string) error
	Delete(ctx context.Context, owner OwnerKey, id string) error
}

// View is the externally visible shape of a post. The owner appears as the
// bare identifier and the image as a resolved, time-limited URL — internal
// partition tags and object keys never leave the service.
type View struct {
	Owner  string   `json:"user"`
	ID     string   `json:"id"`
	Title  string   `json:"title"`
	Body   string   `json:"body"`
	Image  *string  `json:"image"`
	Labels []string `json:"labels"`
}

// Service contains the business logic for post management. It is the only
// component enforcing ownership preconditions and coordinating the record
// store with the object store.
type Service struct {
	store   Store
	objects storage.ObjectStorage
}

// NewService creates a new post Service.
func NewService(store Store, objects storage.ObjectStorage) *Service {
	return &Service{store: store, objects: objects}
}

// Create persists a new post for owner. Labels start empty and the image is
// unset until an upload is attached.
func (s *Service) Create(ctx context.Context, owner, title, body string) (View, error) {
	if owner == "" {
		return View{}, ErrMissingOwner
	}

	p, err := s.store.Create(ctx, NewOwnerKey(owner), title, body, []string{})
	if err != nil {
		return View{}, fmt.Errorf("create post: %w", err)
	}
	return s.view(ctx, p), nil
}

// List returns views of every post filed under ownerFilter, or of all posts
// when ownerFilter is empty. Each referenced image is resolved to a
// time-limited URL; a post whose resolution fails is returned with a null
// image while the rest of the listing is unaffected. A store failure aborts
// the whole listing — there is no meaningful partial result.
func (s *Service) List(ctx context.Context, ownerFilter string) ([]View, error) {
	var (
		records []*Post
		err     error
	)
	if ownerFilter != "" {
		records, err = s.store.ListByOwner(ctx, NewOwnerKey(ownerFilter))
	} else {
		records, err = s.store.ListAll(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}

	views := make([]View, 0, len(records))
	for _, p := range records {
		views = append(views, s.view(ctx, p))
	}
	return views, nil
}

// Delete removes the post at (owner, id) along with its image object, if
// any. A wrong owner simply never finds the record: the lookup is
// owner-scoped, so existence of another owner's post is neither confirmed
// nor denied. The object delete is best-effort and attempted first — an
// orphaned object is harmless dead storage, a surviving record pointing at a
// deleted object would not be.
func (s *Service) Delete(ctx context.Context, owner, id string) error {
	if owner == "" {
		return ErrMissingOwner
	}

	key := NewOwnerKey(owner)
	p, err := s.store.GetByOwnerAndID(ctx, key, id)
	if err != nil {
		return err
	}

	if p.Image != nil {
		if err := s.objects.Delete(ctx, *p.Image); err != nil {
			log.Printf("post %s: image object delete failed, leaving orphan %q: %v", p.ID, *p.Image, err)
		}
	}

	return s.store.Delete(ctx, key, id)
}

// AttachImage associates an uploaded object key with an existing post and
// returns the refreshed view. A post keeps its first image for life: a
// second attach reports ErrImageAttached.
func (s *Service) AttachImage(ctx context.Context, owner, id, key string) (View, error) {
	if owner == "" {
		return View{}, ErrMissingOwner
	}
	if key == "" {
		return View{}, ErrMissingKey
	}

	ownerKey := NewOwnerKey(owner)
	if err := s.store.SetImage(ctx, ownerKey, id, key); err != nil {
		return View{}, err
	}

	p, err := s.store.GetByOwnerAndID(ctx, ownerKey, id)
	if err != nil {
		return View{}, fmt.Errorf("reload post after attach: %w", err)
	}
	return s.view(ctx, p), nil
}

// IsNotFound returns true when the error indicates a post was not found.
func (s *Service) IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// view maps a stored record to its external shape, resolving the image key
// to a retrieval URL. Resolution failure degrades the single view's image to
// null and is logged; it never propagates.
func (s *Service) view(ctx context.Context, p *Post) View {
	v := View{
		Owner:  p.Owner.ID,
		ID:     p.ID,
		Title:  p.Title,
		Body:   p.Body,
		Labels: p.Labels,
	}
	if v.Labels == nil {
		v.Labels = []string{}
	}
	if p.Image != nil {
		url, err := s.objects.PresignGet(ctx, *p.Image, urlTTL)
		if err != nil {
			log.Printf("post %s: image url resolution failed: %v", p.ID, err)
		} else {
			v.Image = &url
		}
	}
	return v
}
