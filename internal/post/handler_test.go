package post

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appMiddleware "github.com/postagram/service/internal/middleware"
)

// newTestRouter mounts the post routes the same way cmd/api does.
func newTestRouter(store *fakeStore, objects *fakeObjects) *chi.Mux {
	svc := NewService(store, objects)
	h := NewHandler(svc, objects)

	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/posts", func(r chi.Router) {
			r.Get("/", h.List)
			r.Group(func(r chi.Router) {
				r.Use(appMiddleware.RequireIdentity)
				r.Post("/", h.Create)
				r.Delete("/{postID}", h.Delete)
				r.Put("/{postID}/image", h.AttachImage)
			})
		})
		r.Route("/uploads", func(r chi.Router) {
			r.Use(appMiddleware.RequireIdentity)
			r.Get("/sign", h.SignUpload)
		})
	})
	return r
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func doJSON(t *testing.T, r http.Handler, method, path, caller string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if caller != "" {
		req.Header.Set("Authorization", caller)
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	return rec, env
}

func TestCreateHandler(t *testing.T) {
	r := newTestRouter(newFakeStore(), &fakeObjects{})

	rec, env := doJSON(t, r, http.MethodPost, "/api/v1/posts", "alice",
		map[string]string{"title": "Hi", "body": "World"})
	require.Equal(t, http.StatusCreated, rec.Code)
	require.True(t, env.Success)

	var v View
	require.NoError(t, json.Unmarshal(env.Data, &v))
	assert.Equal(t, "alice", v.Owner)
	assert.NotEmpty(t, v.ID)
	assert.Equal(t, "Hi", v.Title)
	assert.Equal(t, "World", v.Body)
	assert.Nil(t, v.Image)
	assert.Equal(t, []string{}, v.Labels)
}

func TestCreateHandler_MissingIdentity(t *testing.T) {
	r := newTestRouter(newFakeStore(), &fakeObjects{})

	rec, env := doJSON(t, r, http.MethodPost, "/api/v1/posts", "",
		map[string]string{"title": "Hi", "body": "World"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, env.Success)
}

func TestCreateHandler_InvalidBody(t *testing.T) {
	r := newTestRouter(newFakeStore(), &fakeObjects{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/posts", bytes.NewBufferString("{not json"))
	req.Header.Set("Authorization", "alice")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListHandler_Filtering(t *testing.T) {
	store := newFakeStore()
	r := newTestRouter(store, &fakeObjects{})

	_, err := store.Create(context.Background(), NewOwnerKey("alice"), "a", "", nil)
	require.NoError(t, err)
	_, err = store.Create(context.Background(), NewOwnerKey("bob"), "b", "", nil)
	require.NoError(t, err)

	rec, env := doJSON(t, r, http.MethodGet, "/api/v1/posts?user=alice", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var views []View
	require.NoError(t, json.Unmarshal(env.Data, &views))
	require.Len(t, views, 1)
	assert.Equal(t, "alice", views[0].Owner)

	rec, env = doJSON(t, r, http.MethodGet, "/api/v1/posts", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &views))
	assert.Len(t, views, 2)

	rec, env = doJSON(t, r, http.MethodGet, "/api/v1/posts?user=carol", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &views))
	assert.Empty(t, views)
}

func TestDeleteHandler(t *testing.T) {
	store := newFakeStore()
	r := newTestRouter(store, &fakeObjects{})

	p, err := store.Create(context.Background(), NewOwnerKey("alice"), "Hi", "World", nil)
	require.NoError(t, err)

	// Another caller never learns whether the id exists.
	rec, _ := doJSON(t, r, http.MethodDelete, "/api/v1/posts/"+p.ID, "bob", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, env := doJSON(t, r, http.MethodDelete, "/api/v1/posts/"+p.ID, "alice", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)

	rec, _ = doJSON(t, r, http.MethodDelete, "/api/v1/posts/"+p.ID, "alice", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAttachImageHandler(t *testing.T) {
	store := newFakeStore()
	r := newTestRouter(store, &fakeObjects{})

	p, err := store.Create(context.Background(), NewOwnerKey("alice"), "pic", "", nil)
	require.NoError(t, err)

	rec, env := doJSON(t, r, http.MethodPut, "/api/v1/posts/"+p.ID+"/image", "alice",
		map[string]string{"key": "k1"})
	require.Equal(t, http.StatusOK, rec.Code)
	var v View
	require.NoError(t, json.Unmarshal(env.Data, &v))
	require.NotNil(t, v.Image)
	assert.Equal(t, "https://objects.local/k1?sig=test", *v.Image)

	rec, _ = doJSON(t, r, http.MethodPut, "/api/v1/posts/"+p.ID+"/image", "alice",
		map[string]string{"key": "k2"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, _ = doJSON(t, r, http.MethodPut, "/api/v1/posts/"+p.ID+"/image", "alice",
		map[string]string{"key": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = doJSON(t, r, http.MethodPut, "/api/v1/posts/missing/image", "alice",
		map[string]string{"key": "k3"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSignUploadHandler(t *testing.T) {
	r := newTestRouter(newFakeStore(), &fakeObjects{})

	rec, env := doJSON(t, r, http.MethodGet,
		"/api/v1/uploads/sign?filename=photo.jpg&filetype=image/jpeg&postId=p1", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var grant uploadGrantData
	require.NoError(t, json.Unmarshal(env.Data, &grant))
	assert.Equal(t, "p1/photo.jpg", grant.Key)
	assert.Equal(t, "image/jpeg", grant.ContentType)
	assert.Equal(t, 3600, grant.ExpiresIn)
	assert.Equal(t, "https://objects.local/p1/photo.jpg?sig=put", grant.UploadURL)

	rec, _ = doJSON(t, r, http.MethodGet, "/api/v1/uploads/sign?filename=photo.jpg", "alice", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = doJSON(t, r, http.MethodGet,
		"/api/v1/uploads/sign?filename=photo.jpg&filetype=image/jpeg&postId=p1", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
