package post

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/postagram/service/internal/middleware"
	"github.com/postagram/service/internal/response"
	"github.com/postagram/service/internal/storage"
)

// Handler holds HTTP handlers for post endpoints.
type Handler struct {
	svc     *Service
	objects storage.ObjectStorage
}

// NewHandler creates a new post Handler. The object storage is used only to
// mint upload grants; everything else goes through the service.
func NewHandler(svc *Service, objects storage.ObjectStorage) *Handler {
	return &Handler{svc: svc, objects: objects}
}

type createRequest struct {
	Title string `json:"title" example:"Hi"`
	Body  string `json:"body"  example:"World"`
}

type attachImageRequest struct {
	Key string `json:"key" example:"e7eedc79-0707-4fe4-8734-526b7ef13a7b/photo.jpg"`
}

type uploadGrantData struct {
	UploadURL   string `json:"uploadUrl"   example:"http://localhost:9000/post-images/..."`
	Key         string `json:"key"         example:"e7eedc79-0707-4fe4-8734-526b7ef13a7b/photo.jpg"`
	ContentType string `json:"contentType" example:"image/jpeg"`
	ExpiresIn   int    `json:"expiresIn"   example:"3600"`
}

// Create godoc
//
//	@Summary		Create a post
//	@Description	Creates a post owned by the caller. The image starts null and labels start empty.
//	@Tags			posts
//	@Accept			json
//	@Produce		json
//	@Security		CallerAuth
//	@Param			request	body		createRequest	true	"Post content"
//	@Success		201		{object}	response.Envelope{data=View}
//	@Failure		400		{object}	response.Envelope
//	@Failure		401		{object}	response.Envelope
//	@Failure		500		{object}	response.Envelope
//	@Router			/posts [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	owner, _ := r.Context().Value(middleware.CallerIDKey).(string)

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	v, err := h.svc.Create(r.Context(), owner, req.Title, req.Body)
	if errors.Is(err, ErrMissingOwner) {
		response.Unauthorized(w, "authorization header required")
		return
	}
	if err != nil {
		response.InternalError(w)
		return
	}

	response.Created(w, v)
}

// List godoc
//
//	@Summary		List posts
//	@Description	Returns all posts, or only those of the given user. Image keys are resolved to time-limited URLs.
//	@Tags			posts
//	@Produce		json
//	@Param			user	query		string	false	"Only return posts owned by this user"
//	@Success		200		{object}	response.Envelope{data=[]View}
//	@Failure		500		{object}	response.Envelope
//	@Router			/posts [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	views, err := h.svc.List(r.Context(), r.URL.Query().Get("user"))
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, views)
}

// Delete godoc
//
//	@Summary		Delete a post
//	@Description	Deletes the caller's post and, best-effort, its image object. Another owner's post by the same id is reported as not found.
//	@Tags			posts
//	@Produce		json
//	@Security		CallerAuth
//	@Param			postID	path		string	true	"Post id"
//	@Success		200		{object}	response.Envelope
//	@Failure		401		{object}	response.Envelope
//	@Failure		404		{object}	response.Envelope
//	@Failure		500		{object}	response.Envelope
//	@Router			/posts/{postID} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	owner, _ := r.Context().Value(middleware.CallerIDKey).(string)
	id := chi.URLParam(r, "postID")

	err := h.svc.Delete(r.Context(), owner, id)
	if errors.Is(err, ErrMissingOwner) {
		response.Unauthorized(w, "authorization header required")
		return
	}
	if h.svc.IsNotFound(err) {
		response.NotFound(w, "post not found")
		return
	}
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, nil)
}

// AttachImage godoc
//
//	@Summary		Attach an uploaded image
//	@Description	Associates an uploaded object key with the caller's post. A post keeps its first image; a second attach is rejected.
//	@Tags			posts
//	@Accept			json
//	@Produce		json
//	@Security		CallerAuth
//	@Param			postID	path		string				true	"Post id"
//	@Param			request	body		attachImageRequest	true	"Object key returned by the upload grant"
//	@Success		200		{object}	response.Envelope{data=View}
//	@Failure		400		{object}	response.Envelope
//	@Failure		401		{object}	response.Envelope
//	@Failure		404		{object}	response.Envelope
//	@Failure		409		{object}	response.Envelope
//	@Failure		500		{object}	response.Envelope
//	@Router			/posts/{postID}/image [put]
func (h *Handler) AttachImage(w http.ResponseWriter, r *http.Request) {
	owner, _ := r.Context().Value(middleware.CallerIDKey).(string)
	id := chi.URLParam(r, "postID")

	var req attachImageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	v, err := h.svc.AttachImage(r.Context(), owner, id, req.Key)
	switch {
	case errors.Is(err, ErrMissingOwner):
		response.Unauthorized(w, "authorization header required")
	case errors.Is(err, ErrMissingKey):
		response.BadRequest(w, "object key is required")
	case h.svc.IsNotFound(err):
		response.NotFound(w, "post not found")
	case errors.Is(err, ErrImageAttached):
		response.Conflict(w, "post already has an image")
	case err != nil:
		response.InternalError(w)
	default:
		response.OK(w, v)
	}
}

// SignUpload godoc
//
//	@Summary		Mint an upload grant
//	@Description	Returns a time-limited presigned PUT URL for uploading an image. The returned key is what gets attached to the post afterwards.
//	@Tags			uploads
//	@Produce		json
//	@Security		CallerAuth
//	@Param			filename	query		string	true	"File name"
//	@Param			filetype	query		string	true	"Content type the client will upload with"
//	@Param			postId		query		string	true	"Post the upload is destined for"
//	@Success		200			{object}	response.Envelope{data=uploadGrantData}
//	@Failure		400			{object}	response.Envelope
//	@Failure		401			{object}	response.Envelope
//	@Failure		500			{object}	response.Envelope
//	@Router			/uploads/sign [get]
func (h *Handler) SignUpload(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filename := q.Get("filename")
	filetype := q.Get("filetype")
	postID := q.Get("postId")
	if filename == "" || filetype == "" || postID == "" {
		response.BadRequest(w, "filename, filetype and postId are required")
		return
	}

	key := postID + "/" + filename
	url, err := h.objects.PresignPut(r.Context(), key, urlTTL)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, uploadGrantData{
		UploadURL:   url,
		Key:         key,
		ContentType: filetype,
		ExpiresIn:   int(urlTTL.Seconds()),
	})
}
