// Package hostapi exposes the development host over HTTP.
package hostapi

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"resumind/internal/host"
	"resumind/internal/host/local"
	"resumind/internal/shared/server/middleware"
	"resumind/internal/shared/server/respond"
	"resumind/internal/shared/storage/kv"
	"resumind/internal/shared/storage/object"
)

const maxBodySize = 20 << 20 // 20MB

// Handler wires HTTP handlers to the host backend.
type Handler struct {
	Backend *local.Backend
	// Limit runs after authentication so buckets key on the user.
	Limit gin.HandlerFunc
}

// NewHandler constructs a Handler. limit may be nil.
func NewHandler(backend *local.Backend, limit gin.HandlerFunc) *Handler {
	return &Handler{Backend: backend, Limit: limit}
}

// RegisterRoutes attaches host routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	tokens := h.Backend.Tokens

	limit := h.limiter()

	authGroup := rg.Group("/auth", capability("auth"))
	authGroup.POST("/sign-in", limit, h.signIn)
	authGroup.POST("/sign-out", limit, h.signOut)
	authGroup.GET("/status", middleware.OptionalAuth(tokens), limit, h.status)
	authGroup.GET("/user", middleware.Auth(tokens), limit, h.user)

	fs := rg.Group("/fs", capability("fs"), middleware.Auth(tokens), limit)
	fs.PUT("/file", h.writeFile)
	fs.GET("/file", h.readFile)
	fs.DELETE("/file", h.deleteFile)
	fs.GET("/dir", h.readDir)
	fs.POST("/upload", h.upload)

	kvGroup := rg.Group("/kv", capability("kv"), middleware.Auth(tokens), limit)
	kvGroup.GET("/item", h.getValue)
	kvGroup.PUT("/item", h.setValue)
	kvGroup.DELETE("/item", h.deleteValue)
	kvGroup.GET("/items", h.listValues)
	kvGroup.DELETE("/items", h.flushValues)

	ai := rg.Group("/ai", capability("ai"), middleware.Auth(tokens), limit)
	ai.POST("/chat", h.chat)
	ai.POST("/img2txt", h.img2txt)
}

func (h *Handler) limiter() gin.HandlerFunc {
	if h.Limit == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return h.Limit
}

func capability(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.CapabilityKey, name)
		c.Next()
	}
}

func (h *Handler) identity(c *gin.Context) host.Identity {
	return host.Identity{
		ID:       middleware.UserIDFromContext(c),
		Username: middleware.UsernameFromContext(c),
		Name:     middleware.UserNameFromContext(c),
		Email:    middleware.UserEmailFromContext(c),
	}
}

type signInResponse struct {
	Token string        `json:"token"`
	User  host.Identity `json:"user"`
}

func (h *Handler) signIn(c *gin.Context) {
	token, err := h.Backend.IssueToken()
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "sign_in_failed", err.Error(), nil)
		return
	}
	respond.OK(c, signInResponse{Token: token, User: h.Backend.Identity})
}

// signOut has nothing to revoke; sessions are stateless tokens.
func (h *Handler) signOut(c *gin.Context) {
	respond.NoContent(c)
}

func (h *Handler) status(c *gin.Context) {
	respond.OK(c, gin.H{"signed_in": middleware.UserIDFromContext(c) != ""})
}

func (h *Handler) user(c *gin.Context) {
	respond.OK(c, h.identity(c))
}

func (h *Handler) writeFile(c *gin.Context) {
	path := c.Query("path")
	data, ok := readBody(c)
	if !ok {
		return
	}
	item, err := h.Backend.Files(middleware.UserIDFromContext(c)).Write(c.Request.Context(), path, data)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, item)
}

func (h *Handler) readFile(c *gin.Context) {
	blob, err := h.Backend.Files(middleware.UserIDFromContext(c)).Read(c.Request.Context(), c.Query("path"))
	if err != nil {
		writeError(c, err)
		return
	}
	respond.Blob(c, blob.Type, blob.Data)
}

func (h *Handler) deleteFile(c *gin.Context) {
	if err := h.Backend.Files(middleware.UserIDFromContext(c)).Delete(c.Request.Context(), c.Query("path")); err != nil {
		writeError(c, err)
		return
	}
	respond.NoContent(c)
}

func (h *Handler) readDir(c *gin.Context) {
	items, err := h.Backend.Files(middleware.UserIDFromContext(c)).ReadDir(c.Request.Context(), c.DefaultQuery("path", "/"))
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, gin.H{"items": items})
}

func (h *Handler) upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodySize)
	form, err := c.MultipartForm()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "multipart form is required", nil)
		return
	}
	headers := form.File["file"]
	if len(headers) == 0 {
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}

	files := make([]host.UploadFile, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
			return
		}
		files = append(files, host.UploadFile{Name: fh.Filename, Type: fh.Header.Get("Content-Type"), Data: data})
	}

	item, err := h.Backend.Files(middleware.UserIDFromContext(c)).Upload(c.Request.Context(), files)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.JSON(c, http.StatusCreated, item)
}

func (h *Handler) getValue(c *gin.Context) {
	key := c.Query("key")
	value, found, err := h.Backend.Values(middleware.UserIDFromContext(c)).Get(c.Request.Context(), key)
	if err != nil {
		writeError(c, err)
		return
	}
	if !found {
		respond.Error(c, http.StatusNotFound, "not_found", "key not found", nil)
		return
	}
	respond.OK(c, host.KVItem{Key: key, Value: value})
}

type setValueRequest struct {
	Value string `json:"value"`
}

func (h *Handler) setValue(c *gin.Context) {
	key := strings.TrimSpace(c.Query("key"))
	if key == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "key is required", nil)
		return
	}
	var req setValueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	ok, err := h.Backend.Values(middleware.UserIDFromContext(c)).Set(c.Request.Context(), key, req.Value)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, gin.H{"ok": ok})
}

func (h *Handler) deleteValue(c *gin.Context) {
	deleted, err := h.Backend.Values(middleware.UserIDFromContext(c)).Delete(c.Request.Context(), c.Query("key"))
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, gin.H{"deleted": deleted})
}

func (h *Handler) listValues(c *gin.Context) {
	withValues, _ := strconv.ParseBool(c.DefaultQuery("values", "false"))
	items, err := h.Backend.Values(middleware.UserIDFromContext(c)).List(c.Request.Context(), c.Query("pattern"), withValues)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, gin.H{"items": items})
}

func (h *Handler) flushValues(c *gin.Context) {
	ok, err := h.Backend.Values(middleware.UserIDFromContext(c)).Flush(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, gin.H{"ok": ok})
}

// ChatRequest is the body of POST /ai/chat.
type ChatRequest struct {
	Messages []host.ChatMessage `json:"messages"`
	Model    string             `json:"model,omitempty"`
}

func (h *Handler) chat(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodySize)
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Messages) == 0 {
		respond.Error(c, http.StatusBadRequest, "validation_error", "messages are required", nil)
		return
	}
	resp, err := h.Backend.Inference(middleware.UserIDFromContext(c)).Chat(c.Request.Context(), req.Messages, host.ChatOptions{Model: req.Model})
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, resp)
}

func (h *Handler) img2txt(c *gin.Context) {
	data, ok := readBody(c)
	if !ok {
		return
	}
	image := host.Blob{Data: data, Type: c.ContentType()}
	text, err := h.Backend.Inference(middleware.UserIDFromContext(c)).Img2Txt(c.Request.Context(), image)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, gin.H{"text": text})
}

func readBody(c *gin.Context) ([]byte, bool) {
	data, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodySize))
	if err != nil {
		respond.Error(c, http.StatusRequestEntityTooLarge, "validation_error", "request body too large", nil)
		return nil, false
	}
	return data, true
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, host.ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", err.Error(), nil)
	case errors.Is(err, host.ErrNotSignedIn):
		respond.Error(c, http.StatusUnauthorized, "unauthorized", err.Error(), nil)
	case errors.Is(err, object.ErrInvalidKey), errors.Is(err, kv.ErrInvalidPattern):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "host_error", err.Error(), nil)
	}
}
