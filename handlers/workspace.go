package handlers

import (
	"errors"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/docsummarizer/go-services/internal/apperr"
	"github.com/docsummarizer/go-services/internal/auth"
	"github.com/docsummarizer/go-services/internal/document"
	"github.com/docsummarizer/go-services/internal/workspace"
	"github.com/docsummarizer/go-services/pkg/middleware"
	"github.com/gin-gonic/gin"
)

// WorkspaceHandler exposes the signed-in user's workspace controller.
type WorkspaceHandler struct {
	workspaces *workspace.Registry
}

func NewWorkspaceHandler(ws *workspace.Registry) *WorkspaceHandler {
	return &WorkspaceHandler{workspaces: ws}
}

// Register expects rg to sit behind AuthMiddleware.
func (h *WorkspaceHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/me", h.Me)

	rg.GET("/workspace", h.Get)
	rg.PUT("/workspace/view", h.SetView)
	rg.DELETE("/workspace/error", h.DismissError)

	rg.GET("/documents", h.ListDocuments)
	rg.POST("/documents", h.Upload)
	rg.GET("/documents/:id/url", h.DocumentLink)
	rg.POST("/documents/:id/select", h.SelectDocument)
	rg.POST("/documents/:id/delete", h.RequestDelete)
	rg.POST("/documents/delete/confirm", h.ConfirmDelete)
	rg.POST("/documents/delete/cancel", h.CancelDelete)

	rg.POST("/messages", h.SendMessage)

	rg.GET("/chats", h.ListChats)
	rg.POST("/chats", h.SaveChat)
	rg.POST("/chats/:id/load", h.LoadChat)
	rg.PUT("/chats/:id", h.UpdateChat)
	rg.DELETE("/chats/:id", h.DeleteChat)
}

func (h *WorkspaceHandler) controller(c *gin.Context) *workspace.Controller {
	id := auth.FromClaims(middleware.Claims(c))
	return h.workspaces.Get(c.Request.Context(), id)
}

func (h *WorkspaceHandler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, h.controller(c).Identity())
}

func (h *WorkspaceHandler) Get(c *gin.Context) {
	c.JSON(http.StatusOK, h.controller(c).Snapshot())
}

func (h *WorkspaceHandler) SetView(c *gin.Context) {
	var req struct {
		View workspace.View `json:"view" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctrl := h.controller(c)
	if err := ctrl.SetView(req.View); err != nil {
		writeError(c, ctrl, err)
		return
	}
	c.JSON(http.StatusOK, ctrl.Snapshot())
}

func (h *WorkspaceHandler) DismissError(c *gin.Context) {
	ctrl := h.controller(c)
	ctrl.DismissError()
	c.Status(http.StatusNoContent)
}

func (h *WorkspaceHandler) ListDocuments(c *gin.Context) {
	s := h.controller(c).Snapshot()
	c.JSON(http.StatusOK, gin.H{"documents": s.Documents, "status": s.DocumentsStatus})
}

// maxUploadBody leaves room for multipart framing around a file at the size
// limit; anything larger is refused before it is spooled.
const maxUploadBody = document.MaxSizeBytes + 1<<20

// Upload takes a multipart form with a "file" part.
func (h *WorkspaceHandler) Upload(c *gin.Context) {
	if c.Request.ContentLength > maxUploadBody {
		tooLarge(c)
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBody)
	fh, err := c.FormFile("file")
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			tooLarge(c)
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	src, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read upload"})
		return
	}
	defer src.Close()

	ctrl := h.controller(c)
	d, err := ctrl.Upload(c.Request.Context(), document.File{
		Name:      fh.Filename,
		MimeType:  partMimeType(fh.Filename, fh.Header.Get("Content-Type")),
		SizeBytes: fh.Size,
		Content:   src,
	})
	if err != nil {
		writeError(c, ctrl, err)
		return
	}
	c.JSON(http.StatusCreated, d)
}

func tooLarge(c *gin.Context) {
	c.JSON(http.StatusRequestEntityTooLarge, gin.H{
		"error": document.ErrFileTooLarge.Error(),
		"kind":  apperr.Validation.String(),
	})
}

// extensionTypes covers the accepted formats, which the built-in mime table
// does not fully know on hosts without /etc/mime.types.
var extensionTypes = map[string]string{
	".pdf":  "application/pdf",
	".txt":  "text/plain",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// partMimeType trusts the part header unless it is missing or generic.
func partMimeType(name, header string) string {
	if header != "" && header != "application/octet-stream" {
		if mt, _, err := mime.ParseMediaType(header); err == nil {
			return mt
		}
		return header
	}
	ext := strings.ToLower(filepath.Ext(name))
	if mt, ok := extensionTypes[ext]; ok {
		return mt
	}
	if mt, _, err := mime.ParseMediaType(mime.TypeByExtension(ext)); err == nil {
		return mt
	}
	return header
}

// DocumentLink returns a URL the client can download the document from.
func (h *WorkspaceHandler) DocumentLink(c *gin.Context) {
	ctrl := h.controller(c)
	link, err := ctrl.DocumentLink(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, ctrl, err)
		return
	}
	resp := gin.H{"url": link.URL}
	if link.TTL > 0 {
		resp["expiresIn"] = int(link.TTL.Seconds())
	}
	c.JSON(http.StatusOK, resp)
}

func (h *WorkspaceHandler) SelectDocument(c *gin.Context) {
	ctrl := h.controller(c)
	if err := ctrl.SelectDocument(c.Param("id")); err != nil {
		writeError(c, ctrl, err)
		return
	}
	c.JSON(http.StatusOK, ctrl.Snapshot())
}

func (h *WorkspaceHandler) RequestDelete(c *gin.Context) {
	ctrl := h.controller(c)
	if !ctrl.RequestDeleteDocument(c.Param("id")) {
		writeError(c, ctrl, workspace.ErrUnknownDocument)
		return
	}
	c.JSON(http.StatusOK, ctrl.Snapshot().DeleteConfirmation)
}

func (h *WorkspaceHandler) ConfirmDelete(c *gin.Context) {
	ctrl := h.controller(c)
	if err := ctrl.ConfirmDelete(c.Request.Context()); err != nil {
		writeError(c, ctrl, err)
		return
	}
	c.JSON(http.StatusOK, ctrl.Snapshot())
}

func (h *WorkspaceHandler) CancelDelete(c *gin.Context) {
	ctrl := h.controller(c)
	ctrl.CancelDelete()
	c.JSON(http.StatusOK, ctrl.Snapshot().DeleteConfirmation)
}

// SendMessage returns right away; the reply shows up in a later snapshot.
func (h *WorkspaceHandler) SendMessage(c *gin.Context) {
	var req struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctrl := h.controller(c)
	if err := ctrl.SendMessage(req.Text); err != nil {
		writeError(c, ctrl, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"currentMessages": ctrl.Snapshot().CurrentMessages})
}

func (h *WorkspaceHandler) ListChats(c *gin.Context) {
	s := h.controller(c).Snapshot()
	c.JSON(http.StatusOK, gin.H{"chats": s.Chats, "status": s.ChatsStatus})
}

func (h *WorkspaceHandler) SaveChat(c *gin.Context) {
	ctrl := h.controller(c)
	id, err := ctrl.SaveChat(c.Request.Context())
	if err != nil {
		writeError(c, ctrl, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (h *WorkspaceHandler) LoadChat(c *gin.Context) {
	ctrl := h.controller(c)
	if err := ctrl.LoadChat(c.Param("id")); err != nil {
		writeError(c, ctrl, err)
		return
	}
	c.JSON(http.StatusOK, ctrl.Snapshot())
}

func (h *WorkspaceHandler) UpdateChat(c *gin.Context) {
	ctrl := h.controller(c)
	if err := ctrl.UpdateChat(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, ctrl, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *WorkspaceHandler) DeleteChat(c *gin.Context) {
	ctrl := h.controller(c)
	if err := ctrl.DeleteChat(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, ctrl, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// writeError answers collaborator failures with the controller's
// user-visible message and guard errors with their own text.
func writeError(c *gin.Context, ctrl *workspace.Controller, err error) {
	msg := err.Error()
	var ae *apperr.Error
	if errors.As(err, &ae) {
		if last := ctrl.Snapshot().LastError; last != "" {
			msg = last
		}
	}
	c.JSON(statusFor(err), gin.H{"error": msg, "kind": apperr.KindOf(err).String()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, workspace.ErrUploadInProgress), errors.Is(err, workspace.ErrNoPendingDelete):
		return http.StatusConflict
	case errors.Is(err, workspace.ErrUnknownDocument), errors.Is(err, workspace.ErrUnknownChat):
		return http.StatusNotFound
	case errors.Is(err, workspace.ErrEmptyMessage), errors.Is(err, workspace.ErrNoSelection),
		errors.Is(err, workspace.ErrNothingToSave), errors.Is(err, workspace.ErrUnknownView):
		return http.StatusBadRequest
	}
	switch apperr.KindOf(err) {
	case apperr.Validation:
		return http.StatusBadRequest
	case apperr.Authorization:
		return http.StatusForbidden
	case apperr.Transfer:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
