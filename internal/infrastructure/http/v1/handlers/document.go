package handlers

import (
	"github.com/gin-gonic/gin"

	"ncfledger/internal/core/apperror"
	"ncfledger/internal/domain/document"
	"ncfledger/internal/infrastructure/http/v1/dto"
)

// DocumentHandler handles fiscal documents and their numbering.
type DocumentHandler struct {
	*BaseHandler
	service *document.Service
}

// NewDocumentHandler creates a new document handler.
func NewDocumentHandler(base *BaseHandler, service *document.Service) *DocumentHandler {
	return &DocumentHandler{BaseHandler: base, service: service}
}

// Create handles POST /owners/:ownerId/documents
func (h *DocumentHandler) Create(c *gin.Context) {
	ownerID, ok := h.OwnerID(c)
	if !ok {
		return
	}
	var req dto.CreateDocumentRequest
	if !h.BindJSON(c, &req) {
		return
	}
	d, err := req.ToDocument(ownerID)
	if err != nil {
		h.Error(c, err)
		return
	}
	if err := h.service.Create(c.Request.Context(), d); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromDocument(d))
}

// List handles GET /owners/:ownerId/documents
func (h *DocumentHandler) List(c *gin.Context) {
	ownerID, ok := h.OwnerID(c)
	if !ok {
		return
	}
	docs, err := h.service.List(c.Request.Context(), ownerID, h.ParseIntQuery(c, "limit", 100))
	if err != nil {
		h.Error(c, err)
		return
	}
	out := make([]dto.DocumentResponse, 0, len(docs))
	for _, d := range docs {
		out = append(out, dto.FromDocument(d))
	}
	List(c, out)
}

// Get handles GET /owners/:ownerId/documents/:id
func (h *DocumentHandler) Get(c *gin.Context) {
	d, ok := h.load(c)
	if !ok {
		return
	}
	h.OK(c, dto.FromDocument(d))
}

// Delete handles DELETE /owners/:ownerId/documents/:id
func (h *DocumentHandler) Delete(c *gin.Context) {
	d, ok := h.load(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), d.ID); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

// Post handles POST /owners/:ownerId/documents/:id/post
func (h *DocumentHandler) Post(c *gin.Context) {
	d, ok := h.load(c)
	if !ok {
		return
	}
	posted, err := h.service.Post(c.Request.Context(), d.ID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromDocument(posted))
}

// AssignNCF handles POST /owners/:ownerId/documents/:id/ncf
func (h *DocumentHandler) AssignNCF(c *gin.Context) {
	d, ok := h.load(c)
	if !ok {
		return
	}
	var req dto.AllocateRequest
	if !h.BindOptionalJSON(c, &req) {
		return
	}
	asOf, err := dto.ParseDate("asOf", req.AsOf)
	if err != nil {
		h.Error(c, err)
		return
	}

	a, err := h.service.AssignNCF(c.Request.Context(), d.ID, asOf)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromAssignment(a))
}

// load returns the document named in the path if it belongs to the owner.
func (h *DocumentHandler) load(c *gin.Context) (*document.Document, bool) {
	ownerID, ok := h.OwnerID(c)
	if !ok {
		return nil, false
	}
	docID, ok := h.ParamID(c, "id")
	if !ok {
		return nil, false
	}
	d, err := h.service.Get(c.Request.Context(), docID)
	if err == nil && d.OwnerID != ownerID {
		err = apperror.NewNotFound("document", docID)
	}
	if err != nil {
		h.Error(c, err)
		return nil, false
	}
	return d, true
}
