package handlers

import (
	"github.com/gin-gonic/gin"

	"ncfledger/internal/domain/owner"
	"ncfledger/internal/infrastructure/http/v1/dto"
)

// OwnerHandler handles issuing entity settings.
type OwnerHandler struct {
	*BaseHandler
	service *owner.Service
}

// NewOwnerHandler creates a new owner handler.
func NewOwnerHandler(base *BaseHandler, service *owner.Service) *OwnerHandler {
	return &OwnerHandler{BaseHandler: base, service: service}
}

// Create handles POST /owners
func (h *OwnerHandler) Create(c *gin.Context) {
	var req dto.CreateOwnerRequest
	if !h.BindJSON(c, &req) {
		return
	}
	o := req.ToOwner()
	if err := h.service.Create(c.Request.Context(), o); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromOwner(o))
}

// Get handles GET /owners/:ownerId
func (h *OwnerHandler) Get(c *gin.Context) {
	ownerID, ok := h.OwnerID(c)
	if !ok {
		return
	}
	o, err := h.service.Get(c.Request.Context(), ownerID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromOwner(o))
}

// List handles GET /owners
func (h *OwnerHandler) List(c *gin.Context) {
	owners, err := h.service.List(c.Request.Context(), c.Query("enabled") == "true")
	if err != nil {
		h.Error(c, err)
		return
	}
	out := make([]dto.OwnerResponse, 0, len(owners))
	for _, o := range owners {
		out = append(out, dto.FromOwner(o))
	}
	List(c, out)
}

// Update handles PUT /owners/:ownerId
func (h *OwnerHandler) Update(c *gin.Context) {
	ownerID, ok := h.OwnerID(c)
	if !ok {
		return
	}
	var req dto.UpdateOwnerRequest
	if !h.BindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	o, err := h.service.Get(ctx, ownerID)
	if err != nil {
		h.Error(c, err)
		return
	}
	req.ApplyTo(o)
	if err := h.service.Update(ctx, o); err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromOwner(o))
}
