package handlers

import (
	"github.com/gin-gonic/gin"

	"ncfledger/internal/domain/assignment"
	"ncfledger/internal/infrastructure/http/v1/dto"
)

// AssignmentHandler exposes the ledger read side.
type AssignmentHandler struct {
	*BaseHandler
	ledger *assignment.Service
}

// NewAssignmentHandler creates a new assignment handler.
func NewAssignmentHandler(base *BaseHandler, ledger *assignment.Service) *AssignmentHandler {
	return &AssignmentHandler{BaseHandler: base, ledger: ledger}
}

// Window handles GET /owners/:ownerId/assignments?from=&to=&documentType=
func (h *AssignmentHandler) Window(c *gin.Context) {
	ownerID, ok := h.OwnerID(c)
	if !ok {
		return
	}
	var q dto.WindowQuery
	if !h.BindQuery(c, &q) {
		return
	}
	from, to, types, err := q.Parse()
	if err != nil {
		h.Error(c, err)
		return
	}

	items, err := h.ledger.QueryByWindow(c.Request.Context(), assignment.WindowQuery{
		OwnerID:       ownerID,
		From:          from,
		To:            to,
		DocumentTypes: types,
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	out := make([]dto.AssignmentResponse, 0, len(items))
	for _, a := range items {
		out = append(out, dto.FromAssignment(a))
	}
	List(c, out)
}

// ByNumber handles GET /owners/:ownerId/assignments/:number
func (h *AssignmentHandler) ByNumber(c *gin.Context) {
	ownerID, ok := h.OwnerID(c)
	if !ok {
		return
	}
	a, err := h.ledger.FindByNumber(c.Request.Context(), ownerID, c.Param("number"))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromAssignment(a))
}
