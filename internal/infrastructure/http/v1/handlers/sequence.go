package handlers

import (
	"github.com/gin-gonic/gin"

	"ncfledger/internal/core/apperror"
	"ncfledger/internal/core/ncf"
	"ncfledger/internal/domain/assignment"
	"ncfledger/internal/domain/sequence"
	"ncfledger/internal/infrastructure/http/v1/dto"
)

// SequenceHandler exposes the sequence registry.
type SequenceHandler struct {
	*BaseHandler
	registry *sequence.Service
	ledger   *assignment.Service
}

// NewSequenceHandler creates a new sequence handler.
func NewSequenceHandler(base *BaseHandler, registry *sequence.Service, ledger *assignment.Service) *SequenceHandler {
	return &SequenceHandler{BaseHandler: base, registry: registry, ledger: ledger}
}

// Create handles POST /owners/:ownerId/sequences
func (h *SequenceHandler) Create(c *gin.Context) {
	spec, ok := h.bindSpec(c)
	if !ok {
		return
	}
	seq, err := h.registry.Create(c.Request.Context(), spec)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromSequence(seq, h.registry.Today()))
}

// Preview handles POST /owners/:ownerId/sequences/preview
func (h *SequenceHandler) Preview(c *gin.Context) {
	spec, ok := h.bindSpec(c)
	if !ok {
		return
	}
	p, err := h.registry.PreviewRange(spec)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, p)
}

// List handles GET /owners/:ownerId/sequences
func (h *SequenceHandler) List(c *gin.Context) {
	ownerID, ok := h.OwnerID(c)
	if !ok {
		return
	}
	var q dto.ListSequencesQuery
	if !h.BindQuery(c, &q) {
		return
	}

	filter := sequence.ListFilter{OwnerID: ownerID}
	if q.DocumentType != "" {
		dt, err := ncf.ParseDocumentType(q.DocumentType)
		if err != nil {
			h.Error(c, apperror.NewValidation("unknown document type").WithDetail("field", "documentType"))
			return
		}
		filter.DocumentType = dt
	}
	for _, s := range q.States {
		st, err := ncf.ParseState(s)
		if err != nil {
			h.Error(c, apperror.NewValidation("unknown state").WithDetail("field", "state").WithDetail("value", s))
			return
		}
		filter.States = append(filter.States, st)
	}

	seqs, err := h.registry.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	today := h.registry.Today()
	out := make([]dto.SequenceResponse, 0, len(seqs))
	for _, s := range seqs {
		out = append(out, dto.FromSequence(s, today))
	}
	List(c, out)
}

// Get handles GET /owners/:ownerId/sequences/:id
func (h *SequenceHandler) Get(c *gin.Context) {
	seq, ok := h.load(c)
	if !ok {
		return
	}
	h.OK(c, dto.FromSequence(seq, h.registry.Today()))
}

// Next handles GET /owners/:ownerId/sequences/:id/next
func (h *SequenceHandler) Next(c *gin.Context) {
	seq, ok := h.load(c)
	if !ok {
		return
	}
	p, err := h.registry.PreviewNext(c.Request.Context(), seq.ID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, p)
}

// SetState handles PUT /owners/:ownerId/sequences/:id/state
func (h *SequenceHandler) SetState(c *gin.Context) {
	seq, ok := h.load(c)
	if !ok {
		return
	}
	var req dto.SetStateRequest
	if !h.BindJSON(c, &req) {
		return
	}
	updated, err := h.registry.SetLifecycle(c.Request.Context(), seq.ID, ncf.State(req.State))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromSequence(updated, h.registry.Today()))
}

// Assignments handles GET /owners/:ownerId/sequences/:id/assignments
func (h *SequenceHandler) Assignments(c *gin.Context) {
	seq, ok := h.load(c)
	if !ok {
		return
	}
	items, err := h.ledger.BySequence(c.Request.Context(), seq.ID)
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

func (h *SequenceHandler) bindSpec(c *gin.Context) (sequence.Spec, bool) {
	ownerID, ok := h.OwnerID(c)
	if !ok {
		return sequence.Spec{}, false
	}
	var req dto.CreateSequenceRequest
	if !h.BindJSON(c, &req) {
		return sequence.Spec{}, false
	}
	spec, err := req.ToSpec(ownerID)
	if err != nil {
		h.Error(c, err)
		return sequence.Spec{}, false
	}
	return spec, true
}

// load returns the sequence named in the path if it belongs to the owner.
func (h *SequenceHandler) load(c *gin.Context) (*sequence.Sequence, bool) {
	ownerID, ok := h.OwnerID(c)
	if !ok {
		return nil, false
	}
	seqID, ok := h.ParamID(c, "id")
	if !ok {
		return nil, false
	}
	seq, err := h.registry.Get(c.Request.Context(), seqID)
	if err == nil && seq.OwnerID != ownerID {
		err = apperror.NewNotFound("ncf_sequence", seqID)
	}
	if err != nil {
		h.Error(c, err)
		return nil, false
	}
	return seq, true
}

