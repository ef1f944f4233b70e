package v1

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ncfledger/internal/app"
	"ncfledger/internal/core/apperror"
	"ncfledger/internal/domain/reports"
	"ncfledger/internal/infrastructure/http/v1/dto"
	"ncfledger/internal/infrastructure/storage/memory"
)

type apiClient struct {
	t      *testing.T
	router *gin.Engine
}

func newAPI(t *testing.T) *apiClient {
	t.Helper()
	svc := app.NewServices(app.MemoryBackend(memory.New()), app.Options{})
	return &apiClient{t: t, router: NewRouter(RouterConfig{Services: svc, Version: "test"})}
}

func (a *apiClient) do(method, path string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Actor-ID", "tester")
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (a *apiClient) createOwner(name string) dto.OwnerResponse {
	a.t.Helper()
	w := a.do(http.MethodPost, "/api/v1/owners", map[string]any{"name": name, "rnc": "131234567"})
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[dto.OwnerResponse](a.t, w)
}

func (a *apiClient) createSequence(ownerID, documentType string, start, end int64) dto.SequenceResponse {
	a.t.Helper()
	w := a.do(http.MethodPost, "/api/v1/owners/"+ownerID+"/sequences", map[string]any{
		"documentType": documentType,
		"rangeStart":   start,
		"rangeEnd":     end,
		"validFrom":    time.Now().Format(dto.DateLayout),
		"activate":     true,
	})
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[dto.SequenceResponse](a.t, w)
}

func (a *apiClient) createDocument(ownerID, documentType string) dto.DocumentResponse {
	a.t.Helper()
	w := a.do(http.MethodPost, "/api/v1/owners/"+ownerID+"/documents", map[string]any{
		"documentType":      documentType,
		"reference":         "INV-1",
		"counterpartyName":  "Cliente | Uno",
		"counterpartyTaxId": "101000001",
		"subtotal":          "1000",
		"tax":               "180",
		"total":             "1180",
	})
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[dto.DocumentResponse](a.t, w)
}

func TestHealthEndpoints(t *testing.T) {
	api := newAPI(t)

	w := api.do(http.MethodGet, "/health/live", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = api.do(http.MethodGet, "/health/ready", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")

	w = api.do(http.MethodGet, "/health/info", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"version":"test"`)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestPostDocumentAssignsNCFAndExports607(t *testing.T) {
	api := newAPI(t)
	o := api.createOwner("Comercial Caribe SRL")
	seq := api.createSequence(o.ID, "invoice", 1, 10)
	assert.Equal(t, "B01", seq.Prefix)
	assert.Equal(t, "active", seq.State)

	doc := api.createDocument(o.ID, "invoice")
	assert.Equal(t, "draft", doc.State)

	w := api.do(http.MethodPost, "/api/v1/owners/"+o.ID+"/documents/"+doc.ID+"/post", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	posted := decode[dto.DocumentResponse](t, w)
	assert.Equal(t, "posted", posted.State)
	assert.Equal(t, "B0100000001", posted.NCF)
	assert.False(t, posted.NeedsManualNCF)

	w = api.do(http.MethodGet, "/api/v1/owners/"+o.ID+"/assignments/B0100000001", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	a := decode[dto.AssignmentResponse](t, w)
	assert.Equal(t, doc.ID, a.DocumentID)
	assert.Equal(t, seq.ID, a.SequenceID)

	w = api.do(http.MethodGet, "/api/v1/owners/"+o.ID+"/sequences/"+seq.ID+"/next", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "B0100000002")

	today := time.Now().Format(dto.DateLayout)
	w = api.do(http.MethodGet, "/api/v1/owners/"+o.ID+"/assignments?from="+today+"&to="+today, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	window := decode[dto.ListResponse[dto.AssignmentResponse]](t, w)
	require.Equal(t, 1, window.Count)
	assert.Equal(t, "B0100000001", window.Items[0].Number)

	w = api.do(http.MethodGet, "/api/v1/owners/"+o.ID+"/reports/607?from="+today+"&to="+today+"&format=txt", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/plain"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "DGII_607_131234567_")
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "607|131234567|"))
	assert.True(t, strings.HasPrefix(lines[1], "B0100000001|01|"))
	assert.Contains(t, lines[1], "|1000.00|180.00|1180.00")

	w = api.do(http.MethodPost, "/api/v1/owners/"+o.ID+"/documents/"+doc.ID+"/ncf", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, apperror.CodeAlreadyAssigned, decode[dto.ErrorResponse](t, w).Code)
}

func TestReportsListOnlyPostedDocuments(t *testing.T) {
	api := newAPI(t)
	o := api.createOwner("Reportes SRL")
	api.createSequence(o.ID, "invoice", 1, 10)

	posted := api.createDocument(o.ID, "invoice")
	w := api.do(http.MethodPost, "/api/v1/owners/"+o.ID+"/documents/"+posted.ID+"/post", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	draft := api.createDocument(o.ID, "invoice")
	w = api.do(http.MethodPost, "/api/v1/owners/"+o.ID+"/documents/"+draft.ID+"/ncf", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	today := time.Now().Format(dto.DateLayout)
	w = api.do(http.MethodGet, "/api/v1/owners/"+o.ID+"/reports/606?from="+today+"&to="+today, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	r := decode[reports.Report](t, w)
	assert.Equal(t, reports.Kind606, r.Kind)
	require.Len(t, r.Lines, 1)
	assert.Equal(t, "B0100000001", r.Lines[0].Number)
	assert.Equal(t, "31", r.Lines[0].TypeCode)

	w = api.do(http.MethodGet, "/api/v1/owners/"+o.ID+"/reports/606?from="+today+"&to="+today+"&format=txt", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "DGII_606_131234567_")
	assert.True(t, strings.HasPrefix(w.Body.String(), "606|131234567|"))

	w = api.do(http.MethodGet, "/api/v1/owners/"+o.ID+"/reports/608?from="+today+"&to="+today, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPostWithoutSequenceIsRefused(t *testing.T) {
	api := newAPI(t)
	o := api.createOwner("Sin Secuencia SRL")
	doc := api.createDocument(o.ID, "credit_note")

	w := api.do(http.MethodPost, "/api/v1/owners/"+o.ID+"/documents/"+doc.ID+"/post", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	resp := decode[dto.ErrorResponse](t, w)
	assert.Equal(t, apperror.CodeNoEligibleSequence, resp.Code)
	assert.Equal(t, "credit_note", resp.Details["document_type"])

	w = api.do(http.MethodGet, "/api/v1/owners/"+o.ID+"/documents/"+doc.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "draft", decode[dto.DocumentResponse](t, w).State)
}

func TestDepletedSequenceIsReported(t *testing.T) {
	api := newAPI(t)
	o := api.createOwner("Rango Corto SRL")
	api.createSequence(o.ID, "invoice_consumer", 1, 2)

	for _, want := range []string{"B0200000001", "B0200000002"} {
		doc := api.createDocument(o.ID, "invoice_consumer")
		w := api.do(http.MethodPost, "/api/v1/owners/"+o.ID+"/documents/"+doc.ID+"/ncf", nil)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		assert.Equal(t, want, decode[dto.AssignmentResponse](t, w).Number)
	}

	doc := api.createDocument(o.ID, "invoice_consumer")
	w := api.do(http.MethodPost, "/api/v1/owners/"+o.ID+"/documents/"+doc.ID+"/ncf", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, apperror.CodeSequenceDepleted, decode[dto.ErrorResponse](t, w).Code)
}

func TestOtherOwnersSequenceIsNotFound(t *testing.T) {
	api := newAPI(t)
	a := api.createOwner("Empresa A")
	b := api.createOwner("Empresa B")
	seq := api.createSequence(a.ID, "invoice", 1, 100)

	w := api.do(http.MethodGet, "/api/v1/owners/"+b.ID+"/sequences/"+seq.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = api.do(http.MethodGet, "/api/v1/owners/"+a.ID+"/sequences/"+seq.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[dto.SequenceResponse](t, w)
	assert.Equal(t, int64(100), got.Stats.Available)
}

func TestSequenceValidationAndBadIDs(t *testing.T) {
	api := newAPI(t)
	o := api.createOwner("Validaciones SRL")

	w := api.do(http.MethodPost, "/api/v1/owners/"+o.ID+"/sequences", map[string]any{
		"documentType": "invoice",
		"rangeStart":   10,
		"rangeEnd":     5,
		"validFrom":    time.Now().Format(dto.DateLayout),
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperror.CodeValidation, decode[dto.ErrorResponse](t, w).Code)

	w = api.do(http.MethodGet, "/api/v1/owners/not-a-uuid/sequences", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(http.MethodGet, "/api/v1/owners/"+o.ID+"/sequences?state=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateOwnerRequiresCurrentVersion(t *testing.T) {
	api := newAPI(t)
	o := api.createOwner("Versionada SRL")

	w := api.do(http.MethodPut, "/api/v1/owners/"+o.ID, map[string]any{
		"name":    "Versionada SRL",
		"version": o.Version,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, o.Version+1, decode[dto.OwnerResponse](t, w).Version)

	w = api.do(http.MethodPut, "/api/v1/owners/"+o.ID, map[string]any{
		"name":    "Versionada SRL",
		"version": o.Version,
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}
