package reports

import (
	"context"
	"fmt"

	"ncfledger/internal/core/apperror"
	"ncfledger/internal/core/id"
	"ncfledger/internal/domain/assignment"
	"ncfledger/internal/domain/document"
	"ncfledger/internal/domain/owner"
	"ncfledger/pkg/logger"
)

// DocumentReader loads the documents referenced by assignments.
type DocumentReader interface {
	GetMany(ctx context.Context, ids []id.ID) (map[id.ID]*document.Document, error)
}

// Archive keeps a copy of every exported file.
type Archive interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
}

// Service builds and exports reports.
type Service struct {
	ledger    *assignment.Service
	documents DocumentReader
	owners    owner.Repository
	archive   Archive
}

// NewService creates a reports service. archive may be nil.
func NewService(ledger *assignment.Service, documents DocumentReader, owners owner.Repository, archive Archive) *Service {
	return &Service{
		ledger:    ledger,
		documents: documents,
		owners:    owners,
		archive:   archive,
	}
}

// Build joins the ledger window with the amounts and counterparties of
// posted documents. Assignments of drafts are left out.
func (s *Service) Build(ctx context.Context, filter Filter) (*Report, error) {
	if filter.Kind == "" {
		filter.Kind = Kind607
	}
	if _, ok := ParseKind(string(filter.Kind)); !ok {
		return nil, apperror.NewValidation("unknown report").
			WithDetail("field", "kind").
			WithDetail("value", filter.Kind)
	}

	o, err := s.owners.GetByID(ctx, filter.OwnerID)
	if err != nil {
		return nil, err
	}

	assignments, err := s.ledger.QueryByWindow(ctx, assignment.WindowQuery{
		OwnerID:       filter.OwnerID,
		From:          filter.From,
		To:            filter.To,
		DocumentTypes: filter.DocumentTypes,
	})
	if err != nil {
		return nil, err
	}

	ids := make([]id.ID, 0, len(assignments))
	for _, a := range assignments {
		ids = append(ids, a.DocumentID)
	}
	docs, err := s.documents.GetMany(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load documents: %w", err)
	}

	report := &Report{
		Kind:      filter.Kind,
		OwnerID:   o.ID,
		OwnerRNC:  o.RNC,
		OwnerName: o.ReportName(),
		From:      filter.From,
		To:        filter.To,
		Lines:     make([]Line, 0, len(assignments)),
	}

	for _, a := range assignments {
		d, ok := docs[a.DocumentID]
		if !ok {
			logger.Warn(ctx, "assignment without document in report window",
				"number", a.Number,
				"document_id", a.DocumentID)
			continue
		}
		if d.State != document.StatePosted {
			logger.Debug(ctx, "report skips unposted document",
				"number", a.Number,
				"document_id", a.DocumentID)
			continue
		}
		line := Line{
			Number:            a.Number,
			DocumentType:      a.DocumentType,
			TypeCode:          filter.Kind.TypeCode(a.DocumentType),
			IssuedAt:          a.IssuedAt,
			CounterpartyName:  d.CounterpartyName,
			CounterpartyTaxID: d.CounterpartyTaxID,
			Subtotal:          d.Subtotal,
			Tax:               d.Tax,
			Total:             d.Total,
			Currency:          d.Currency,
		}
		report.Totals.Subtotal = report.Totals.Subtotal.Add(line.Subtotal)
		report.Totals.Tax = report.Totals.Tax.Add(line.Tax)
		report.Totals.Total = report.Totals.Total.Add(line.Total)
		report.Lines = append(report.Lines, line)
	}

	return report, nil
}

// Export renders the report and, when an archive is configured, stores a
// copy under owner/period/filename.
func (s *Service) Export(ctx context.Context, r *Report, format Format) (*File, error) {
	var (
		data []byte
		err  error
	)
	f := &File{Name: FileName(r, format)}

	switch format {
	case FormatTXT:
		data, err = RenderTXT(r)
		f.ContentType = "text/plain; charset=utf-8"
	case FormatCSV:
		data, err = RenderCSV(r)
		f.ContentType = "text/csv; charset=utf-8"
	case FormatXLSX:
		data, err = RenderXLSX(r)
		f.ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return nil, apperror.NewValidation("unsupported export format").
			WithDetail("field", "format").
			WithDetail("value", format)
	}
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", format, err)
	}
	f.Data = data

	if s.archive != nil {
		key := fmt.Sprintf("%s/%s/%s", r.OwnerID, r.From.Format("200601"), f.Name)
		if err := s.archive.Put(ctx, key, f.Data, f.ContentType); err != nil {
			return nil, fmt.Errorf("archive report: %w", err)
		}
		logger.Info(ctx, "report archived", "key", key, "bytes", len(f.Data))
	}

	return f, nil
}
