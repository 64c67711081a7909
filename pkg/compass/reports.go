package compass

import (
	"context"
	"net/url"

	"github.com/pkg/errors"
)

// reportService implements the ReportService interface
type reportService struct {
	client *Client
}

// ListByTicker retrieves the filings found for a company
func (s *reportService) ListByTicker(ctx context.Context, ticker string) ([]*Report, error) {
	if ticker == "" {
		return nil, &ValidationError{Field: "ticker", Message: "required"}
	}

	var result struct {
		Ticker  string    `json:"ticker"`
		Reports []*Report `json:"reports"`
		Total   int       `json:"total"`
	}

	if err := s.client.Get(ctx, "/parser/reports/"+url.PathEscape(ticker), &result); err != nil {
		return nil, errors.Wrapf(err, "failed to fetch reports for %s", ticker)
	}

	return result.Reports, nil
}
