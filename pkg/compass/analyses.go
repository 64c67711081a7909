package compass

import (
	"context"
	"net/url"
	"strconv"

	"github.com/pkg/errors"
)

// analysisService implements the AnalysisService interface
type analysisService struct {
	client *Client
}

// ListByTicker retrieves the analyses written for a company
func (s *analysisService) ListByTicker(ctx context.Context, ticker string) ([]*AnalysisReport, error) {
	if ticker == "" {
		return nil, &ValidationError{Field: "ticker", Message: "required"}
	}

	var result []*AnalysisReport
	if err := s.client.Get(ctx, "/ai/analyses?"+url.Values{"ticker": {ticker}}.Encode(), &result); err != nil {
		return nil, errors.Wrapf(err, "failed to fetch analyses for %s", ticker)
	}
	return result, nil
}

// Extract asks the AI service to pull figures out of a filing. Force redoes
// an extraction that already exists.
func (s *analysisService) Extract(ctx context.Context, params *ExtractParams) (*RawData, error) {
	if params == nil || params.Ticker == "" {
		return nil, &ValidationError{Field: "ticker", Message: "required"}
	}
	if !params.Period.Valid() {
		return nil, &ValidationError{Field: "period", Message: "unknown period", Value: params.Period}
	}

	q := url.Values{}
	q.Set("ticker", params.Ticker)
	q.Set("period", string(params.Period))
	if params.Year != 0 {
		q.Set("year", strconv.Itoa(params.Year))
	}
	if params.Force {
		q.Set("force", "true")
	}

	var data RawData
	if err := s.client.Get(ctx, "/ai/extract?"+q.Encode(), &data); err != nil {
		return nil, errors.Wrapf(err, "extraction failed for %s", params.Ticker)
	}
	return &data, nil
}
