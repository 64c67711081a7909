package compass

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pkg/errors"
)

const apiKeyHeader = "X-API-Key"

// rawDataService implements the RawDataService interface
type rawDataService struct {
	client *Client
}

// Get retrieves the figures for one period
func (s *rawDataService) Get(ctx context.Context, ticker string, year int, period ReportPeriod) (*RawData, error) {
	path, err := rawDataPath(ticker, "", year, period)
	if err != nil {
		return nil, err
	}

	var data RawData
	if err := s.client.Get(ctx, path, &data); err != nil {
		return nil, errors.Wrapf(err, "failed to fetch raw data for %s", ticker)
	}
	return &data, nil
}

// History retrieves all periods of a company
func (s *rawDataService) History(ctx context.Context, ticker string) ([]*RawData, error) {
	path, err := rawDataPath(ticker, "/history", 0, "")
	if err != nil {
		return nil, err
	}

	var data []*RawData
	if err := s.client.Get(ctx, path, &data); err != nil {
		return nil, errors.Wrapf(err, "failed to fetch raw data history for %s", ticker)
	}
	return data, nil
}

// Drafts retrieves unconfirmed records
func (s *rawDataService) Drafts(ctx context.Context, ticker string) ([]*RawData, error) {
	path, err := rawDataPath(ticker, "/drafts", 0, "")
	if err != nil {
		return nil, err
	}

	var data []*RawData
	if err := s.client.Get(ctx, path, &data); err != nil {
		return nil, errors.Wrapf(err, "failed to fetch drafts for %s", ticker)
	}
	return data, nil
}

// Draft retrieves one draft. A missing draft is not an error.
func (s *rawDataService) Draft(ctx context.Context, ticker string, year int, period ReportPeriod) (*RawData, error) {
	path, err := rawDataPath(ticker, "/draft", year, period)
	if err != nil {
		return nil, err
	}

	var data RawData
	if err := s.client.Get(ctx, path, &data); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "failed to fetch draft for %s", ticker)
	}
	return &data, nil
}

// Update overwrites the figures for one period
func (s *rawDataService) Update(ctx context.Context, ticker string, year int, period ReportPeriod, data *RawData) error {
	if data == nil {
		return &ValidationError{Field: "data", Message: "required"}
	}

	path, err := rawDataPath(ticker, "", year, period)
	if err != nil {
		return err
	}

	if err := s.client.do(ctx, http.MethodPut, path, data, s.adminHeader(), nil); err != nil {
		return errors.Wrapf(err, "failed to update raw data for %s", ticker)
	}
	return nil
}

// Confirm marks a draft as reviewed
func (s *rawDataService) Confirm(ctx context.Context, ticker string, year int, period ReportPeriod) error {
	path, err := rawDataPath(ticker, "/confirm", year, period)
	if err != nil {
		return err
	}

	if err := s.client.do(ctx, http.MethodPut, path, nil, s.adminHeader(), nil); err != nil {
		return errors.Wrapf(err, "failed to confirm draft for %s", ticker)
	}
	return nil
}

func (s *rawDataService) adminHeader() http.Header {
	h := http.Header{}
	if key := s.client.options.AdminAPIKey; key != "" {
		h.Set(apiKeyHeader, key)
	}
	return h
}

// rawDataPath builds /financial-data/raw-data/{ticker}{suffix}[?year&period].
// year 0 and an empty period leave the query off.
func rawDataPath(ticker, suffix string, year int, period ReportPeriod) (string, error) {
	if ticker == "" {
		return "", &ValidationError{Field: "ticker", Message: "required"}
	}

	path := fmt.Sprintf("%s/raw-data/%s%s", financialDataPrefix, url.PathEscape(ticker), suffix)
	if year == 0 && period == "" {
		return path, nil
	}

	if !period.Valid() {
		return "", &ValidationError{Field: "period", Message: "unknown period", Value: period}
	}

	q := url.Values{}
	q.Set("year", strconv.Itoa(year))
	q.Set("period", string(period))
	return path + "?" + q.Encode(), nil
}
