package compass

import (
	"context"
	"fmt"
	"net/url"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

const financialDataPrefix = "/financial-data"

// companyService implements the CompanyService interface
type companyService struct {
	client *Client
}

// ListSectors retrieves all sectors
func (s *companyService) ListSectors(ctx context.Context) ([]*Sector, error) {
	var result envelope[[]*Sector]
	if err := s.client.Get(ctx, financialDataPrefix+"/sectors", &result); err != nil {
		return nil, errors.Wrap(err, "failed to fetch sectors")
	}
	return result.Data, nil
}

// List retrieves all companies
func (s *companyService) List(ctx context.Context) ([]*Company, error) {
	var result envelope[[]*Company]
	if err := s.client.Get(ctx, financialDataPrefix+"/companies", &result); err != nil {
		return nil, errors.Wrap(err, "failed to fetch companies")
	}
	return result.Data, nil
}

// Get retrieves a company by ticker
func (s *companyService) Get(ctx context.Context, ticker string) (*Company, error) {
	if ticker == "" {
		return nil, &ValidationError{Field: "ticker", Message: "required"}
	}

	var result envelope[*Company]
	path := fmt.Sprintf("%s/companies/%s", financialDataPrefix, url.PathEscape(ticker))
	if err := s.client.Get(ctx, path, &result); err != nil {
		return nil, errors.Wrapf(err, "failed to fetch company %s", ticker)
	}
	return result.Data, nil
}

// ListBySector retrieves the companies of one sector
func (s *companyService) ListBySector(ctx context.Context, sectorID int) ([]*Company, error) {
	var result envelope[[]*Company]
	path := fmt.Sprintf("%s/companies/sector/%d", financialDataPrefix, sectorID)
	if err := s.client.Get(ctx, path, &result); err != nil {
		return nil, errors.Wrapf(err, "failed to fetch companies for sector %d", sectorID)
	}
	return result.Data, nil
}

// Overview fetches the company, its latest price and its market cap
// concurrently. Each call renews the session independently if needed; the
// refresh coordinator keeps that to one refresh.
func (s *companyService) Overview(ctx context.Context, ticker string) (*CompanyOverview, error) {
	if ticker == "" {
		return nil, &ValidationError{Field: "ticker", Message: "required"}
	}

	overview := &CompanyOverview{}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		company, err := s.Get(gctx, ticker)
		if err != nil {
			return err
		}
		overview.Company = company
		return nil
	})

	g.Go(func() error {
		price, err := s.client.Prices.Latest(gctx, ticker)
		if err != nil {
			return err
		}
		overview.LatestPrice = price
		return nil
	})

	g.Go(func() error {
		capitalization, err := s.client.Prices.MarketCap(gctx, ticker)
		if err != nil {
			return err
		}
		overview.MarketCap = capitalization
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return overview, nil
}
