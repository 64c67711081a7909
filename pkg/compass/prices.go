package compass

import (
	"context"
	"net/url"
	"strconv"

	"github.com/pkg/errors"
)

// priceService implements the PriceService interface
type priceService struct {
	client *Client
}

// Candles retrieves price bars
func (s *priceService) Candles(ctx context.Context, ticker string, days, interval int) ([]*Candle, error) {
	if ticker == "" {
		return nil, &ValidationError{Field: "ticker", Message: "required"}
	}
	if days <= 0 {
		return nil, &ValidationError{Field: "days", Message: "must be positive", Value: days}
	}

	q := url.Values{}
	q.Set("ticker", ticker)
	q.Set("days", strconv.Itoa(days))
	q.Set("interval", strconv.Itoa(interval))

	var result envelope[[]*Candle]
	if err := s.client.Get(ctx, financialDataPrefix+"/price?"+q.Encode(), &result); err != nil {
		return nil, errors.Wrapf(err, "failed to fetch price candles for %s", ticker)
	}
	return result.Data, nil
}

// Latest retrieves the last traded price
func (s *priceService) Latest(ctx context.Context, ticker string) (float64, error) {
	q := url.Values{}
	q.Set("ticker", ticker)

	var result envelope[float64]
	if err := s.client.Get(ctx, financialDataPrefix+"/price/latest?"+q.Encode(), &result); err != nil {
		return 0, errors.Wrapf(err, "failed to fetch latest price for %s", ticker)
	}
	return result.Data, nil
}

// MarketCap retrieves the current market capitalization
func (s *priceService) MarketCap(ctx context.Context, ticker string) (float64, error) {
	q := url.Values{}
	q.Set("ticker", ticker)

	var result envelope[float64]
	if err := s.client.Get(ctx, financialDataPrefix+"/market-cap?"+q.Encode(), &result); err != nil {
		return 0, errors.Wrapf(err, "failed to fetch market cap for %s", ticker)
	}
	return result.Data, nil
}
