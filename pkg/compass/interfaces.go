package compass

import (
	"context"
)

// AuthService handles sign-in and the session cookies
type AuthService interface {
	// Login signs in with email and password
	Login(ctx context.Context, email, password string) error

	// Register creates an account and signs in
	Register(ctx context.Context, params *RegisterParams) error

	// Logout ends the session
	Logout(ctx context.Context) error

	// CurrentUser returns the signed-in user
	CurrentUser(ctx context.Context) (*User, error)

	// YandexAuthURL returns the OAuth URL for signing in with Yandex
	YandexAuthURL(ctx context.Context) (string, error)

	// Refresh renews the session now, joining a refresh already in flight
	Refresh(ctx context.Context) error

	// HasSession reports whether an access token cookie is present
	HasSession() bool

	// SessionInfo decodes the current access token
	SessionInfo() (*SessionInfo, error)

	// SaveSession saves the session cookies to file
	SaveSession(path string) error

	// LoadSession loads the session cookies from file
	LoadSession(path string) error
}

// CompanyService handles the screener's companies and sectors
type CompanyService interface {
	// ListSectors retrieves all sectors
	ListSectors(ctx context.Context) ([]*Sector, error)

	// List retrieves all companies
	List(ctx context.Context) ([]*Company, error)

	// Get retrieves a company by ticker
	Get(ctx context.Context, ticker string) (*Company, error)

	// ListBySector retrieves the companies of one sector
	ListBySector(ctx context.Context, sectorID int) ([]*Company, error)

	// Overview fetches a company with its latest price and market cap
	Overview(ctx context.Context, ticker string) (*CompanyOverview, error)
}

// PriceService handles market prices
type PriceService interface {
	// Candles retrieves price bars for the last days, interval in hours
	Candles(ctx context.Context, ticker string, days, interval int) ([]*Candle, error)

	// Latest retrieves the last traded price
	Latest(ctx context.Context, ticker string) (float64, error)

	// MarketCap retrieves the current market capitalization
	MarketCap(ctx context.Context, ticker string) (float64, error)
}

// RawDataService handles reported figures and the admin draft workflow
type RawDataService interface {
	// Get retrieves the figures for one period
	Get(ctx context.Context, ticker string, year int, period ReportPeriod) (*RawData, error)

	// History retrieves all periods of a company
	History(ctx context.Context, ticker string) ([]*RawData, error)

	// Drafts retrieves unconfirmed records
	Drafts(ctx context.Context, ticker string) ([]*RawData, error)

	// Draft retrieves one draft, nil when there is none
	Draft(ctx context.Context, ticker string, year int, period ReportPeriod) (*RawData, error)

	// Update overwrites the figures for one period
	Update(ctx context.Context, ticker string, year int, period ReportPeriod, data *RawData) error

	// Confirm marks a draft as reviewed
	Confirm(ctx context.Context, ticker string, year int, period ReportPeriod) error
}

// ReportService handles parsed filings
type ReportService interface {
	// ListByTicker retrieves the filings found for a company
	ListByTicker(ctx context.Context, ticker string) ([]*Report, error)
}

// AnalysisService handles AI analyses and extraction
type AnalysisService interface {
	// ListByTicker retrieves the analyses written for a company
	ListByTicker(ctx context.Context, ticker string) ([]*AnalysisReport, error)

	// Extract asks the AI service to pull figures out of a filing
	Extract(ctx context.Context, params *ExtractParams) (*RawData, error)
}
