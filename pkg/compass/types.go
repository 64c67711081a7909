package compass

import (
	"time"
)

// Sector is an industry sector in the screener
type Sector struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Company is a listed issuer
type Company struct {
	ID       int    `json:"id"`
	Ticker   string `json:"ticker"`
	Name     string `json:"name,omitempty"`
	SectorID int    `json:"sectorId"`
	LotSize  int    `json:"lotSize,omitempty"`
	CEO      string `json:"ceo,omitempty"`
}

// CompanyOverview combines a company with its current market figures
type CompanyOverview struct {
	Company     *Company `json:"company"`
	LatestPrice float64  `json:"latestPrice"`
	MarketCap   float64  `json:"marketCap"`
}

// Candle is one OHLC price bar
type Candle struct {
	Open   float64   `json:"open"`
	Close  float64   `json:"close"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Value  float64   `json:"value"`
	Volume float64   `json:"volume"`
	Begin  Timestamp `json:"begin"`
	End    Timestamp `json:"end"`
}

// MetricsStatus is the review state of a raw data record
type MetricsStatus string

const (
	MetricsStatusDraft     MetricsStatus = "draft"
	MetricsStatusConfirmed MetricsStatus = "confirmed"
)

// RawData holds the reported financial figures of one company and period.
// Missing figures are nil.
type RawData struct {
	Ticker string        `json:"ticker"`
	Year   int           `json:"year"`
	Period ReportPeriod  `json:"period"`
	Status MetricsStatus `json:"status,omitempty"`

	// Income statement
	Revenue           *int64 `json:"revenue,omitempty"`
	CostOfRevenue     *int64 `json:"costOfRevenue,omitempty"`
	GrossProfit       *int64 `json:"grossProfit,omitempty"`
	OperatingExpenses *int64 `json:"operatingExpenses,omitempty"`
	EBIT              *int64 `json:"ebit,omitempty"`
	EBITDA            *int64 `json:"ebitda,omitempty"`
	InterestExpense   *int64 `json:"interestExpense,omitempty"`
	TaxExpense        *int64 `json:"taxExpense,omitempty"`
	NetProfit         *int64 `json:"netProfit,omitempty"`

	// Balance sheet
	TotalAssets        *int64 `json:"totalAssets,omitempty"`
	CurrentAssets      *int64 `json:"currentAssets,omitempty"`
	CashAndEquivalents *int64 `json:"cashAndEquivalents,omitempty"`
	Inventories        *int64 `json:"inventories,omitempty"`
	Receivables        *int64 `json:"receivables,omitempty"`
	TotalLiabilities   *int64 `json:"totalLiabilities,omitempty"`
	CurrentLiabilities *int64 `json:"currentLiabilities,omitempty"`
	Debt               *int64 `json:"debt,omitempty"`
	LongTermDebt       *int64 `json:"longTermDebt,omitempty"`
	ShortTermDebt      *int64 `json:"shortTermDebt,omitempty"`
	Equity             *int64 `json:"equity,omitempty"`
	RetainedEarnings   *int64 `json:"retainedEarnings,omitempty"`

	// Cash flow
	OperatingCashFlow *int64 `json:"operatingCashFlow,omitempty"`
	InvestingCashFlow *int64 `json:"investingCashFlow,omitempty"`
	FinancingCashFlow *int64 `json:"financingCashFlow,omitempty"`
	Capex             *int64 `json:"capex,omitempty"`
	FreeCashFlow      *int64 `json:"freeCashFlow,omitempty"`

	// Market data
	SharesOutstanding *int64 `json:"sharesOutstanding,omitempty"`
	MarketCap         *int64 `json:"marketCap,omitempty"`

	// Derived
	WorkingCapital  *int64 `json:"workingCapital,omitempty"`
	CapitalEmployed *int64 `json:"capitalEmployed,omitempty"`
	EnterpriseValue *int64 `json:"enterpriseValue,omitempty"`
	NetDebt         *int64 `json:"netDebt,omitempty"`
}

// Report is a filed financial report found by the parser
type Report struct {
	ID     int    `json:"id"`
	Ticker string `json:"ticker"`
	Year   int    `json:"year"`
	Period string `json:"period"`
	S3Path string `json:"s3_path"`
}

// AnalysisReport is an AI-generated analysis of one report
type AnalysisReport struct {
	ID        int       `json:"id"`
	Ticker    string    `json:"ticker"`
	Year      int       `json:"year"`
	Period    int       `json:"period"`
	Analysis  string    `json:"analysis"`
	CreatedAt time.Time `json:"createdAt"`
}

// ExtractParams selects the report the AI service extracts figures from
type ExtractParams struct {
	Ticker string
	Period ReportPeriod
	Year   int
	Force  bool
}

// User is the signed-in account
type User struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
	Email  string `json:"email,omitempty"`
}

// RegisterParams creates an account
type RegisterParams struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// SessionInfo describes the current access token
type SessionInfo struct {
	UserID    int64     `json:"userId"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	ExpiresAt time.Time `json:"expiresAt"`
	Expired   bool      `json:"expired"`
}

// envelope wraps the financial-data service responses
type envelope[T any] struct {
	Status  string `json:"status"`
	Data    T      `json:"data"`
	Message string `json:"message,omitempty"`
}
