package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/trade-compass/compass-go/pkg/compass"
)

// compassTools holds the Trade Compass client and implements all tool handlers
type compassTools struct {
	client *compass.Client
}

// GetCompanies tool - lists screener companies, optionally one sector
type GetCompaniesInput struct {
	SectorID int `json:"sectorId,omitempty" jsonschema:"Only companies of this sector (optional)"`
}

type CompanyEntry struct {
	Ticker   string `json:"ticker" jsonschema:"Exchange ticker"`
	Name     string `json:"name" jsonschema:"Company name"`
	SectorID int    `json:"sectorId" jsonschema:"Sector ID"`
	LotSize  int    `json:"lotSize,omitempty" jsonschema:"Shares per lot"`
}

type GetCompaniesOutput struct {
	Companies []CompanyEntry `json:"companies" jsonschema:"List of companies"`
	Count     int            `json:"count" jsonschema:"Number of companies returned"`
}

func (t *compassTools) GetCompanies(ctx context.Context, req *mcp.CallToolRequest, input GetCompaniesInput) (*mcp.CallToolResult, GetCompaniesOutput, error) {
	var companies []*compass.Company
	var err error

	if input.SectorID != 0 {
		companies, err = t.client.Companies.ListBySector(ctx, input.SectorID)
	} else {
		companies, err = t.client.Companies.List(ctx)
	}
	if err != nil {
		return nil, GetCompaniesOutput{}, fmt.Errorf("failed to fetch companies: %w", err)
	}

	entries := make([]CompanyEntry, 0, len(companies))
	for _, c := range companies {
		entries = append(entries, CompanyEntry{
			Ticker:   c.Ticker,
			Name:     c.Name,
			SectorID: c.SectorID,
			LotSize:  c.LotSize,
		})
	}

	return nil, GetCompaniesOutput{
		Companies: entries,
		Count:     len(entries),
	}, nil
}

// GetCompanyOverview tool - company with its latest price and market cap
type GetCompanyOverviewInput struct {
	Ticker string `json:"ticker" jsonschema:"Exchange ticker (e.g. SBER)"`
}

type GetCompanyOverviewOutput struct {
	Ticker      string  `json:"ticker" jsonschema:"Exchange ticker"`
	Name        string  `json:"name" jsonschema:"Company name"`
	SectorID    int     `json:"sectorId" jsonschema:"Sector ID"`
	LatestPrice float64 `json:"latestPrice" jsonschema:"Last traded price in RUB"`
	MarketCap   float64 `json:"marketCap" jsonschema:"Market capitalization in RUB"`
}

func (t *compassTools) GetCompanyOverview(ctx context.Context, req *mcp.CallToolRequest, input GetCompanyOverviewInput) (*mcp.CallToolResult, GetCompanyOverviewOutput, error) {
	overview, err := t.client.Companies.Overview(ctx, strings.ToUpper(input.Ticker))
	if err != nil {
		return nil, GetCompanyOverviewOutput{}, fmt.Errorf("failed to fetch company overview: %w", err)
	}

	out := GetCompanyOverviewOutput{
		LatestPrice: overview.LatestPrice,
		MarketCap:   overview.MarketCap,
	}
	if overview.Company != nil {
		out.Ticker = overview.Company.Ticker
		out.Name = overview.Company.Name
		out.SectorID = overview.Company.SectorID
	}

	return nil, out, nil
}

// GetPriceCandles tool - OHLC bars for a ticker
type GetPriceCandlesInput struct {
	Ticker   string `json:"ticker" jsonschema:"Exchange ticker (e.g. SBER)"`
	Days     int    `json:"days,omitempty" jsonschema:"Days of history (default: 30)"`
	Interval int    `json:"interval,omitempty" jsonschema:"Bar size in hours (default: 24)"`
}

type CandleEntry struct {
	Begin  string  `json:"begin" jsonschema:"Bar start (YYYY-MM-DD hh:mm:ss)"`
	Open   float64 `json:"open" jsonschema:"Open price"`
	High   float64 `json:"high" jsonschema:"High price"`
	Low    float64 `json:"low" jsonschema:"Low price"`
	Close  float64 `json:"close" jsonschema:"Close price"`
	Volume float64 `json:"volume" jsonschema:"Traded volume"`
}

type GetPriceCandlesOutput struct {
	Ticker  string        `json:"ticker" jsonschema:"Exchange ticker"`
	Candles []CandleEntry `json:"candles" jsonschema:"Price bars, oldest first"`
	Count   int           `json:"count" jsonschema:"Number of bars returned"`
}

func (t *compassTools) GetPriceCandles(ctx context.Context, req *mcp.CallToolRequest, input GetPriceCandlesInput) (*mcp.CallToolResult, GetPriceCandlesOutput, error) {
	days := input.Days
	if days <= 0 {
		days = 30
	}
	interval := input.Interval
	if interval <= 0 {
		interval = 24
	}
	ticker := strings.ToUpper(input.Ticker)

	candles, err := t.client.Prices.Candles(ctx, ticker, days, interval)
	if err != nil {
		return nil, GetPriceCandlesOutput{}, fmt.Errorf("failed to fetch candles: %w", err)
	}

	entries := make([]CandleEntry, 0, len(candles))
	for _, c := range candles {
		entries = append(entries, CandleEntry{
			Begin:  c.Begin.String(),
			Open:   c.Open,
			High:   c.High,
			Low:    c.Low,
			Close:  c.Close,
			Volume: c.Volume,
		})
	}

	return nil, GetPriceCandlesOutput{
		Ticker:  ticker,
		Candles: entries,
		Count:   len(entries),
	}, nil
}

// GetReports tool - filings found for a company
type GetReportsInput struct {
	Ticker string `json:"ticker" jsonschema:"Exchange ticker (e.g. ROSN)"`
}

type ReportEntry struct {
	Year   int    `json:"year" jsonschema:"Report year"`
	Period string `json:"period" jsonschema:"Months covered by the report"`
	File   string `json:"file" jsonschema:"Storage path of the filing"`
}

type GetReportsOutput struct {
	Ticker  string        `json:"ticker" jsonschema:"Exchange ticker"`
	Reports []ReportEntry `json:"reports" jsonschema:"List of filings"`
	Count   int           `json:"count" jsonschema:"Number of filings returned"`
}

func (t *compassTools) GetReports(ctx context.Context, req *mcp.CallToolRequest, input GetReportsInput) (*mcp.CallToolResult, GetReportsOutput, error) {
	ticker := strings.ToUpper(input.Ticker)

	reports, err := t.client.Reports.ListByTicker(ctx, ticker)
	if err != nil {
		return nil, GetReportsOutput{}, fmt.Errorf("failed to fetch reports: %w", err)
	}

	entries := make([]ReportEntry, 0, len(reports))
	for _, r := range reports {
		entries = append(entries, ReportEntry{Year: r.Year, Period: r.Period, File: r.S3Path})
	}

	return nil, GetReportsOutput{
		Ticker:  ticker,
		Reports: entries,
		Count:   len(entries),
	}, nil
}

// GetAnalyses tool - AI analyses written for a company
type GetAnalysesInput struct {
	Ticker string `json:"ticker" jsonschema:"Exchange ticker (e.g. ROSN)"`
}

type AnalysisEntry struct {
	Year     int    `json:"year" jsonschema:"Report year"`
	Period   int    `json:"period" jsonschema:"Months covered by the report"`
	Analysis string `json:"analysis" jsonschema:"Analysis text"`
}

type GetAnalysesOutput struct {
	Ticker   string          `json:"ticker" jsonschema:"Exchange ticker"`
	Analyses []AnalysisEntry `json:"analyses" jsonschema:"List of analyses"`
	Count    int             `json:"count" jsonschema:"Number of analyses returned"`
}

func (t *compassTools) GetAnalyses(ctx context.Context, req *mcp.CallToolRequest, input GetAnalysesInput) (*mcp.CallToolResult, GetAnalysesOutput, error) {
	ticker := strings.ToUpper(input.Ticker)

	analyses, err := t.client.Analyses.ListByTicker(ctx, ticker)
	if err != nil {
		return nil, GetAnalysesOutput{}, fmt.Errorf("failed to fetch analyses: %w", err)
	}

	entries := make([]AnalysisEntry, 0, len(analyses))
	for _, a := range analyses {
		entries = append(entries, AnalysisEntry{Year: a.Year, Period: a.Period, Analysis: a.Analysis})
	}

	return nil, GetAnalysesOutput{
		Ticker:   ticker,
		Analyses: entries,
		Count:    len(entries),
	}, nil
}
