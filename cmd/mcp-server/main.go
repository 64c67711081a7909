package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/trade-compass/compass-go/internal/config"
	"github.com/trade-compass/compass-go/pkg/compass"
)

func main() {
	cfg, err := config.Load(config.DefaultPath())
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// stdout carries the protocol; logs go to stderr
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Level()}))

	// The session comes from `compass login`
	client, err := compass.NewClient(&compass.ClientOptions{
		BaseURL:     cfg.BaseURL,
		Timeout:     cfg.Timeout,
		SessionFile: cfg.SessionFile,
		SentryDSN:   cfg.SentryDSN,
		RetryConfig: cfg.Retry,
		Logger:      logger,
	})
	if err != nil {
		log.Fatalf("failed to initialize Trade Compass client: %v", err)
	}
	defer client.Close()

	if !client.Auth.HasSession() {
		log.Fatal("no saved session, run `compass login` first")
	}

	impl := &mcp.Implementation{
		Name:    "trade-compass",
		Version: "1.0.0",
	}

	server := mcp.NewServer(impl, nil)

	registerTools(server, client)

	if err := server.Run(context.Background(), &mcp.StdioTransport{}); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func registerTools(server *mcp.Server, client *compass.Client) {
	tools := &compassTools{client: client}

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_companies",
		Description: "List companies tracked by the screener, optionally only those of one sector. Returns ticker, name, sector and lot size.",
	}, tools.GetCompanies)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_company_overview",
		Description: "Get a company by ticker together with its latest traded price and market capitalization in RUB.",
	}, tools.GetCompanyOverview)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_price_candles",
		Description: "Get OHLC price bars for a ticker over the last N days at the given bar size in hours.",
	}, tools.GetPriceCandles)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_reports",
		Description: "List the financial reports (IFRS filings) found for a company, with year and period.",
	}, tools.GetReports)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_analyses",
		Description: "Get the AI-written analyses of a company's reports.",
	}, tools.GetAnalyses)
}
