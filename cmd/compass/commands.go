package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/trade-compass/compass-go/pkg/compass"
)

func cmdLogin(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	email := fs.String("email", os.Getenv("COMPASS_EMAIL"), "Account email")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" {
		return errors.New("login requires -email")
	}

	password, err := readPassword(a.in, a.errOut)
	if err != nil {
		return errors.Wrap(err, "failed to read password")
	}

	if err := a.client.Auth.Login(ctx, *email, password); err != nil {
		return err
	}

	user, err := a.client.Auth.CurrentUser(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Logged in as %s\n", user.Name)
	return nil
}

func cmdLogout(ctx context.Context, a *app, args []string) error {
	if err := a.client.Auth.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func cmdWhoami(ctx context.Context, a *app, args []string) error {
	if !a.client.Auth.HasSession() {
		return compass.ErrNotAuthenticated
	}

	user, err := a.client.Auth.CurrentUser(ctx)
	if err != nil {
		return err
	}

	if a.jsonOut {
		return a.printJSON(user)
	}

	fmt.Fprintf(a.out, "%s (id %d, %s)\n", user.Name, user.ID, user.Status)
	if info, err := a.client.Auth.SessionInfo(); err == nil && !info.ExpiresAt.IsZero() {
		fmt.Fprintf(a.out, "Access token expires %s\n", info.ExpiresAt.Local().Format("2006-01-02 15:04:05"))
	}
	return nil
}

func cmdSectors(ctx context.Context, a *app, args []string) error {
	sectors, err := a.client.Companies.ListSectors(ctx)
	if err != nil {
		return err
	}
	if a.jsonOut {
		return a.printJSON(sectors)
	}

	return a.table(func(w io.Writer) {
		fmt.Fprintln(w, "ID\tNAME")
		for _, s := range sectors {
			fmt.Fprintf(w, "%d\t%s\n", s.ID, s.Name)
		}
	})
}

func cmdCompanies(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("companies", flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	sector := fs.Int("sector", 0, "Only companies of this sector")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var companies []*compass.Company
	var err error
	if *sector != 0 {
		companies, err = a.client.Companies.ListBySector(ctx, *sector)
	} else {
		companies, err = a.client.Companies.List(ctx)
	}
	if err != nil {
		return err
	}
	if a.jsonOut {
		return a.printJSON(companies)
	}

	return a.table(func(w io.Writer) {
		fmt.Fprintln(w, "TICKER\tNAME\tSECTOR\tLOT")
		for _, c := range companies {
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\n", c.Ticker, c.Name, c.SectorID, c.LotSize)
		}
	})
}

func cmdCompany(ctx context.Context, a *app, args []string) error {
	ticker, _, err := tickerArgs("company", args)
	if err != nil {
		return err
	}

	overview, err := a.client.Companies.Overview(ctx, ticker)
	if err != nil {
		return err
	}
	if a.jsonOut {
		return a.printJSON(overview)
	}

	return a.table(func(w io.Writer) {
		fmt.Fprintf(w, "Ticker\t%s\n", overview.Company.Ticker)
		fmt.Fprintf(w, "Name\t%s\n", overview.Company.Name)
		fmt.Fprintf(w, "Sector\t%d\n", overview.Company.SectorID)
		fmt.Fprintf(w, "Price\t%.2f\n", overview.LatestPrice)
		fmt.Fprintf(w, "Market cap\t%.0f\n", overview.MarketCap)
	})
}

func cmdCandles(ctx context.Context, a *app, args []string) error {
	ticker, rest, err := tickerArgs("candles", args)
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("candles", flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	days := fs.Int("days", 30, "Days of history")
	interval := fs.Int("interval", 24, "Bar size in hours")
	if err := fs.Parse(rest); err != nil {
		return err
	}

	candles, err := a.client.Prices.Candles(ctx, ticker, *days, *interval)
	if err != nil {
		return err
	}
	if a.jsonOut {
		return a.printJSON(candles)
	}

	return a.table(func(w io.Writer) {
		fmt.Fprintln(w, "BEGIN\tOPEN\tHIGH\tLOW\tCLOSE\tVOLUME")
		for _, c := range candles {
			fmt.Fprintf(w, "%s\t%.2f\t%.2f\t%.2f\t%.2f\t%.0f\n", c.Begin, c.Open, c.High, c.Low, c.Close, c.Volume)
		}
	})
}

func cmdReports(ctx context.Context, a *app, args []string) error {
	ticker, _, err := tickerArgs("reports", args)
	if err != nil {
		return err
	}

	reports, err := a.client.Reports.ListByTicker(ctx, ticker)
	if err != nil {
		return err
	}
	if a.jsonOut {
		return a.printJSON(reports)
	}

	return a.table(func(w io.Writer) {
		fmt.Fprintln(w, "YEAR\tPERIOD\tFILE")
		for _, r := range reports {
			fmt.Fprintf(w, "%d\t%s\t%s\n", r.Year, r.Period, r.S3Path)
		}
	})
}

func cmdAnalyses(ctx context.Context, a *app, args []string) error {
	ticker, _, err := tickerArgs("analyses", args)
	if err != nil {
		return err
	}

	analyses, err := a.client.Analyses.ListByTicker(ctx, ticker)
	if err != nil {
		return err
	}
	if a.jsonOut {
		return a.printJSON(analyses)
	}

	for _, r := range analyses {
		fmt.Fprintf(a.out, "== %s %d, %d months ==\n%s\n\n", r.Ticker, r.Year, r.Period, r.Analysis)
	}
	return nil
}

func cmdDrafts(ctx context.Context, a *app, args []string) error {
	ticker, _, err := tickerArgs("drafts", args)
	if err != nil {
		return err
	}

	drafts, err := a.client.RawData.Drafts(ctx, ticker)
	if err != nil {
		return err
	}
	if a.jsonOut {
		return a.printJSON(drafts)
	}

	return a.table(func(w io.Writer) {
		fmt.Fprintln(w, "YEAR\tPERIOD\tSTATUS")
		for _, d := range drafts {
			fmt.Fprintf(w, "%d\t%s\t%s\n", d.Year, d.Period, d.Status)
		}
	})
}

func cmdConfirm(ctx context.Context, a *app, args []string) error {
	ticker, rest, err := tickerArgs("confirm", args)
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("confirm", flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	year := fs.Int("year", 0, "Report year")
	periodFlag := fs.String("period", "", "Q1, Q2, Q3, YEAR or a month count")
	if err := fs.Parse(rest); err != nil {
		return err
	}
	if *year == 0 {
		return errors.New("confirm requires -year")
	}

	period, err := compass.ParsePeriod(*periodFlag)
	if err != nil {
		return err
	}

	if err := a.client.RawData.Confirm(ctx, ticker, *year, period); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Confirmed %s %d %s\n", ticker, *year, period)
	return nil
}

// tickerArgs splits a leading TICKER from the flags that follow it
func tickerArgs(name string, args []string) (string, []string, error) {
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		return "", nil, errors.Errorf("%s requires a TICKER", name)
	}
	return strings.ToUpper(args[0]), args[1:], nil
}

// readPassword prompts without echo on a terminal and reads a line otherwise
func readPassword(in io.Reader, prompt io.Writer) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(prompt, "Password: ")
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		return string(b), err
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (a *app) printJSON(v interface{}) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *app) table(write func(w io.Writer)) error {
	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	write(w)
	return w.Flush()
}
