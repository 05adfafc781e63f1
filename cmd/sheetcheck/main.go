// Command sheetcheck parses exported league workbooks offline, so a sheet
// layout can be checked before a category is pointed at it.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"

	"leaguesync/internal/domain"
	"leaguesync/internal/parser"
	"leaguesync/internal/service/tracking"
	"leaguesync/pkg/sheets"
)

func main() {
	app := &cli.App{
		Name:  "sheetcheck",
		Usage: "inspect league spreadsheets exported as .xlsx",
		Commands: []*cli.Command{
			newParseCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newParseCommand() *cli.Command {
	return &cli.Command{
		Name:      "parse",
		Usage:     "parse a workbook and print its match candidates and fingerprint",
		ArgsUsage: "<file.xlsx>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "category", Aliases: []string{"c"}, Usage: "category the workbook belongs to", Required: true},
			&cli.StringFlag{Name: "roster-sheet", Usage: "tab listing team names", Value: parser.DefaultRosterSheet},
			&cli.IntFlag{Name: "season-year", Usage: "year for dates without one", Value: time.Now().Year()},
			&cli.BoolFlag{Name: "json", Usage: "print candidates as JSON"},
		},
		Action: func(c *cli.Context) error {
			path := c.Args().First()
			if path == "" {
				return cli.Exit("a workbook path is required", 2)
			}

			store := sheets.NewXLSXStore(filepath.Dir(path))
			rep, err := inspect(c.Context, store, strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)), options{
				Category:    c.String("category"),
				RosterSheet: c.String("roster-sheet"),
				SeasonYear:  c.Int("season-year"),
			})
			if err != nil {
				return err
			}

			if c.Bool("json") {
				enc := json.NewEncoder(c.App.Writer)
				enc.SetIndent("", "  ")
				return enc.Encode(rep)
			}
			return rep.print(c.App.Writer)
		},
	}
}

type options struct {
	Category    string
	RosterSheet string
	SeasonYear  int
}

type report struct {
	Roster      []string                `json:"roster"`
	Candidates  []domain.MatchCandidate `json:"candidates"`
	Skips       []parser.Skip           `json:"skips"`
	Fingerprint string                  `json:"fingerprint"`
}

func inspect(ctx context.Context, reader sheets.Reader, spreadsheetID string, opts options) (*report, error) {
	tabs, err := reader.ListSheets(ctx, spreadsheetID)
	if err != nil {
		return nil, err
	}

	rep := &report{}
	for _, tab := range tabs {
		if !parser.IsRosterSheet(tab.Title, opts.RosterSheet) {
			continue
		}
		rows, err := reader.ReadRange(ctx, spreadsheetID, tab.Title, parser.RosterRange)
		if err != nil {
			return nil, err
		}
		rep.Roster = parser.ParseRoster(rows)
	}

	for _, tab := range tabs {
		if parser.IsRosterSheet(tab.Title, opts.RosterSheet) {
			continue
		}
		rows, err := reader.ReadRange(ctx, spreadsheetID, tab.Title, parser.MatchRange)
		if err != nil {
			return nil, err
		}
		candidates, skips := parser.ParseSheet(rows, parser.SheetContext{
			Category:   opts.Category,
			SheetName:  tab.Title,
			SeasonYear: opts.SeasonYear,
			KnownTeams: rep.Roster,
		})
		rep.Candidates = append(rep.Candidates, candidates...)
		rep.Skips = append(rep.Skips, skips...)
	}

	rep.Fingerprint, err = tracking.Fingerprint(rep.Candidates)
	if err != nil {
		return nil, err
	}
	return rep, nil
}

func (r *report) print(out io.Writer) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MATCH ID\tDATE\tTIME\tCOURT\tTEAM A\tTEAM B\tSCORE\tRESULT")
	for _, c := range r.Candidates {
		date := "-"
		if c.Date != nil {
			date = c.Date.Format("2006-01-02")
		}
		score := make([]string, len(c.OfficialScoreA))
		for i := range c.OfficialScoreA {
			score[i] = c.OfficialScoreA[i] + "-" + c.OfficialScoreB[i]
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			c.MatchID, date, c.Time, c.Court, c.TeamAName, c.TeamBName, strings.Join(score, " "), c.OfficialResult)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, s := range r.Skips {
		fmt.Fprintf(out, "skipped %s row %d: %s\n", s.SheetName, s.RowNumber, s.Reason)
	}
	fmt.Fprintf(out, "\n%d candidates, %d skipped, %d roster teams\nfingerprint %s\n",
		len(r.Candidates), len(r.Skips), len(r.Roster), r.Fingerprint)
	return nil
}
