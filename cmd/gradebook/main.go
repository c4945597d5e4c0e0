// Command gradebook imports spreadsheets and prints rosters and retention
// reports against the configured store without running the server.
//
//	gradebook [-config file] classes
//	gradebook [-config file] import -class ID -kind casas FILE|DIR...
//	gradebook [-config file] roster -class ID [-format table|json|csv|xlsx]
//	gradebook [-config file] retention -class ID [-year 2024-2025]
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"text/tabwriter"

	"github.com/volatiletech/null/v8"
	"golang.org/x/sync/errgroup"

	"gradebook/internal/app"
	"gradebook/internal/config"
	"gradebook/internal/exporter"
	"gradebook/internal/files"
	"gradebook/internal/infrastructure"
	"gradebook/internal/ingest"
	"gradebook/internal/services"
	"gradebook/pkg/contracts/domain"
)

// maxParallelReads bounds how many spreadsheets are parsed at once.
const maxParallelReads = 4

var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, "gradebook:", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) (err error) {
	global := flag.NewFlagSet("gradebook", flag.ContinueOnError)
	global.SetOutput(stderr)
	configPath := global.String("config", "", "config file (default: GRADEBOOK_CONFIG or gradebook.yaml)")
	if err := global.Parse(args); err != nil {
		return errUsage
	}
	if global.NArg() == 0 {
		fmt.Fprintln(stderr, "commands: classes, import, roster, retention, version")
		return errUsage
	}
	cmd, rest := global.Arg(0), global.Args()[1:]
	if cmd == "version" {
		fmt.Fprintf(stdout, "%s %s\n", app.AppName, app.Version)
		return nil
	}

	var cfg *config.Config
	if *configPath != "" {
		cfg, err = config.LoadFrom(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}
	cfg.Telemetry.Metrics = false

	logger, logFile, err := infrastructure.NewLogger(cfg.Logging, stderr)
	if err != nil {
		return err
	}
	if logFile != nil {
		defer logFile.Close()
	}

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if stopErr := a.Stop(context.Background()); stopErr != nil && err == nil {
			err = stopErr
		}
	}()

	switch cmd {
	case "classes":
		return listClasses(ctx, a, stdout)
	case "import":
		return importFiles(ctx, a, rest, stdout, stderr)
	case "roster":
		return printRoster(ctx, a, rest, stdout, stderr)
	case "retention":
		return printRetention(ctx, a, rest, stdout, stderr)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", cmd)
		return errUsage
	}
}

func listClasses(ctx context.Context, a *app.Application, stdout io.Writer) error {
	classes, err := a.Services.Records.Classes(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tREADING\tLISTENING")
	for _, c := range classes {
		fmt.Fprintf(tw, "%s\t%s\t%g-%g\t%g-%g\n", c.ID, c.Name,
			c.CasasReadingLevelStart, c.CasasReadingTarget,
			c.CasasListeningLevelStart, c.CasasListeningTarget)
	}
	return tw.Flush()
}

// importFiles parses every file concurrently, then imports them in the
// order given so later files win on conflicts. A directory stands for the
// spreadsheets in it, oldest first.
func importFiles(ctx context.Context, a *app.Application, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	fs.SetOutput(stderr)
	classID := fs.String("class", "", "class ID")
	kind := fs.String("kind", "", "casas, attendance, unit_tests or tutoring")
	month := fs.String("month", "", "attendance month for sheets without one (YYYY-MM)")
	testName := fs.String("test-name", "", "unit test name for rows without one")
	testDate := fs.String("test-date", "", "unit test date for rows without one (YYYY-MM-DD)")
	year := fs.String("year", "", "school year for tutoring dates (2024-2025)")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if *classID == "" || fs.NArg() == 0 {
		fmt.Fprintln(stderr, "import needs -class and at least one file")
		return errUsage
	}

	k, err := services.ParseImportKind(*kind)
	if err != nil {
		return err
	}
	base := services.ImportRequest{
		ClassID:  *classID,
		Kind:     k,
		Month:    *month,
		TestName: *testName,
		TestDate: *testDate,
	}
	if *year != "" {
		if base.SchoolYear, err = domain.ParseSchoolYear(*year); err != nil {
			return err
		}
	}

	paths, err := files.Expand(fs.Args())
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return errors.New("no spreadsheets found")
	}
	grids := make([]ingest.Grid, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelReads)
	for i, path := range paths {
		g.Go(func() error {
			grid, err := ingest.ReadFile(gctx, path)
			if err != nil {
				return err
			}
			grids[i] = grid
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	summaries := make([]services.ImportSummary, 0, len(paths))
	rejected := 0
	for i, path := range paths {
		req := base
		req.FileName = filepath.Base(path)
		sum, err := a.Services.Imports.ImportGrid(ctx, req, grids[i])
		if err != nil {
			return fmt.Errorf("%s: %w", req.FileName, err)
		}
		if !sum.OK() {
			rejected++
		}
		summaries = append(summaries, sum)
	}

	if err := writeJSON(stdout, summaries); err != nil {
		return err
	}
	if rejected > 0 {
		return fmt.Errorf("%d of %d files rejected", rejected, len(paths))
	}
	return nil
}

func printRoster(ctx context.Context, a *app.Application, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("roster", flag.ContinueOnError)
	fs.SetOutput(stderr)
	classID := fs.String("class", "", "class ID")
	format := fs.String("format", "table", "table, json, csv or xlsx")
	if err := fs.Parse(args); err != nil || *classID == "" {
		return errUsage
	}

	roster, err := a.Services.Gradebook.Roster(ctx, *classID)
	if err != nil {
		return err
	}
	switch *format {
	case "table":
	case "json":
		return writeJSON(stdout, roster)
	case "csv":
		return exporter.WriteCSV(stdout, exporter.RosterTable(roster), exporter.WriteOptions{})
	case "xlsx":
		return exporter.WriteXLSX(stdout, "Roster", exporter.RosterTable(roster))
	default:
		fmt.Fprintf(stderr, "unknown format %q\n", *format)
		return errUsage
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tNAME\tOVERALL\tREADING\tLISTENING\tTESTS\tATTENDANCE\tTUTORING")
	for _, e := range roster.Students {
		rank := "-"
		if e.Rank.Valid {
			rank = strconv.Itoa(e.Rank.Int)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%d\n", rank, e.Name,
			pct(e.OverallScore), score(e.CasasReadingLast), score(e.CasasListeningLast),
			pct(e.TestAverage), pct(e.AttendanceAverage), e.TutoringSessions)
	}
	return tw.Flush()
}

func printRetention(ctx context.Context, a *app.Application, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("retention", flag.ContinueOnError)
	fs.SetOutput(stderr)
	classID := fs.String("class", "", "class ID")
	year := fs.String("year", "", "school year (2024-2025); default is the current one")
	if err := fs.Parse(args); err != nil || *classID == "" {
		return errUsage
	}

	var sy domain.SchoolYear
	if *year != "" {
		var err error
		if sy, err = domain.ParseSchoolYear(*year); err != nil {
			return err
		}
	}
	report, err := a.Services.Gradebook.Retention(ctx, *classID, sy)
	if err != nil {
		return err
	}
	return writeJSON(stdout, report)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func pct(v null.Float64) string {
	if !v.Valid {
		return "-"
	}
	return strconv.FormatFloat(v.Float64, 'f', 1, 64) + "%"
}

func score(v null.Float64) string {
	if !v.Valid {
		return "-"
	}
	return strconv.FormatFloat(v.Float64, 'f', 0, 64)
}
