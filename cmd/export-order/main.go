// Command export-order generates a transfer order from the command line.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/garyjia/resident-payroll/internal/config"
	"github.com/garyjia/resident-payroll/internal/container"
	"github.com/garyjia/resident-payroll/internal/transferorder"
	"github.com/garyjia/resident-payroll/pkg/utils"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	now := time.Now()

	var (
		configFile = pflag.StringP("config", "c", "configs/config.yaml", "configuration file")
		kindName   = pflag.StringP("kind", "k", string(transferorder.KindPayment), "document kind: "+transferorder.KindNames())
		formatName = pflag.StringP("format", "f", string(transferorder.FormatXLSX), "output format: xlsx or pdf")
		year       = pflag.IntP("year", "y", now.Year(), "payment year")
		month      = pflag.IntP("month", "m", int(now.Month()), "payment month (1-12)")
		search     = pflag.StringP("search", "s", "", "beneficiary name filter")
		preview    = pflag.Bool("preview", false, "print the page plan without writing a file")
	)
	pflag.Parse()

	if err := run(*configFile, *kindName, *formatName, *year, *month, *search, *preview); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configFile, kindName, formatName string, year, month int, search string, preview bool) error {
	if err := config.LoadEnvFile(".env"); err != nil {
		return err
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: "stderr",
		Format:     "console",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	kind, err := transferorder.ParseKind(kindName)
	if err != nil {
		return err
	}
	format, err := transferorder.ParseFormat(formatName)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := container.NewContainer(cfg, logger)
	if err != nil {
		return err
	}
	if err := c.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := c.Close(); err != nil {
			logger.Warn("Failed to close container", zap.Error(err))
		}
	}()

	req := transferorder.Request{
		Kind:   kind,
		Format: format,
		Year:   year,
		Month:  month,
		Search: utils.SanitizeSearch(search),
	}

	if preview {
		return printPreview(ctx, c.Exporter(), req)
	}

	result, err := c.Exporter().Export(ctx, req)
	if err != nil {
		return err
	}

	printResult(os.Stdout, result)
	return nil
}

// currency is printed after every amount
const currency = "DH"

func printResult(w io.Writer, result *transferorder.Result) {
	fmt.Fprintln(w, result.Message)
	fmt.Fprintf(w, "Location:      %s\n", result.Location)
	fmt.Fprintf(w, "Pages:         %d\n", result.Pages)
	fmt.Fprintf(w, "Beneficiaries: %d\n", result.Beneficiaries)
	fmt.Fprintf(w, "Total:         %s %s\n", result.GrandTotal, currency)
	fmt.Fprintf(w, "In words:      %s\n", result.AmountInWords)
	for _, s := range result.Skipped {
		fmt.Fprintf(w, "  skipped #%d %s: %s\n", s.Index, s.BeneficiaryName, s.Reason)
	}
}

func printPreview(ctx context.Context, exporter *transferorder.Exporter, req transferorder.Request) error {
	p, err := exporter.Preview(ctx, req)
	if err != nil {
		return err
	}

	fmt.Printf("%s (%d beneficiaries)\n", p.FileName, len(p.Aggregation.Groups))
	if !p.Enabled {
		fmt.Println("Nothing to export for this period.")
		return nil
	}
	for i, page := range p.Plan.Pages {
		fmt.Printf("Page %d: %d rows\n", i+1, len(page.Rows))
	}
	fmt.Printf("Total: %s %s\n", p.Plan.GrandTotal.StringFixed(2), currency)
	return nil
}
