// Command garagefact is the presentation layer of the garage invoicing
// ledger: a small CLI over the internal services. One invocation, one
// operation — except `backup -watch`, which stays up and snapshots the
// database on a schedule until interrupted.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/yass-hmr/HA-Autos-Facturation/internal/backup"
	"github.com/yass-hmr/HA-Autos-Facturation/internal/config"
	"github.com/yass-hmr/HA-Autos-Facturation/internal/dates"
	"github.com/yass-hmr/HA-Autos-Facturation/internal/dto"
	"github.com/yass-hmr/HA-Autos-Facturation/internal/infra"
	"github.com/yass-hmr/HA-Autos-Facturation/internal/model"
	"github.com/yass-hmr/HA-Autos-Facturation/internal/money"
	"github.com/yass-hmr/HA-Autos-Facturation/internal/repository"
	"github.com/yass-hmr/HA-Autos-Facturation/internal/service"
)

const usage = `usage: garagefact <command> [flags]

commands:
  init                         create/migrate the database
  settings [set]               show or update garage settings
  create                       create a draft invoice
  list [-search TERM]          list invoices
  show -invoice ID             show one invoice with its lines
  line add|update|rm           edit draft lines
  finalize -invoice ID         assign a number and freeze the invoice
  pay -invoice ID              mark a finalized invoice as paid
  cancel -invoice ID           cancel a finalized invoice
  delete -invoice ID           delete an invoice (cascades)
  pdf -invoice ID              export the invoice PDF
  exports [-invoice ID]        list recorded PDF exports
  backup [-watch]              snapshot the database now, or on a schedule
`

// app bundles everything a command needs; built once in main (composition root).
type app struct {
	cfg      *config.Config
	invoices service.InvoiceService
	exports  service.ExportService
	settings repository.SettingsRepository
	manager  *backup.Manager
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	// Structured logger — dev: pretty, otherwise JSON
	if cfg.Env == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	db, err := infra.NewDatabase(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("failed to open database")
	}

	invoiceRepo := repository.NewInvoiceRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)
	exportRepo := repository.NewPdfExportRepository(db)

	invoiceSvc := service.NewInvoiceService(invoiceRepo, exportRepo, cfg.VATRate)
	a := &app{
		cfg:      cfg,
		invoices: invoiceSvc,
		exports:  service.NewExportService(invoiceSvc, settingsRepo, exportRepo, cfg.PDFStoragePath),
		settings: settingsRepo,
		manager:  backup.NewManager(db, settingsRepo, cfg.BackupKeepLast),
	}

	ctx := context.Background()
	if err := a.dispatch(ctx, os.Args[1], os.Args[2:]); err != nil {
		log.Fatal().Err(err).Msg(os.Args[1] + " failed")
	}
}

func (a *app) dispatch(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "init":
		fmt.Printf("database ready at %s\n", a.cfg.DBPath)
		return nil
	case "settings":
		return a.cmdSettings(ctx, args)
	case "create":
		return a.cmdCreate(ctx, args)
	case "list":
		return a.cmdList(ctx, args)
	case "show":
		return a.cmdShow(ctx, args)
	case "line":
		return a.cmdLine(ctx, args)
	case "finalize":
		return a.cmdTransition(ctx, args, a.invoices.Finalize)
	case "pay":
		return a.cmdTransition(ctx, args, a.invoices.MarkPaid)
	case "cancel":
		return a.cmdTransition(ctx, args, a.invoices.Cancel)
	case "delete":
		return a.cmdDelete(ctx, args)
	case "pdf":
		return a.cmdPDF(ctx, args)
	case "exports":
		return a.cmdExports(ctx, args)
	case "backup":
		return a.cmdBackup(ctx, args)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// ── settings ─────────────────────────────────────────────────────────────────

func (a *app) cmdSettings(ctx context.Context, args []string) error {
	if len(args) > 0 && args[0] == "set" {
		fs := flag.NewFlagSet("settings set", flag.ExitOnError)
		name := fs.String("name", "", "garage name")
		address := fs.String("address", "", "garage address")
		cp := fs.String("postal-code", "", "garage postal code")
		phone := fs.String("phone", "", "garage phone")
		siret := fs.String("siret", "", "garage SIRET")
		backupDir := fs.String("backup-dir", "", "backup destination directory")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		s, err := a.settings.Get(ctx)
		if err != nil {
			return err
		}
		apply := func(dst *string, v string) {
			if v != "" {
				*dst = strings.TrimSpace(v)
			}
		}
		apply(&s.GarageName, *name)
		apply(&s.GarageAddress, *address)
		apply(&s.GaragePostalCode, *cp)
		apply(&s.GaragePhone, *phone)
		apply(&s.GarageSiret, *siret)
		apply(&s.OnedriveBackupDir, *backupDir)
		return a.settings.Update(ctx, s)
	}

	s, err := a.settings.Get(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("name:        %s\n", s.GarageName)
	fmt.Printf("address:     %s\n", s.GarageAddress)
	fmt.Printf("postal code: %s\n", s.GaragePostalCode)
	fmt.Printf("phone:       %s\n", s.GaragePhone)
	fmt.Printf("siret:       %s\n", s.GarageSiret)
	fmt.Printf("backup dir:  %s\n", s.OnedriveBackupDir)
	if s.LastBackupAt != nil {
		fmt.Printf("last backup: %s\n", s.LastBackupAt.Format(time.RFC3339))
	}
	return nil
}

// ── invoices ─────────────────────────────────────────────────────────────────

func (a *app) cmdCreate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	name := fs.String("name", "", "customer name")
	address := fs.String("address", "", "customer address")
	cp := fs.String("postal-code", "", "customer postal code")
	date := fs.String("date", "", "invoice date (dd/mm/yyyy, default today)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	iso, err := dates.FRToISO(*date)
	if err != nil {
		return err
	}
	inv, err := a.invoices.CreateDraft(ctx, dto.CustomerInput{
		Name:       strings.TrimSpace(*name),
		Address:    strings.TrimSpace(*address),
		PostalCode: strings.TrimSpace(*cp),
	}, iso)
	if err != nil {
		return err
	}
	fmt.Printf("draft invoice %d created\n", inv.ID)
	return nil
}

func (a *app) cmdList(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	search := fs.String("search", "", "filter on number, customer, or date")
	if err := fs.Parse(args); err != nil {
		return err
	}
	items, err := a.invoices.List(ctx, dto.InvoiceFilter{Search: *search})
	if err != nil {
		return err
	}
	fmt.Printf("%-5s %-8s %-10s %-10s %-24s %12s\n", "ID", "NUMBER", "DATE", "STATUS", "CUSTOMER", "TOTAL")
	for _, it := range items {
		number := ""
		if it.Number != nil {
			number = *it.Number
		}
		fmt.Printf("%-5d %-8s %-10s %-10s %-24s %12s\n",
			it.ID, number, dates.ISOToFR(it.Date), it.Status, it.CustomerName, money.FormatCents(it.TotalCents))
	}
	return nil
}

func (a *app) cmdShow(ctx context.Context, args []string) error {
	id, err := invoiceIDFlag("show", args)
	if err != nil {
		return err
	}
	inv, err := a.invoices.Get(ctx, id)
	if err != nil {
		return err
	}
	number := "(draft)"
	if inv.Number != nil {
		number = *inv.Number
	}
	fmt.Printf("invoice %d  n° %s  %s  %s\n", inv.ID, number, dates.ISOToFR(inv.Date), inv.Status)
	fmt.Printf("customer: %s, %s %s\n", inv.CustomerName, inv.CustomerAddress, inv.CustomerPostalCode)
	for _, ln := range inv.Lines {
		fmt.Printf("  %2d. %-40s x%-4d %10s %12s\n",
			ln.Position, ln.Description, ln.Qty,
			money.FormatCents(ln.UnitPriceCents), money.FormatCents(ln.LineTotalCents))
	}
	fmt.Printf("subtotal: %s   vat (%d%%): %s   total: %s\n",
		money.FormatCents(inv.SubtotalCents), inv.VatRate,
		money.FormatCents(inv.VatCents), money.FormatCents(inv.TotalCents))
	return nil
}

func (a *app) cmdLine(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: garagefact line add|update|rm [flags]")
	}
	sub, rest := args[0], args[1:]

	fs := flag.NewFlagSet("line "+sub, flag.ExitOnError)
	invoiceID := fs.Uint("invoice", 0, "invoice id")
	lineID := fs.Uint("id", 0, "line id (update only)")
	pos := fs.Int("pos", 0, "1-based line position")
	qty := fs.Int("qty", 0, "quantity")
	desc := fs.String("desc", "", "description")
	price := fs.String("price", "0", "unit price in euros, e.g. 12,50")
	if err := fs.Parse(rest); err != nil {
		return err
	}
	if *invoiceID == 0 {
		return fmt.Errorf("-invoice is required")
	}

	switch sub {
	case "add", "update":
		cents, err := money.ParseEuros(*price)
		if err != nil {
			return err
		}
		in := dto.LineInput{
			ID:             *lineID,
			Position:       *pos,
			Qty:            *qty,
			Description:    strings.TrimSpace(*desc),
			UnitPriceCents: cents,
		}
		if sub == "add" {
			in.ID = 0
		} else if in.ID == 0 {
			return fmt.Errorf("-id is required for line update")
		}
		inv, err := a.invoices.AddOrUpdateLine(ctx, uint(*invoiceID), in)
		if err != nil {
			return err
		}
		fmt.Printf("invoice %d total is now %s\n", inv.ID, money.FormatCents(inv.TotalCents))
		return nil
	case "rm":
		inv, err := a.invoices.RemoveLine(ctx, uint(*invoiceID), *pos)
		if err != nil {
			return err
		}
		fmt.Printf("invoice %d total is now %s\n", inv.ID, money.FormatCents(inv.TotalCents))
		return nil
	default:
		return fmt.Errorf("unknown line subcommand %q", sub)
	}
}

func (a *app) cmdTransition(ctx context.Context, args []string, op func(context.Context, uint) (*model.Invoice, error)) error {
	id, err := invoiceIDFlag("transition", args)
	if err != nil {
		return err
	}
	inv, err := op(ctx, id)
	if err != nil {
		return err
	}
	number := ""
	if inv.Number != nil {
		number = " n° " + *inv.Number
	}
	fmt.Printf("invoice %d%s is now %s\n", inv.ID, number, inv.Status)
	return nil
}

func (a *app) cmdDelete(ctx context.Context, args []string) error {
	id, err := invoiceIDFlag("delete", args)
	if err != nil {
		return err
	}
	if err := a.invoices.Delete(ctx, id); err != nil {
		return err
	}
	fmt.Printf("invoice %d deleted\n", id)
	return nil
}

// ── pdf / exports ────────────────────────────────────────────────────────────

func (a *app) cmdPDF(ctx context.Context, args []string) error {
	id, err := invoiceIDFlag("pdf", args)
	if err != nil {
		return err
	}
	export, err := a.exports.ExportInvoicePDF(ctx, id)
	if err != nil {
		return err
	}
	fmt.Printf("exported %s\n", export.Filename)
	return nil
}

func (a *app) cmdExports(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("exports", flag.ExitOnError)
	invoiceID := fs.Uint("invoice", 0, "restrict to one invoice")
	if err := fs.Parse(args); err != nil {
		return err
	}
	var (
		exports []model.PdfExport
		err     error
	)
	if *invoiceID != 0 {
		exports, err = a.exports.ListByInvoice(ctx, uint(*invoiceID))
	} else {
		exports, err = a.exports.ListAll(ctx)
	}
	if err != nil {
		return err
	}
	for _, e := range exports {
		fmt.Printf("%-5d invoice=%-5d %-30s %s  %s\n",
			e.ID, e.InvoiceID, e.Filename, e.Kind, e.CreatedAt.Format(time.RFC3339))
	}
	return nil
}

// ── backup ───────────────────────────────────────────────────────────────────

func (a *app) cmdBackup(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("backup", flag.ExitOnError)
	watch := fs.Bool("watch", false, "keep running and snapshot on a schedule")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if !*watch {
		res, err := a.manager.Create(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("backup written to %s\n", res.Path)
		return nil
	}

	interval := time.Duration(a.cfg.BackupIntervalMinutes) * time.Minute
	sched := backup.NewScheduler(a.manager, interval)
	if err := sched.Start(); err != nil {
		return err
	}

	// The scheduler only snapshots when the ledger changed; other garagefact
	// invocations mutate the DB file, so watch the file's mtime.
	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go a.watchDBChanges(watchCtx, sched)

	// Graceful shutdown on SIGINT / SIGTERM
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down backup watch…")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	sched.Stop(shutdownCtx)
	return nil
}

// watchDBChanges polls the database file's mtime and marks the scheduler
// dirty whenever another process wrote to it.
func (a *app) watchDBChanges(ctx context.Context, sched *backup.Scheduler) {
	var lastMod time.Time
	if info, err := os.Stat(a.cfg.DBPath); err == nil {
		lastMod = info.ModTime()
	}
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			info, err := os.Stat(a.cfg.DBPath)
			if err != nil {
				continue
			}
			if info.ModTime().After(lastMod) {
				lastMod = info.ModTime()
				sched.MarkDirty()
			}
		}
	}
}

// ── helpers ──────────────────────────────────────────────────────────────────

func invoiceIDFlag(name string, args []string) (uint, error) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	id := fs.Uint("invoice", 0, "invoice id")
	if err := fs.Parse(args); err != nil {
		return 0, err
	}
	if *id == 0 {
		return 0, fmt.Errorf("-invoice is required")
	}
	return uint(*id), nil
}
