package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"git.home.luguber.info/inful/webhookcatcher/internal/config"
	"git.home.luguber.info/inful/webhookcatcher/internal/export"
	"git.home.luguber.info/inful/webhookcatcher/internal/logfields"
)

// ExportCmd implements the 'export' command.
type ExportCmd struct {
	Format string `short:"f" help:"Output format (json or csv)" default:"json"`
	Output string `short:"o" help:"Output file; '-' writes to stdout" default:"-"`
}

func (e *ExportCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(g, root)
	if err != nil {
		return err
	}
	if e.Output == "-" {
		return RunExport(context.Background(), cfg, e.Format, os.Stdout)
	}

	f, err := os.Create(e.Output)
	if err != nil {
		return fmt.Errorf("create %s: %w", e.Output, err)
	}
	if err := RunExport(context.Background(), cfg, e.Format, f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// RunExport writes every stored event to w in the named format.
func RunExport(ctx context.Context, cfg *config.Config, format string, w io.Writer) error {
	f, err := export.ParseFormat(format)
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	events, err := store.All(ctx)
	if err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	if err := export.Encode(bw, f, events); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	slog.Info("Export complete", logfields.Format(string(f)), logfields.Count(int64(len(events))))
	return nil
}
