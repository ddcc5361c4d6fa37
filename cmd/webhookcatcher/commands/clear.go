package commands

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/webhookcatcher/internal/config"
	"git.home.luguber.info/inful/webhookcatcher/internal/foundation/errors"
	"git.home.luguber.info/inful/webhookcatcher/internal/logfields"
)

// ClearCmd implements the 'clear' command.
type ClearCmd struct {
	Yes bool `short:"y" help:"Confirm deleting every captured webhook"`
}

func (c *ClearCmd) Run(g *Global, root *CLI) error {
	if !c.Yes {
		return errors.ValidationError("refusing to delete every webhook without --yes").Build()
	}
	cfg, err := loadConfig(g, root)
	if err != nil {
		return err
	}
	_, err = RunClear(context.Background(), cfg)
	return err
}

// RunClear deletes every stored event and returns how many were removed.
func RunClear(ctx context.Context, cfg *config.Config) (int64, error) {
	store, err := openStore(cfg)
	if err != nil {
		return 0, err
	}
	defer func() { _ = store.Close() }()

	deleted, err := store.Clear(ctx)
	if err != nil {
		return 0, err
	}
	slog.Info("Webhooks cleared", logfields.Count(deleted))
	return deleted, nil
}
