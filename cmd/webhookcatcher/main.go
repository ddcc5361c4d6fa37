package main

import (
	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/webhookcatcher/cmd/webhookcatcher/commands"
	"git.home.luguber.info/inful/webhookcatcher/internal/foundation/errors"
	"git.home.luguber.info/inful/webhookcatcher/internal/version"
)

func main() {
	var cli commands.CLI
	global := &commands.Global{}

	ctx := kong.Parse(&cli,
		kong.Name("webhookcatcher"),
		kong.Description("Capture, browse, forward and replay webhooks."),
		kong.UsageOnError(),
		kong.Vars{"version": version.Version},
		kong.Bind(global),
	)

	err := ctx.Run(&cli)
	errors.NewCLIErrorAdapter(cli.Verbose, global.Logger).HandleError(err)
}
