package main

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/walletpool/cmd/walletpool/commands"
	"git.home.luguber.info/inful/walletpool/internal/foundation/errors"
	"git.home.luguber.info/inful/walletpool/internal/version"
)

func main() {
	cli := &commands.CLI{}
	parser := kong.Parse(cli,
		kong.Name("walletpool"),
		kong.Description("Deposit address pool backed by a wallet daemon."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)

	global := &commands.Global{Out: os.Stdout}
	if err := parser.Run(global, cli); err != nil {
		adapter := errors.NewCLIErrorAdapter(cli.Verbose, slog.Default())
		adapter.Log(err)
		_, _ = os.Stderr.WriteString(adapter.FormatError(err) + "\n")
		os.Exit(adapter.ExitCodeFor(err))
	}
}
