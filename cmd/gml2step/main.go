package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/geoforge/gml2step/cmd/gml2step/commands"
	"github.com/geoforge/gml2step/internal/errors"
	"github.com/geoforge/gml2step/internal/version"
)

func main() {
	cli := &commands.CLI{}
	ctx := kong.Parse(cli,
		kong.Name("gml2step"),
		kong.Description("Convert CityGML building models into STEP solid geometry."),
		kong.UsageOnError(),
		kong.Vars{"version": version.Full()},
	)

	if err := ctx.Run(&commands.Global{}); err != nil {
		adapter := errors.NewCLIAdapter(cli.Verbose, nil)
		fmt.Fprintln(os.Stderr, adapter.FormatError(err))
		adapter.LogError(err)
		os.Exit(adapter.ExitCodeFor(err))
	}
}
