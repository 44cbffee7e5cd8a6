package cmd

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/docxology/seqfetch/curate"
	"github.com/docxology/seqfetch/log"
	"github.com/docxology/seqfetch/metadata"
	"github.com/docxology/seqfetch/runtime"
)

// CurateCommand returns the curate command, which folds quantification
// results back into the metadata table.
func CurateCommand() *cli.Command {
	return &cli.Command{
		Name:  "curate",
		Usage: "Append mapping rates to the metadata table",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "metadata",
				Usage:    "Path to metadata TSV",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "out-dir",
				Aliases: []string{"o"},
				Usage:   "Output root directory holding quant results",
				Value:   ".",
			},
			&cli.StringFlag{
				Name:  "updated-metadata",
				Usage: "Path for the updated TSV (default: overwrite input)",
			},
			&cli.StringFlag{
				Name:  "stats-script",
				Usage: "R script run over the updated metadata via Rscript",
			},
		},
		Action: curateAction,
	}
}

func curateAction(c *cli.Context) error {
	logger := log.NewLogger(uuid.New().String())
	sug := logger.Sugar().With("command", "curate")

	table, err := metadata.Load(c.String("metadata"))
	if err != nil {
		return cli.Exit(err.Error(), exitFetchError)
	}

	exec := runtime.NewExecContext("", "")
	curator := curate.NewCurator(c.String("out-dir"), exec, logger)

	rates, missing := curator.MappingRates(table.Runs())
	if len(missing) > 0 {
		sug.Warnf("%d of %d accessions have no mapping rate", len(missing), len(rates))
	}

	dest := c.String("updated-metadata")
	if dest == "" {
		dest = c.String("metadata")
	}
	if err := curator.UpdateMetadata(table, rates, dest); err != nil {
		return cli.Exit(err.Error(), exitFetchError)
	}
	fmt.Printf("mapping_rate written for %d/%d accessions: %s\n",
		len(rates)-len(missing), len(rates), dest)

	if script := c.String("stats-script"); script != "" {
		if err := curator.RunStats(c.Context, script, dest); err != nil {
			sug.Errorf("stats script failed: %v", err)
			return cli.Exit(err.Error(), exitFetchError)
		}
	}
	return nil
}
