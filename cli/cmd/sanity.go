package cmd

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/docxology/seqfetch/log"
	"github.com/docxology/seqfetch/metadata"
	"github.com/docxology/seqfetch/sanity"
)

// SanityCommand returns the sanity command. It only reads the output
// tree and writes report files; it never fetches.
func SanityCommand() *cli.Command {
	return &cli.Command{
		Name:  "sanity",
		Usage: "Check fetched, indexed and quantified outputs for gaps",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "metadata",
				Usage:    "Path to metadata TSV",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "out-dir",
				Aliases: []string{"o"},
				Usage:   "Output root directory to check",
				Value:   ".",
			},
			&cli.StringFlag{
				Name:  "index-dir",
				Usage: "Directory holding per-species alignment indexes",
			},
		},
		Action: sanityAction,
	}
}

func sanityAction(c *cli.Context) error {
	logger := log.NewLogger(uuid.New().String())
	sug := logger.Sugar().With("command", "sanity")

	table, err := metadata.Load(c.String("metadata"))
	if err != nil {
		return cli.Exit(err.Error(), exitFetchError)
	}
	sug.Infof("checking %d runs under %s", len(table.Runs()), c.String("out-dir"))

	checker := sanity.NewChecker(c.String("out-dir"), c.String("index-dir"), logger)
	report, err := checker.Run(table)
	if err != nil {
		return cli.Exit(fmt.Sprintf("sanity check failed: %v", err), exitFetchError)
	}

	fmt.Printf("runs without fastq:    %d\n", len(report.RunsWithoutFastq))
	if c.String("index-dir") != "" {
		fmt.Printf("species without index: %d\n", len(report.SpeciesWithoutIndex))
	}
	fmt.Printf("runs without quant:    %d\n", len(report.RunsWithoutQuant))

	if !report.Clean() {
		sug.Warnf("found gaps: %d runs without fastq, %d species without index, %d runs without quant",
			len(report.RunsWithoutFastq), len(report.SpeciesWithoutIndex), len(report.RunsWithoutQuant))
		return cli.Exit("", exitFetchError)
	}
	return nil
}
