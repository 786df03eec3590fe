package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	app := cli.NewApp()
	app.Name = "matrixci"
	app.Usage = "Expand build matrices and verify changes across every cell"
	app.Commands = []*cli.Command{
		{
			Name:      "validate",
			Usage:     "Validate a pipeline definition file",
			ArgsUsage: " ",
			Flags: []cli.Flag{
				configFlag,
			},
			Action: validateConfig,
		},
		{
			Name:  "run",
			Usage: "Run matching pipelines locally for an event and print the report",
			Flags: []cli.Flag{
				configFlag,
				&cli.StringFlag{
					Name:     flagEvent,
					Aliases:  []string{"e"},
					Usage:    "The location of a JSON file containing the event",
					Required: true,
				},
				&cli.StringFlag{
					Name:  flagLogDir,
					Usage: "Directory for captured job output",
					Value: "./logs",
				},
				&cli.StringFlag{
					Name:  flagLedger,
					Usage: "If set, append signed records for each run to this ledger file",
				},
				&cli.StringFlag{
					Name:  flagKeyDir,
					Usage: "Directory holding the ledger signing keypair",
					Value: "./keys",
				},
				&cli.IntFlag{
					Name:  flagMaxParallel,
					Usage: "Maximum number of jobs executing at once",
					Value: 4,
				},
			},
			Action: runLocal,
		},
		{
			Name:  "event",
			Usage: "Manage events",
			Subcommands: []*cli.Command{
				{
					Name:  "submit",
					Usage: "Submit an event to a matrixci server",
					Flags: []cli.Flag{
						serverFlag,
						&cli.StringFlag{
							Name:     flagEvent,
							Aliases:  []string{"e"},
							Usage:    "The location of a JSON file containing the event",
							Required: true,
						},
					},
					Action: eventSubmit,
				},
			},
		},
		{
			Name:      "report",
			Usage:     "Fetch and render the report for a run",
			ArgsUsage: "RUN_ID",
			Flags: []cli.Flag{
				serverFlag,
			},
			Action: runReport,
		},
		{
			Name:  "ledger",
			Usage: "Inspect and verify the audit ledger",
			Subcommands: []*cli.Command{
				{
					Name:   "verify",
					Usage:  "Verify the ledger's hash chain and signatures",
					Flags:  []cli.Flag{ledgerFlag},
					Action: ledgerVerify,
				},
				{
					Name:   "inspect",
					Usage:  "List ledger records",
					Flags:  []cli.Flag{ledgerFlag},
					Action: ledgerInspect,
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
