package main

import "github.com/urfave/cli/v2"

const (
	flagConfig      = "config"
	flagEvent       = "event"
	flagKeyDir      = "key-dir"
	flagLedger      = "ledger"
	flagLogDir      = "log-dir"
	flagMaxParallel = "max-parallel"
	flagServer      = "server"
)

var configFlag = &cli.StringFlag{
	Name:    flagConfig,
	Aliases: []string{"c"},
	Usage:   "The location of the pipeline definition file",
	Value:   "./matrixci.yaml",
}

var serverFlag = &cli.StringFlag{
	Name:    flagServer,
	Aliases: []string{"s"},
	Usage:   "Base URL of the matrixci server",
	Value:   "http://localhost:8080",
}

var ledgerFlag = &cli.StringFlag{
	Name:  flagLedger,
	Usage: "The location of the ledger file",
	Value: "./ledger.jsonl",
}
