package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v2"

	"matrixci/internal/audit"
	"matrixci/internal/core"
	"matrixci/internal/security"
	"matrixci/internal/storage"
)

// validateConfig loads the pipeline definition and prints what each
// pipeline would expand to.
func validateConfig(c *cli.Context) error {
	cfg, err := core.LoadConfig(c.String(flagConfig))
	if err != nil {
		return err
	}
	for _, p := range cfg.Pipelines {
		jobs, err := p.Jobs()
		if err != nil {
			return err
		}
		fmt.Printf("pipeline %q: on %s", p.Name, p.Trigger.Kind)
		if p.Trigger.Label != "" {
			fmt.Printf(" with label %q", p.Trigger.Label)
		}
		fmt.Printf(", %d job(s)\n", len(jobs))
	}
	fmt.Println("configuration ok")
	return nil
}

// runLocal is the one-shot mode: load config and event, run every matching
// pipeline on this host, print each report, exit non-zero if anything did
// not succeed.
func runLocal(c *cli.Context) error {
	cfg, err := core.LoadConfig(c.String(flagConfig))
	if err != nil {
		return err
	}
	ev, err := loadEvent(c.String(flagEvent))
	if err != nil {
		return err
	}

	executor := &core.ShellExecutor{
		Timeout: 5 * time.Minute,
		Logs:    storage.NewLogStore(c.String(flagLogDir)),
	}
	orch := core.NewOrchestrator(executor, c.Int(flagMaxParallel))

	var ledger *audit.Ledger
	if path := c.String(flagLedger); path != "" {
		if ledger, err = audit.Open(path); err != nil {
			return err
		}
	}

	failed := false
	for _, p := range cfg.Pipelines {
		run := orch.Start(c.Context, p, ev)
		if run.State() == core.RunSkipped {
			fmt.Printf("pipeline %q skipped\n", p.Name)
			continue
		}
		run.Wait()
		if err := run.Err(); err != nil {
			return err
		}

		report := run.Report()
		fmt.Println(renderReport(report))
		if report.Status != core.RunSucceeded {
			failed = true
		}

		if ledger != nil {
			if err := appendToLedger(ledger, report, c.String(flagKeyDir)); err != nil {
				return err
			}
		}
	}

	if failed {
		return cli.Exit("one or more runs failed", 1)
	}
	return nil
}

func loadEvent(path string) (core.Event, error) {
	var ev core.Event
	data, err := os.ReadFile(path)
	if err != nil {
		return ev, err
	}
	if err := json.Unmarshal(data, &ev); err != nil {
		return ev, fmt.Errorf("cannot parse event %s: %w", path, err)
	}
	return ev, nil
}

func appendToLedger(ledger *audit.Ledger, report *core.RunReport, keyDir string) error {
	priv, err := security.LoadPrivateKey(filepath.Join(keyDir, "server.priv"))
	if err != nil {
		return err
	}
	pub, err := security.LoadPublicKey(filepath.Join(keyDir, "server.pub"))
	if err != nil {
		return err
	}
	return ledger.RecordReport(report, priv, pub)
}
