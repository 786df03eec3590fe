package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/gosuri/uitable"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

// eventSubmit posts an event file to the server and lists the runs it
// started (or skipped).
func eventSubmit(c *cli.Context) error {
	data, err := os.ReadFile(c.String(flagEvent))
	if err != nil {
		return errors.Wrap(err, "read event file")
	}

	resp, err := http.Post(
		c.String(flagServer)+"/v1/events", "application/json", bytes.NewReader(data))
	if err != nil {
		return errors.Wrap(err, "submit event")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		return errors.Errorf("server returned %s", resp.Status)
	}

	var summaries []runSummary
	if err := json.NewDecoder(resp.Body).Decode(&summaries); err != nil {
		return errors.Wrap(err, "parse response")
	}

	table := uitable.New()
	table.AddRow("PIPELINE", "RUN", "STATE")
	for _, s := range summaries {
		table.AddRow(s.Pipeline, s.RunID, s.State)
	}
	fmt.Println(table)
	return nil
}
