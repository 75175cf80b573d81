package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/corvid-labs/quill/src/app"
)

// HistoryCmd inspects the persisted chat history.
type HistoryCmd struct {
	Tail int    `help:"Show only the last N records" default:"20"`
	Role string `help:"Filter by role"`
	JSON bool   `help:"Print records as JSON"`
}

func (h *HistoryCmd) Run(cli *CLI) error {
	logger := createLogger(cli.LogLevel)

	instance, err := app.New(context.Background(), app.Config{Logger: logger})
	if err != nil {
		return err
	}
	defer instance.Close()

	records := instance.History.Records()
	if h.Role != "" {
		records = instance.History.Find(map[string]any{"role": h.Role})
	}
	if h.Tail > 0 && len(records) > h.Tail {
		records = records[len(records)-h.Tail:]
	}

	for _, rec := range records {
		if h.JSON {
			data, err := json.Marshal(rec)
			if err != nil {
				continue
			}
			fmt.Println(string(data))
			continue
		}
		fmt.Printf("#%d [%s %s] %-9s %s\n", rec.ID, rec.Date, rec.Time, rec.Role, rec.Content.String())
	}
	return nil
}
