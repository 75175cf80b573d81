package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/corvid-labs/quill/src/app"
	"github.com/corvid-labs/quill/src/corpus"
)

// CorpusCmd manages the local document corpus.
type CorpusCmd struct {
	Add    CorpusAddCmd    `cmd:"" help:"Add a text file to the corpus"`
	Search CorpusSearchCmd `cmd:"" help:"Search the corpus"`
}

// CorpusAddCmd ingests a plain-text file as one document.
type CorpusAddCmd struct {
	Path  string `arg:"" help:"File to ingest"`
	Title string `help:"Document title (defaults to the file name)"`
}

func (c *CorpusAddCmd) Run(cli *CLI) error {
	logger := createLogger(cli.LogLevel)

	instance, err := app.New(context.Background(), app.Config{Logger: logger})
	if err != nil {
		return err
	}
	defer instance.Close()

	if instance.Corpus == nil {
		return fmt.Errorf("corpus database is unavailable")
	}

	data, err := os.ReadFile(c.Path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", c.Path, err)
	}

	title := c.Title
	if title == "" {
		title = filepath.Base(c.Path)
	}

	doc := &corpus.Document{
		Source:  c.Path,
		Title:   title,
		Content: string(data),
	}
	if err := instance.Corpus.AddDocument(context.Background(), doc); err != nil {
		return fmt.Errorf("failed to add document: %w", err)
	}
	fmt.Printf("added %s (%d bytes) as %s\n", title, len(data), doc.ID)
	return nil
}

// CorpusSearchCmd runs a keyword query.
type CorpusSearchCmd struct {
	Query []string `arg:"" help:"Search terms"`
	K     int      `short:"k" help:"Number of results" default:"3"`
}

func (c *CorpusSearchCmd) Run(cli *CLI) error {
	logger := createLogger(cli.LogLevel)

	instance, err := app.New(context.Background(), app.Config{Logger: logger})
	if err != nil {
		return err
	}
	defer instance.Close()

	if instance.Corpus == nil {
		return fmt.Errorf("corpus database is unavailable")
	}

	hits, err := instance.Corpus.Search(context.Background(), strings.Join(c.Query, " "), c.K)
	if err != nil {
		return err
	}
	for _, hit := range hits {
		fmt.Printf("%d. %s (%s, p.%d) score=%.1f\n", hit.Rank, hit.Title, hit.Source, hit.Page, hit.Score)
	}
	return nil
}
