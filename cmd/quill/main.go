package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
)

// CLI represents the main CLI structure
type CLI struct {
	APIKey   string `env:"OPENAI_API_KEY" help:"OpenAI API key"`
	BaseURL  string `help:"Custom API base URL"`
	LogLevel string `default:"warn" help:"Log level"`

	Ask     AskCmd     `cmd:"" help:"Send one message and print the assistant's reply"`
	Agents  AgentsCmd  `cmd:"" help:"List configured agents"`
	History HistoryCmd `cmd:"" help:"Inspect the chat history"`
	Corpus  CorpusCmd  `cmd:"" help:"Manage the local document corpus"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("quill"),
		kong.Description("Desktop AI assistant for job applications"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)

	err := ctx.Run(&cli)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
