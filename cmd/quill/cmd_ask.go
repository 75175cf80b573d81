package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/corvid-labs/quill/src/app"
	"github.com/corvid-labs/quill/src/orchestrator"
)

var (
	replyStyle = lipgloss.NewStyle().PaddingLeft(2)
	agentStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
)

// AskCmd sends a single message through the orchestrator.
type AskCmd struct {
	Text  []string `arg:"" help:"The message to send"`
	Model string   `short:"m" help:"Model override for the primary agent"`
	Image []string `help:"Image URL or data URI to attach"`
	Raw   bool     `help:"Print the reply without styling"`
}

func (a *AskCmd) Run(cli *CLI) error {
	logger := createLogger(cli.LogLevel)

	instance, err := app.New(context.Background(), app.Config{
		APIKey:  cli.APIKey,
		BaseURL: cli.BaseURL,
		Logger:  logger,
	})
	if err != nil {
		return err
	}
	defer instance.Close()

	reply := instance.Orchestrator.Chat(context.Background(), a.Model, strings.Join(a.Text, " "), orchestrator.ChatOptions{
		Images: a.Image,
	})

	if a.Raw {
		fmt.Println(reply)
		return nil
	}
	fmt.Println(agentStyle.Render("assistant"))
	fmt.Println(replyStyle.Render(reply))
	return nil
}
