package jobtools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/corvid-labs/quill/src/tools"
)

// FetchPostingName is the job-posting fetch tool.
const FetchPostingName = "fetch_posting"

// maxPostingSize bounds the downloaded body.
const maxPostingSize = 5 * 1024 * 1024

// FetchPostingSpec returns the registrable spec for downloading a job
// posting and converting it to something the model can read.
func FetchPostingSpec() *tools.Spec {
	return &tools.Spec{
		Name: FetchPostingName,
		Description: "Fetch a job posting from a URL and return its content " +
			"as markdown or plain text.",
		Params: []tools.Param{
			{
				Name:        "url",
				Type:        "string",
				Description: "The posting URL (http or https)",
				Required:    true,
			},
			{
				Name:        "format",
				Type:        "string",
				Description: "Output format",
				Enum:        []string{"markdown", "text", "html"},
				Default:     "markdown",
			},
		},
		Fn: fetchPosting,
	}
}

func fetchPosting(ctx context.Context, args map[string]any) (any, error) {
	url, _ := args["url"].(string)
	format, _ := args["format"].(string)
	if format == "" {
		format = "markdown"
	}

	if url == "" {
		return nil, fmt.Errorf("url is required")
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return nil, fmt.Errorf("url must start with http:// or https://")
	}

	client := &http.Client{
		Timeout: 30 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return fmt.Errorf("too many redirects")
			}
			return nil
		},
	}

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "quill/1.0")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch url: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("request failed with status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPostingSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	content := string(body)
	contentType := resp.Header.Get("Content-Type")
	isHTML := strings.Contains(contentType, "text/html")

	switch format {
	case "text":
		if isHTML {
			if text, err := extractTextFromHTML(content); err == nil {
				content = text
			}
		}
	case "markdown":
		if isHTML {
			if markdown, err := convertHTMLToMarkdown(content); err == nil {
				content = markdown
			} else {
				content = "```html\n" + content + "\n```"
			}
		}
	case "html":
		// raw body
	default:
		return nil, fmt.Errorf("format must be one of: markdown, text, html")
	}

	return map[string]any{
		"url":          resp.Request.URL.String(),
		"status_code":  resp.StatusCode,
		"content_type": contentType,
		"content":      content,
	}, nil
}

// extractTextFromHTML extracts plain text from HTML content.
func extractTextFromHTML(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc.Find("script, style").Each(func(i int, s *goquery.Selection) {
		s.Remove()
	})

	lines := strings.Split(doc.Text(), "\n")
	var cleaned []string
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return strings.Join(cleaned, "\n"), nil
}

// convertHTMLToMarkdown converts HTML content to Markdown.
func convertHTMLToMarkdown(html string) (string, error) {
	converter := md.NewConverter("", true, nil)
	markdown, err := converter.ConvertString(html)
	if err != nil {
		return "", fmt.Errorf("failed to convert HTML to Markdown: %w", err)
	}
	markdown = strings.TrimSpace(markdown)
	markdown = strings.ReplaceAll(markdown, "\n\n\n", "\n\n")
	return markdown, nil
}
