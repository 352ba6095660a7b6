// ABOUTME: Exports a Dust conversation as a standalone HTML page
// ABOUTME: Renders message markdown with goldmark into an embedded template

package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"html/template"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yuin/goldmark"

	"github.com/2389/dust-go"
	"github.com/2389/dust-go/internal/cliconfig"
)

// renderedMessage is one conversation entry prepared for the template.
type renderedMessage struct {
	Author string
	Role   string
	HTML   template.HTML
}

// page is the template payload for one exported conversation.
type page struct {
	Title          string
	ConversationID string
	Workspace      string
	ExportedAt     string
	Messages       []renderedMessage
}

func main() {
	conversationID := flag.String("conversation", "", "Conversation sId to export (required)")
	output := flag.String("o", "", "Output file (default: <sId>.html)")
	flag.Parse()

	if *conversationID == "" {
		fmt.Fprintln(os.Stderr, "Usage: dust-export -conversation <sId> [-o out.html]")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, *conversationID, *output); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, conversationID, output string) error {
	clientCfg, err := loadClientConfig()
	if err != nil {
		return err
	}
	clientCfg.UserAgentSuffix = "dust-export"

	client, err := dust.NewClient(clientCfg)
	if err != nil {
		return err
	}
	defer client.Close()

	conv, err := client.Conversations.Get(ctx, conversationID)
	if err != nil {
		return err
	}

	data := page{
		Title:          conv.Title,
		ConversationID: conv.SID,
		Workspace:      clientCfg.WorkspaceID,
		ExportedAt:     time.Now().Format("Jan 02 2006 15:04"),
	}
	if data.Title == "" {
		data.Title = "Conversation " + conv.SID
	}

	for _, entry := range conv.LiveEntries() {
		if entry.Content == "" {
			continue
		}

		role := "agent"
		author := "Agent"
		if entry.Type == dust.EntryTypeUserMessage {
			role = "user"
			author = "You"
		}

		// Message content is markdown; convert it for the page.
		var htmlBuf bytes.Buffer
		if err := goldmark.Convert([]byte(entry.Content), &htmlBuf); err != nil {
			return fmt.Errorf("converting message %s: %w", entry.SID, err)
		}

		data.Messages = append(data.Messages, renderedMessage{
			Author: author,
			Role:   role,
			HTML:   template.HTML(htmlBuf.String()),
		})
	}

	if output == "" {
		output = conv.SID + ".html"
	}
	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("creating %s: %w", output, err)
	}
	defer f.Close()

	tmpl := template.Must(template.ParseFS(templateFS, "templates/export.html"))
	if err := tmpl.Execute(f, data); err != nil {
		return fmt.Errorf("rendering page: %w", err)
	}

	fmt.Printf("Exported %d messages to %s\n", len(data.Messages), output)
	return nil
}

// loadClientConfig builds the SDK config from the environment, falling
// back to the default config file.
func loadClientConfig() (dust.Config, error) {
	cfg, err := dust.ConfigFromEnv()
	if err == nil {
		return *cfg, nil
	}

	path, pathErr := cliconfig.DefaultPath()
	if pathErr != nil {
		return dust.Config{}, err
	}
	fileCfg, loadErr := cliconfig.Load(path)
	if loadErr != nil {
		return dust.Config{}, err
	}
	return fileCfg.ClientConfig(), nil
}
