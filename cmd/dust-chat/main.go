// ABOUTME: Interactive chat client for Dust agents built on the dust-go SDK.
// ABOUTME: Provides a readline-style loop with slash commands and local history.

package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/2389/dust-go"
	"github.com/2389/dust-go/internal/cliconfig"
	"github.com/2389/dust-go/internal/history"
)

// options holds the parsed command line flags.
type options struct {
	configPath     string
	agent          string
	conversationID string
	title          string
	username       string
	timeout        time.Duration
	resume         bool
	noHistory      bool
	debug          bool
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "Config file path (default: user config dir)")
	flag.StringVar(&opts.agent, "agent", "", "Agent sId to chat with (overrides config)")
	flag.StringVar(&opts.conversationID, "conversation", "", "Conversation sId to continue")
	flag.StringVar(&opts.title, "title", "", "Title for a newly created conversation")
	flag.StringVar(&opts.username, "username", "", "Username attached to messages (overrides config)")
	flag.DurationVar(&opts.timeout, "timeout", 0, "Reply wait timeout (default: client timeout)")
	flag.BoolVar(&opts.resume, "resume", false, "Continue the most recent conversation from history")
	flag.BoolVar(&opts.noHistory, "no-history", false, "Disable local chat history")
	flag.BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	flag.Parse()

	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("\nGoodbye!")
}

// chatApp carries the per-session state of the interactive loop.
type chatApp struct {
	client         *dust.Client
	store          *history.Store
	logger         *slog.Logger
	workspace      string
	agent          string
	username       string
	timezone       string
	title          string
	timeout        time.Duration
	conversationID string
}

func run(opts options) error {
	cfg, clientCfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Logging, opts.debug)
	slog.SetDefault(logger)
	clientCfg.Logger = logger
	clientCfg.UserAgentSuffix = "dust-chat"

	app := &chatApp{
		logger:    logger,
		workspace: clientCfg.WorkspaceID,
		agent:     firstNonEmpty(opts.agent, cfg.Chat.Agent),
		username:  firstNonEmpty(opts.username, cfg.Chat.Username),
		timezone:  cfg.Chat.Timezone,
		title:     opts.title,
		timeout:   opts.timeout,
	}
	if app.agent == "" {
		return fmt.Errorf("an agent is required (set -agent or chat.agent in the config)")
	}
	if app.username == "" {
		return fmt.Errorf("a username is required (set -username or chat.username in the config)")
	}

	app.client, err = dust.NewClient(clientCfg)
	if err != nil {
		return err
	}
	defer app.client.Close()

	if !opts.noHistory && !cfg.History.Disabled {
		path, err := cfg.HistoryPath()
		if err != nil {
			return err
		}
		app.store, err = history.New(path)
		if err != nil {
			return fmt.Errorf("opening history: %w", err)
		}
		defer app.store.Close()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app.conversationID = opts.conversationID
	if app.conversationID == "" && opts.resume {
		if app.store == nil {
			return fmt.Errorf("-resume needs local history (remove -no-history)")
		}
		last, err := app.store.LastConversation(ctx, app.workspace, app.agent)
		switch {
		case errors.Is(err, history.ErrNoHistory):
			fmt.Println("No recorded conversation to resume; starting a new one.")
		case err != nil:
			return fmt.Errorf("looking up last conversation: %w", err)
		default:
			app.conversationID = last
		}
	}

	fmt.Printf("dust-chat connected to workspace %s\n", app.workspace)
	fmt.Printf("Agent: %s  User: %s\n", app.agent, app.username)
	if app.conversationID != "" {
		fmt.Printf("Continuing conversation %s\n", app.conversationID)
	}
	fmt.Println("Type a message and press Enter. /help for commands. Ctrl+C to quit.")
	fmt.Println()

	return loop(ctx, app)
}

// loadConfig resolves the CLI configuration. An explicit path must exist;
// otherwise the default file is used when present and the DUST_* variables
// when it is not.
func loadConfig(path string) (*cliconfig.Config, dust.Config, error) {
	if path != "" {
		cfg, err := cliconfig.Load(path)
		if err != nil {
			return nil, dust.Config{}, err
		}
		return cfg, cfg.ClientConfig(), nil
	}

	defaultPath, err := cliconfig.DefaultPath()
	if err == nil {
		if _, statErr := os.Stat(defaultPath); statErr == nil {
			cfg, err := cliconfig.Load(defaultPath)
			if err != nil {
				return nil, dust.Config{}, err
			}
			return cfg, cfg.ClientConfig(), nil
		}
	}

	clientCfg, err := dust.ConfigFromEnv()
	if err != nil {
		return nil, dust.Config{}, err
	}
	return &cliconfig.Config{}, *clientCfg, nil
}

func loop(ctx context.Context, app *chatApp) error {
	scanner := bufio.NewScanner(os.Stdin)
	prompt := color.New(color.FgCyan)

	for {
		prompt.Printf("[%s]> ", app.agent)

		// Read input with context awareness
		inputCh := make(chan string, 1)
		errCh := make(chan error, 1)

		go func() {
			if scanner.Scan() {
				inputCh <- scanner.Text()
			} else {
				if err := scanner.Err(); err != nil {
					errCh <- err
				} else {
					errCh <- io.EOF
				}
			}
		}()

		var input string
		select {
		case <-ctx.Done():
			return nil
		case err := <-errCh:
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("reading input: %w", err)
		case input = <-inputCh:
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if input == "/quit" || input == "/exit" || input == "/q" {
			return nil
		}

		if handled, err := handleCommand(ctx, app, input); handled {
			if err != nil {
				color.Red("[error] %v", err)
			}
			fmt.Println()
			continue
		}

		if err := sendMessage(ctx, app, input); err != nil {
			color.Red("[error] %v", err)
		}
		fmt.Println()
	}
}

// handleCommand dispatches slash commands. It reports whether input was a
// command at all.
func handleCommand(ctx context.Context, app *chatApp, input string) (bool, error) {
	switch {
	case input == "/help":
		printHelp()
		return true, nil

	case input == "/agents":
		return true, listAgents(ctx, app)

	case strings.HasPrefix(input, "/use"):
		args := strings.TrimSpace(strings.TrimPrefix(input, "/use"))
		if args == "" {
			return true, fmt.Errorf("usage: /use <agent sId>")
		}
		app.agent = args
		fmt.Printf("Now chatting with %s\n", app.agent)
		return true, nil

	case input == "/new":
		app.conversationID = ""
		fmt.Println("Starting a new conversation on the next message")
		return true, nil

	case input == "/id":
		if app.conversationID == "" {
			fmt.Println("No conversation yet; send a message first")
		} else {
			fmt.Println(app.conversationID)
		}
		return true, nil

	case input == "/history":
		return true, showHistory(ctx, app)

	case strings.HasPrefix(input, "/"):
		return true, fmt.Errorf("unknown command %q, try /help", input)
	}
	return false, nil
}

// printHelp displays available commands.
func printHelp() {
	fmt.Println("Commands:")
	fmt.Println("  /agents        List agents in the workspace")
	fmt.Println("  /use <sId>     Switch to another agent")
	fmt.Println("  /new           Start a new conversation")
	fmt.Println("  /id            Print the current conversation sId")
	fmt.Println("  /history       Show recent local history for this conversation")
	fmt.Println("  /help          Show this help")
	fmt.Println("  /quit          Exit")
}

// listAgents fetches and displays the workspace agents.
func listAgents(ctx context.Context, app *chatApp) error {
	agents, err := app.client.Agents.List(ctx)
	if err != nil {
		return err
	}
	if len(agents) == 0 {
		fmt.Println("No agents in this workspace")
		return nil
	}

	fmt.Println("Agents:")
	for _, a := range agents {
		fmt.Printf("  %s: %s  %s\n", a.SID, a.Name, truncate(a.Description, 60))
	}
	return nil
}

// showHistory prints the locally recorded exchanges of the current
// conversation.
func showHistory(ctx context.Context, app *chatApp) error {
	if app.store == nil {
		return fmt.Errorf("local history is disabled")
	}
	if app.conversationID == "" {
		fmt.Println("No conversation yet; send a message first")
		return nil
	}

	exchanges, err := app.store.RecentExchanges(ctx, app.conversationID, 20)
	if err != nil {
		return err
	}
	if len(exchanges) == 0 {
		fmt.Println("No recorded history for this conversation")
		return nil
	}

	fmt.Printf("Recent history for %s:\n", app.conversationID)
	fmt.Println(strings.Repeat("-", 60))
	for _, ex := range exchanges {
		prefix := color.BlueString("you")
		if ex.Role == string(dust.RoleAssistant) {
			prefix = color.GreenString(ex.Agent)
		}
		fmt.Printf("%s  %s\n", prefix, truncate(ex.Content, 200))
	}
	fmt.Println(strings.Repeat("-", 60))
	return nil
}

func sendMessage(ctx context.Context, app *chatApp, text string) error {
	resp, err := app.client.Chat.Send(ctx, &dust.ChatRequest{
		Agent:          app.agent,
		Text:           text,
		Username:       app.username,
		Timezone:       app.timezone,
		ConversationID: app.conversationID,
		Title:          app.title,
		Timeout:        app.timeout,
	})
	if err != nil {
		return err
	}
	app.conversationID = resp.ConversationID

	if resp.AssistantMessage == nil {
		color.New(color.Faint).Println("[no reply before timeout]")
	} else {
		fmt.Println(resp.AssistantMessage.Text)
	}

	recordExchanges(ctx, app, resp)
	return nil
}

// recordExchanges saves both sides of the turn. History failures never
// interrupt the chat.
func recordExchanges(ctx context.Context, app *chatApp, resp *dust.ChatResponse) {
	if app.store == nil {
		return
	}

	save := func(role, content string) {
		err := app.store.SaveExchange(ctx, &history.Exchange{
			Workspace:      app.workspace,
			Agent:          app.agent,
			ConversationID: resp.ConversationID,
			Role:           role,
			Content:        content,
		})
		if err != nil {
			app.logger.Debug("saving history failed", "error", err)
		}
	}

	save(string(dust.RoleUser), resp.UserMessage.Text)
	if resp.AssistantMessage != nil {
		save(string(dust.RoleAssistant), resp.AssistantMessage.Text)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// truncate shortens a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func setupLogger(cfg cliconfig.LoggingConfig, debug bool) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelWarn
	}
	if debug {
		level = slog.LevelDebug
	}

	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	}
	return slog.New(&colorHandler{level: level})
}

// colorHandler provides colorized log output with thread-safe writes.
// Logs go to stderr so they never interleave with chat output.
type colorHandler struct {
	mu     sync.Mutex
	level  slog.Level
	attrs  []slog.Attr
	groups []string
}

func (h *colorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *colorHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var buf strings.Builder

	buf.WriteString(color.HiBlackString(r.Time.Format("15:04:05") + " "))

	switch r.Level {
	case slog.LevelDebug:
		buf.WriteString(color.MagentaString("DBG "))
	case slog.LevelInfo:
		buf.WriteString(color.CyanString("INF "))
	case slog.LevelWarn:
		buf.WriteString(color.YellowString("WRN "))
	case slog.LevelError:
		buf.WriteString(color.New(color.FgRed, color.Bold).Sprint("ERR "))
	default:
		buf.WriteString("??? ")
	}

	buf.WriteString(r.Message)

	// Print handler-level attrs first (from WithAttrs)
	for _, a := range h.attrs {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
	}

	r.Attrs(func(a slog.Attr) bool {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
		return true
	})

	buf.WriteString("\n")
	fmt.Fprint(os.Stderr, buf.String())
	return nil
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	newAttrs = append(newAttrs, attrs...)
	return &colorHandler{
		level:  h.level,
		attrs:  newAttrs,
		groups: h.groups,
	}
}

func (h *colorHandler) WithGroup(name string) slog.Handler {
	newGroups := make([]string, len(h.groups), len(h.groups)+1)
	copy(newGroups, h.groups)
	newGroups = append(newGroups, name)
	return &colorHandler{
		level:  h.level,
		attrs:  h.attrs,
		groups: newGroups,
	}
}
