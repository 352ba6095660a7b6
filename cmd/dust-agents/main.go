// ABOUTME: Admin CLI for Dust agent configurations
// ABOUTME: Lists, searches, inspects, and favorites workspace agents

package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/2389/dust-go"
	"github.com/2389/dust-go/internal/cliconfig"
)

const banner = `
     _           _
  __| |_   _ ___| |_
 / _' | | | / __| __|
| (_| | |_| \__ \ |_
 \__,_|\__,_|___/\__|  agents
`

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "list", "ls":
		err = cmdList()
	case "search":
		err = cmdSearch(args)
	case "get", "show":
		err = cmdGet(args)
	case "favorite", "fav":
		err = cmdFavorite(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)

	cyan.Print(banner)
	fmt.Println()
	fmt.Println("Usage: dust-agents <command> [args]")
	fmt.Println()
	yellow.Println("Commands:")
	fmt.Println("  list                    List workspace agents")
	fmt.Println("  search <query>          Search agents by name")
	fmt.Println("  get <sId> [-full]       Show one agent (-full includes instructions)")
	fmt.Println("  favorite <sId> on|off   Toggle the user favorite flag")
	fmt.Println()
	yellow.Println("Environment:")
	fmt.Println("  DUST_WORKSPACE_ID        Workspace id (required)")
	fmt.Println("  DUST_API_KEY             API key (or DUST_ACCESS_TOKEN)")
	fmt.Println("  DUST_BASE_URL            API base URL (default: https://dust.tt)")
	fmt.Println()
	fmt.Println("A config file at <user config dir>/dust/config.yaml is used when")
	fmt.Println("the environment is not set.")
	fmt.Println()
	yellow.Println("Examples:")
	fmt.Println("  export DUST_API_KEY=\"sk-...\"")
	fmt.Println("  dust-agents list")
	fmt.Println("  dust-agents search helper")
	fmt.Println("  dust-agents favorite i5cIwRsG0u on")
	fmt.Println()
}

// newClient builds a client from the environment, falling back to the
// default config file.
func newClient() (*dust.Client, error) {
	var cfg dust.Config
	envCfg, err := dust.ConfigFromEnv()
	if err == nil {
		cfg = *envCfg
	} else {
		path, pathErr := cliconfig.DefaultPath()
		if pathErr != nil {
			return nil, err
		}
		fileCfg, loadErr := cliconfig.Load(path)
		if loadErr != nil {
			// The environment error names the missing variables, which is
			// the more actionable message.
			return nil, err
		}
		cfg = fileCfg.ClientConfig()
	}
	cfg.UserAgentSuffix = "dust-agents"
	return dust.NewClient(cfg)
}

func cmdList() error {
	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	agents, err := client.Agents.List(context.Background())
	if err != nil {
		return err
	}
	printAgentTable("Workspace Agents", agents)
	return nil
}

func cmdSearch(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: dust-agents search <query>")
	}
	query := strings.Join(args, " ")

	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	agents, err := client.Agents.Search(context.Background(), query)
	if err != nil {
		return err
	}
	printAgentTable(fmt.Sprintf("Agents matching %q", query), agents)
	return nil
}

func printAgentTable(title string, agents []dust.AgentConfiguration) {
	cyan := color.New(color.FgCyan)
	fmt.Println()
	cyan.Printf("  %s\n", title)
	cyan.Printf("  %s\n", strings.Repeat("-", len(title)))

	if len(agents) == 0 {
		fmt.Println("  (no agents)")
		fmt.Println()
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  SID\tNAME\tSCOPE\tSTATUS\tMODEL\tDESCRIPTION")
	fmt.Fprintln(w, "  ---\t----\t-----\t------\t-----\t-----------")

	for _, a := range agents {
		model := ""
		if a.Model != nil {
			model = a.Model.ModelID
		}
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t%s\t%s\n",
			a.SID,
			truncate(a.Name, 24),
			a.Scope,
			a.Status,
			truncate(model, 24),
			truncate(a.Description, 48),
		)
	}
	w.Flush()
	fmt.Println()
}

func cmdGet(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: dust-agents get <sId> [-full]")
	}
	sID := args[0]
	variant := dust.AgentVariantLight
	if len(args) > 1 && args[1] == "-full" {
		variant = dust.AgentVariantFull
	}

	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	agent, err := client.Agents.Get(context.Background(), sID, &dust.GetAgentOptions{Variant: variant})
	if err != nil {
		return err
	}

	label := color.New(color.FgCyan).SprintfFunc()
	fmt.Println()
	fmt.Printf("%s %s\n", label("%-14s", "Name:"), agent.Name)
	fmt.Printf("%s %s\n", label("%-14s", "SID:"), agent.SID)
	fmt.Printf("%s %s\n", label("%-14s", "Scope:"), agent.Scope)
	fmt.Printf("%s %s\n", label("%-14s", "Status:"), agent.Status)
	if agent.Model != nil {
		fmt.Printf("%s %s/%s\n", label("%-14s", "Model:"), agent.Model.ProviderID, agent.Model.ModelID)
	}
	if agent.UserFavorite != nil {
		fmt.Printf("%s %v\n", label("%-14s", "Favorite:"), *agent.UserFavorite)
	}
	if agent.Description != "" {
		fmt.Printf("%s %s\n", label("%-14s", "Description:"), agent.Description)
	}
	if agent.Instructions != "" {
		fmt.Printf("%s\n%s\n", label("%s", "Instructions:"), indent(truncate(agent.Instructions, 2000), "  "))
	}
	fmt.Println()
	return nil
}

func cmdFavorite(args []string) error {
	if len(args) < 2 || (args[1] != "on" && args[1] != "off") {
		return fmt.Errorf("usage: dust-agents favorite <sId> on|off")
	}
	sID := args[0]
	favorite := args[1] == "on"

	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	agent, err := client.Agents.Update(context.Background(), sID, dust.UpdateAgentRequest{
		UserFavorite: dust.Bool(favorite),
	})
	if err != nil {
		return err
	}

	state := "removed from favorites"
	if favorite {
		state = "added to favorites"
	}
	color.Green("%s (%s) %s", agent.Name, agent.SID, state)
	return nil
}

// truncate shortens a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}
