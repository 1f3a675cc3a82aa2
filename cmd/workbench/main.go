package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	mailbench "github.com/mailbench/client-go"
	"github.com/mailbench/client-go/internal/cliconfig"
)

var (
	cfgFile string
	baseURL string
)

func resolveConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return cliconfig.DefaultConfigPath()
}

// newClient builds a client from the config file, environment and flags,
// resuming any persisted session.
func newClient() (*mailbench.Client, *cliconfig.Config, error) {
	cfg, err := cliconfig.Load(resolveConfigPath())
	if err != nil {
		return nil, nil, err
	}

	url := cfg.Server.BaseURL
	if env := os.Getenv("WORKBENCH_URL"); env != "" {
		url = env
	}
	if baseURL != "" {
		url = baseURL
	}

	opts := []mailbench.Option{
		mailbench.WithBaseURL(url),
		mailbench.WithTimeout(time.Duration(cfg.Server.TimeoutSeconds) * time.Second),
	}
	if cfg.Server.Retries > 0 {
		opts = append(opts, mailbench.WithRetries(cfg.Server.Retries))
	}
	if token := cliconfig.LoadSessionToken(cliconfig.SessionPath()); token != "" {
		opts = append(opts, mailbench.WithSessionToken(token))
	}

	client, err := mailbench.New(opts...)
	if err != nil {
		return nil, nil, err
	}
	return client, cfg, nil
}

func saveSession(client *mailbench.Client) {
	if err := cliconfig.SaveSessionToken(cliconfig.SessionPath(), client.SessionToken()); err != nil {
		fmt.Fprintf(os.Stderr, "WARNING: could not persist session: %v\n", err)
	}
}

// requireLogin resolves the identity with the backend and fails when the
// session is anonymous.
func requireLogin(ctx context.Context, client *mailbench.Client) (mailbench.Session, error) {
	sess := client.CheckIdentity(ctx)
	if !sess.Authenticated {
		return sess, fmt.Errorf("not logged in; run 'workbench login' first")
	}
	return sess, nil
}

func prompt(label string) (string, error) {
	fmt.Printf("%s: ", label)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func confirm(label string) bool {
	answer, err := prompt(label + " [y/N]")
	if err != nil {
		return false
	}
	answer = strings.ToLower(answer)
	return answer == "y" || answer == "yes"
}

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "workbench",
		Short: "Workbench - email summarization testbed client",
		Long: `Workbench is a command-line client for the email summarization
testbed. It manages the inbox view with local edits, runs summarizations
against the configured defense pipeline, and exposes the admin surface
for signup keys and accounts.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.workbench/config.toml)")
	rootCmd.PersistentFlags().StringVar(&baseURL, "url", "", "backend base URL (overrides config and WORKBENCH_URL)")

	rootCmd.AddCommand(loginCmd())
	rootCmd.AddCommand(logoutCmd())
	rootCmd.AddCommand(registerCmd())
	rootCmd.AddCommand(whoamiCmd())
	rootCmd.AddCommand(inboxCmd())
	rootCmd.AddCommand(summarizeCmd())
	rootCmd.AddCommand(quotaCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(keysCmd())
	rootCmd.AddCommand(usersCmd())
	rootCmd.AddCommand(statsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login <username>",
		Short: "Log in to the backend",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := newClient()
			if err != nil {
				return err
			}
			defer client.Close()

			password, err := prompt("Password")
			if err != nil {
				return err
			}

			if err := client.Login(cmd.Context(), args[0], password); err != nil {
				return err
			}
			saveSession(client)

			sess := client.Session()
			fmt.Printf("Logged in as %s (%s)\n", sess.Username, sess.Role)
			quota := client.Quota()
			fmt.Printf("Summarizations remaining: %d/%d\n", quota.Remaining, quota.Limit)
			return nil
		},
	}
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := newClient()
			if err != nil {
				return err
			}
			defer client.Close()

			client.Logout(cmd.Context())
			if err := cliconfig.SaveSessionToken(cliconfig.SessionPath(), ""); err != nil {
				return err
			}
			fmt.Println("Logged out.")
			return nil
		},
	}
}

func registerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "register <signup-key> <username>",
		Short: "Create an account from a signup key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := newClient()
			if err != nil {
				return err
			}
			defer client.Close()

			password, err := prompt("Password")
			if err != nil {
				return err
			}

			if err := client.Register(cmd.Context(), args[0], args[1], password); err != nil {
				return err
			}
			saveSession(client)

			fmt.Printf("Registered and logged in as %s\n", client.Session().Username)
			return nil
		},
	}
}

func whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current identity",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := newClient()
			if err != nil {
				return err
			}
			defer client.Close()

			sess := client.CheckIdentity(cmd.Context())
			if !sess.Authenticated {
				fmt.Println("Not logged in.")
				return nil
			}
			fmt.Printf("%s (%s)\n", sess.Username, sess.Role)
			return nil
		},
	}
}

func inboxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inbox",
		Short: "Inspect and edit the cached inbox",
	}
	cmd.AddCommand(inboxListCmd())
	cmd.AddCommand(inboxShowCmd())
	cmd.AddCommand(inboxEditCmd())
	return cmd
}

func inboxListCmd() *cobra.Command {
	var includeMalicious bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List inbox messages",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, cfg, err := newClient()
			if err != nil {
				return err
			}
			defer client.Close()

			if _, err := requireLogin(cmd.Context(), client); err != nil {
				return err
			}

			if includeMalicious || cfg.Defaults.IncludeMalicious {
				if !client.IncludesMalicious() {
					if err := client.ToggleMaliciousInclusion(cmd.Context()); err != nil {
						return err
					}
				}
			}

			emails := client.Emails()
			if len(emails) == 0 {
				fmt.Println("Inbox is empty.")
				return nil
			}
			for _, e := range emails {
				marker := " "
				if client.IsEdited(e.ID) {
					marker = "*"
				}
				fmt.Printf("%s %4d  %-30s  %s\n", marker, e.ID, e.Sender, e.Subject)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&includeMalicious, "include-malicious", false, "Include the intentionally malicious test messages")

	return cmd
}

func inboxShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one message with local edits applied",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid email ID %q", args[0])
			}

			client, _, err := newClient()
			if err != nil {
				return err
			}
			defer client.Close()

			if _, err := requireLogin(cmd.Context(), client); err != nil {
				return err
			}
			if err := client.Select(id); err != nil {
				return err
			}

			email, _ := client.Selected()
			fmt.Printf("From:    %s\n", email.Sender)
			fmt.Printf("Subject: %s\n", email.Subject)
			if email.Date != "" {
				fmt.Printf("Date:    %s\n", email.Date)
			}
			fmt.Println()
			fmt.Println(client.EffectiveBody(email))
			return nil
		},
	}
}

func inboxEditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "edit <id>",
		Short: "Replace a message body locally from stdin",
		Long: `Read a replacement body from stdin and store it as a local edit.
The backend copy is untouched; summarization uses the edited body.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid email ID %q", args[0])
			}

			client, _, err := newClient()
			if err != nil {
				return err
			}
			defer client.Close()

			if _, err := requireLogin(cmd.Context(), client); err != nil {
				return err
			}
			if err := client.Select(id); err != nil {
				return err
			}
			if err := client.BeginEdit(); err != nil {
				return err
			}

			body, err := readAll(os.Stdin)
			if err != nil {
				return err
			}
			if err := client.SetDraft(body); err != nil {
				return err
			}
			if err := client.SaveEdit(); err != nil {
				return err
			}

			fmt.Printf("Saved local edit for message %d.\n", id)
			return nil
		},
	}
}

func readAll(f *os.File) (string, error) {
	var sb strings.Builder
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		sb.WriteString(scanner.Text())
		sb.WriteString("\n")
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

func summarizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summarize",
		Short: "Summarize the inbox through the defense pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := newClient()
			if err != nil {
				return err
			}
			defer client.Close()

			if _, err := requireLogin(cmd.Context(), client); err != nil {
				return err
			}

			if err := client.Summarize(cmd.Context()); err != nil {
				return err
			}

			summary, _ := client.Summary()
			fmt.Println(summary)
			quota := client.Quota()
			fmt.Fprintf(os.Stderr, "\nSummarizations remaining: %d/%d\n", quota.Remaining, quota.Limit)
			return nil
		},
	}
}

func quotaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "quota",
		Short: "Show the remaining summarization allowance",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := newClient()
			if err != nil {
				return err
			}
			defer client.Close()

			if _, err := requireLogin(cmd.Context(), client); err != nil {
				return err
			}

			quota := client.Quota()
			fmt.Printf("Remaining: %d/%d\n", quota.Remaining, quota.Limit)
			return nil
		},
	}
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and change the defense-pipeline configuration",
	}
	cmd.AddCommand(configShowCmd())
	cmd.AddCommand(configSetCmd())
	return cmd
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := newClient()
			if err != nil {
				return err
			}
			defer client.Close()

			if _, err := requireLogin(cmd.Context(), client); err != nil {
				return err
			}

			cfg := client.Config()
			if cfg == nil {
				return fmt.Errorf("no configuration available")
			}

			fmt.Printf("llm.selected:            %s\n", cfg.LLM.Selected)
			fmt.Printf("prompt_engineering:      %s\n", cfg.PromptEngineering.Mode)
			fmt.Printf("prompt_injection_filter: %s\n", cfg.PromptInjectionFilter.Mode)
			fmt.Printf("delimiter-filtering:     %s\n", cfg.DelimiterFiltering.Mode)
			fmt.Printf("logging.verbose:         %t\n", cfg.Logging.Verbose)
			if len(cfg.LLM.Models) > 0 {
				fmt.Println("\nModels:")
				for _, m := range cfg.LLM.Models {
					state := "disabled"
					if m.Enabled {
						state = "enabled"
					}
					label := m.Label
					if label == "" {
						label = m.Key
					}
					fmt.Printf("  %-30s %s (%s)\n", m.Key, label, state)
				}
			}
			return nil
		},
	}
}

func configSetCmd() *cobra.Command {
	var (
		model           string
		promptMode      string
		injectionFilter string
		delimiterFilter string
	)

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Update the configuration (admin only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := newClient()
			if err != nil {
				return err
			}
			defer client.Close()

			if _, err := requireLogin(cmd.Context(), client); err != nil {
				return err
			}

			cfg := client.Config()
			if cfg == nil {
				return fmt.Errorf("no configuration available")
			}

			if model != "" {
				cfg.LLM.Selected = model
			}
			if promptMode != "" {
				cfg.PromptEngineering.Mode = mailbench.PromptEngineeringMode(promptMode)
			}
			if injectionFilter != "" {
				cfg.PromptInjectionFilter.Mode = mailbench.InjectionFilterMode(injectionFilter)
			}
			if delimiterFilter != "" {
				cfg.DelimiterFiltering.Mode = mailbench.DelimiterFilterMode(delimiterFilter)
			}

			if err := client.SaveConfig(cmd.Context(), cfg); err != nil {
				return err
			}
			fmt.Println("Configuration updated.")
			return nil
		},
	}

	cmd.Flags().StringVar(&model, "model", "", "Selected LLM model key")
	cmd.Flags().StringVar(&promptMode, "prompt-engineering", "", "Mode: disabled, basic, system, system+spotlighting")
	cmd.Flags().StringVar(&injectionFilter, "injection-filter", "", "Mode: disabled, meta-prompt-guard, azure-prompt-shields, aws-bedrock-guardrails")
	cmd.Flags().StringVar(&delimiterFilter, "delimiter-filtering", "", "Mode: disabled, remove, escape")

	return cmd
}

func keysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage signup keys (admin only)",
	}
	cmd.AddCommand(keysListCmd())
	cmd.AddCommand(keysGenerateCmd())
	cmd.AddCommand(keysRevokeCmd())
	return cmd
}

func keysListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List signup keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := newClient()
			if err != nil {
				return err
			}
			defer client.Close()

			if _, err := requireLogin(cmd.Context(), client); err != nil {
				return err
			}

			keys, err := client.Admin().ListSignupKeys(cmd.Context())
			if err != nil {
				return err
			}
			if len(keys) == 0 {
				fmt.Println("No signup keys.")
				return nil
			}
			for _, k := range keys {
				status := "unused"
				if k.Revoked {
					status = "revoked"
				} else if k.UsedBy != "" {
					status = "used by " + k.UsedBy
				}
				fmt.Printf("%s  %s  %s\n", k.Token, k.CreatedAt.Format("2006-01-02 15:04"), status)
			}
			return nil
		},
	}
}

func keysGenerateCmd() *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Mint new signup keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := newClient()
			if err != nil {
				return err
			}
			defer client.Close()

			if _, err := requireLogin(cmd.Context(), client); err != nil {
				return err
			}

			tokens, err := client.Admin().GenerateSignupKeys(cmd.Context(), count)
			if err != nil {
				return err
			}
			for _, t := range tokens {
				fmt.Println(t)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&count, "count", 1, "Number of keys to mint (1-1000)")

	return cmd
}

func keysRevokeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <token>",
		Short: "Revoke a signup key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := newClient()
			if err != nil {
				return err
			}
			defer client.Close()

			if _, err := requireLogin(cmd.Context(), client); err != nil {
				return err
			}

			if err := client.Admin().RevokeSignupKey(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Println("Key revoked.")
			return nil
		},
	}
}

func usersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage accounts (admin only)",
	}
	cmd.AddCommand(usersListCmd())
	cmd.AddCommand(usersResetPasswordCmd())
	cmd.AddCommand(usersDeleteCmd())
	return cmd
}

func usersListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := newClient()
			if err != nil {
				return err
			}
			defer client.Close()

			if _, err := requireLogin(cmd.Context(), client); err != nil {
				return err
			}

			users, err := client.Admin().ListUsers(cmd.Context())
			if err != nil {
				return err
			}
			for _, u := range users {
				fmt.Printf("%4d  %-30s  %s\n", u.ID, u.Username, u.Role)
			}
			return nil
		},
	}
}

func usersResetPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset-password <username>",
		Short: "Set a new password for an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := newClient()
			if err != nil {
				return err
			}
			defer client.Close()

			if _, err := requireLogin(cmd.Context(), client); err != nil {
				return err
			}

			password, err := prompt("New password")
			if err != nil {
				return err
			}

			if err := client.Admin().ResetUserPassword(cmd.Context(), args[0], password); err != nil {
				return err
			}
			fmt.Printf("Password reset for %s.\n", args[0])
			return nil
		},
	}
}

func usersDeleteCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete <username>",
		Short: "Delete an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := newClient()
			if err != nil {
				return err
			}
			defer client.Close()

			if _, err := requireLogin(cmd.Context(), client); err != nil {
				return err
			}

			if !force && !confirm(fmt.Sprintf("Delete account %q?", args[0])) {
				fmt.Println("Aborted.")
				return nil
			}

			if err := client.Admin().DeleteUser(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted %s.\n", args[0])
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Skip the confirmation prompt")

	return cmd
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cumulative token usage per model",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := newClient()
			if err != nil {
				return err
			}
			defer client.Close()

			if _, err := requireLogin(cmd.Context(), client); err != nil {
				return err
			}

			stats, err := client.TokenStats(cmd.Context())
			if err != nil {
				return err
			}
			if len(stats) == 0 {
				fmt.Println("No usage recorded.")
				return nil
			}
			for model, usage := range stats {
				fmt.Printf("%-30s  in=%d  out=%d\n", model, usage.InputTokens, usage.OutputTokens)
			}
			return nil
		},
	}
}
