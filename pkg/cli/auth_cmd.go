package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authentication helpers",
	}

	cmd.AddCommand(newAuthLoginCmd())
	return cmd
}

func newAuthLoginCmd() *cobra.Command {
	var host string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store a workspace token in the active profile",
		Long:  "Prompt for a Databricks personal access token without echoing it and save it to the active profile.",
		Example: `  # Save a token for a workspace
  genie-copilot auth login --host https://example.cloud.databricks.com

  # Save it under a named profile
  genie-copilot -p staging auth login --host https://staging.cloud.databricks.com`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, _ = fmt.Fprint(os.Stderr, "Personal access token: ")
			raw, err := term.ReadPassword(int(os.Stdin.Fd()))
			_, _ = fmt.Fprintln(os.Stderr)
			if err != nil {
				return fmt.Errorf("read token: %w", err)
			}
			token := strings.TrimSpace(string(raw))
			if token == "" {
				return fmt.Errorf("no token entered")
			}

			cfg, err := LoadUserConfig()
			if err != nil {
				cfg = &UserConfig{
					CurrentProfile: "default",
					Profiles:       map[string]Profile{},
				}
			}
			profileName, _ := cmd.Root().PersistentFlags().GetString("profile")
			if profileName == "" {
				profileName = cfg.CurrentProfile
			}
			if profileName == "" {
				profileName = "default"
				cfg.CurrentProfile = profileName
			}

			p := cfg.Profiles[profileName]
			p.Token = token
			if cmd.Flags().Changed("host") {
				p.Host = strings.TrimRight(host, "/")
			}
			cfg.Profiles[profileName] = p
			if err := SaveUserConfig(cfg); err != nil {
				return fmt.Errorf("save config: %w", err)
			}

			if getOutputFormat(cmd) == "json" {
				return printJSON(os.Stdout, map[string]string{
					"status":  "ok",
					"profile": profileName,
					"path":    ConfigPath(),
				})
			}
			_, _ = fmt.Fprintf(os.Stdout, "Token saved to profile %q in %s\n", profileName, ConfigPath())
			return nil
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "Workspace URL to store alongside the token")

	return cmd
}
