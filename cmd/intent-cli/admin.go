package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"yashubustudio/intentclassifier/intent"
)

func newCatalogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "catalog [NAME]",
		Short: "List the intent catalog or look up one intent",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				for i, name := range intent.Intents() {
					fmt.Fprintf(out, "%2d  %s\n", i, name)
				}
				return nil
			}
			name := strings.ToUpper(strings.TrimSpace(args[0]))
			if idx := intent.IndexForName(name); idx >= 0 {
				fmt.Fprintf(out, "%2d  %s\n", idx, name)
				return nil
			}
			hints := intent.Suggest(name)
			if len(hints) == 0 {
				return fmt.Errorf("%w: %q", intent.ErrUnknownIntent, args[0])
			}
			return fmt.Errorf("%w: %q (did you mean %s?)", intent.ErrUnknownIntent, args[0], strings.Join(hints, ", "))
		},
	}
}

func newRulesCmd() *cobra.Command {
	rules := &cobra.Command{
		Use:   "rules",
		Short: "Inspect and export rule-based intent profiles",
	}
	rules.AddCommand(&cobra.Command{
		Use:   "dump PATH",
		Short: "Write the built-in profiles as YAML for editing",
		Long: `Writes the built-in intent profiles to PATH unless the file already exists.
Point rules.profile_file (or --profiles) at the edited file to override them.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := intent.EnsureProfileFile(args[0]); err != nil {
				return err
			}
			if _, _, err := intent.LoadProfiles(args[0]); err != nil {
				return fmt.Errorf("validate %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "profiles available at %s\n", args[0])
			return nil
		},
	})
	rules.AddCommand(&cobra.Command{
		Use:   "check PATH",
		Short: "Validate a profile override file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			set, _, err := intent.LoadProfiles(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, p := range set.Profiles() {
				fmt.Fprintf(out, "%-20s context_terms=%d time_boost=%t\n", p.Intent(), len(p.ContextTerms()), p.HasTimePatterns())
			}
			return nil
		},
	})
	return rules
}

func newConfigCmd(c *cli) *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}
	cfg.AddCommand(&cobra.Command{
		Use:   "init [PATH]",
		Short: "Write the effective configuration as YAML (default ./intent.yaml)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			if err := intent.SaveConfig(path, c.cfg); err != nil {
				return err
			}
			if path == "" {
				path = "intent.yaml"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "configuration written to %s\n", path)
			return nil
		},
	})
	return cfg
}
