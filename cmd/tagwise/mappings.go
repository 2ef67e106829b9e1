package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tagwise/tagwise/internal/cli"
)

func mappingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mappings",
		Short: "Manage category to tag mappings",
		Long:  `Add, remove, list, export, and import the (category, subcategory) to tag mapping table.`,
	}

	cmd.AddCommand(addMappingCmd())
	cmd.AddCommand(removeMappingCmd())
	cmd.AddCommand(listMappingsCmd())
	cmd.AddCommand(exportMappingsCmd())
	cmd.AddCommand(importMappingsCmd())
	cmd.AddCommand(resetMappingsCmd())
	cmd.AddCommand(extractRulesCmd())

	return cmd
}

func addMappingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <category> <subcategory> <tag>",
		Short: "Add or overwrite a mapping",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			stack, err := initStack(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = stack.Close() }()

			if err := stack.registry.AddMapping(ctx, args[0], args[1], args[2]); err != nil {
				return err
			}
			fmt.Println(cli.Success(fmt.Sprintf("Mapped %s/%s to %s", args[0], args[1], args[2])))
			return nil
		},
	}
}

func removeMappingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <category> <subcategory>",
		Short: "Remove a mapping",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			stack, err := initStack(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = stack.Close() }()

			if err := stack.registry.RemoveMapping(ctx, args[0], args[1]); err != nil {
				return err
			}
			fmt.Println(cli.Success(fmt.Sprintf("Removed mapping %s/%s", args[0], args[1])))
			return nil
		},
	}
}

func listMappingsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all mappings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			stack, err := initStack(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = stack.Close() }()

			tree := stack.registry.ExportMapping()
			if len(tree) == 0 {
				fmt.Println(cli.SubtleStyle.Render("No mappings found. Use 'tagwise mappings add' to create one."))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer func() { _ = w.Flush() }()

			fmt.Fprintf(w, "%s\t%s\t%s\n",
				cli.BoldStyle.Render("Category"),
				cli.BoldStyle.Render("Subcategory"),
				cli.BoldStyle.Render("Tag"))
			fmt.Fprintf(w, "%s\t%s\t%s\n",
				strings.Repeat("-", 20), strings.Repeat("-", 20), strings.Repeat("-", 15))

			for _, cat := range sortedKeys(tree) {
				subs := tree[cat]
				for _, sub := range sortedKeys(subs) {
					fmt.Fprintf(w, "%s\t%s\t%s\n", cat, sub, subs[sub])
				}
			}
			return nil
		},
	}
}

func exportMappingsCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export mappings as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			stack, err := initStack(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = stack.Close() }()

			data, err := json.MarshalIndent(stack.registry.ExportMapping(), "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode mappings: %w", err)
			}

			if output == "" {
				fmt.Println(string(data))
				return nil
			}
			if err := os.WriteFile(output, append(data, '\n'), 0600); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}
			fmt.Println(cli.Success("Exported mappings to " + output))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	return cmd
}

func importMappingsCmd() *cobra.Command {
	var reset bool

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import mappings from JSON",
		Long: `Merge a previously exported mapping tree into the registry. The payload
is validated in full before any change is applied; a malformed file leaves
the existing mappings untouched.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}

			var payload any
			if err := json.Unmarshal(data, &payload); err != nil {
				return fmt.Errorf("failed to parse %s: %w", args[0], err)
			}

			stack, err := initStack(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = stack.Close() }()

			if err := stack.registry.ImportMapping(ctx, payload, reset); err != nil {
				return err
			}
			fmt.Println(cli.Success("Imported mappings from " + args[0]))
			return nil
		},
	}

	cmd.Flags().BoolVar(&reset, "reset", false, "clear existing user mappings and learned rules first")
	return cmd
}

func resetMappingsCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Reset mappings and learned rules to system defaults",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			if !force {
				return fmt.Errorf("reset removes all user mappings and learned rules; re-run with --force to confirm")
			}

			stack, err := initStack(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = stack.Close() }()

			if err := stack.registry.ResetToDefaults(ctx); err != nil {
				return err
			}
			fmt.Println(cli.Success("Reset to system defaults"))
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "skip the confirmation check")
	return cmd
}

func extractRulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "extract",
		Short: "Extract built-in rules into editable mappings",
		Long: `Convert the hard-coded system rules into inspectable mapping and keyword
entries. Existing user entries always win on conflict.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			stack, err := initStack(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = stack.Close() }()

			added, err := stack.registry.ExtractAndMergeAllRules(ctx)
			if err != nil {
				return err
			}
			fmt.Println(cli.Success(fmt.Sprintf("Extracted %d entries from built-in rules", added)))
			return nil
		},
	}
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
