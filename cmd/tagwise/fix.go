package main

import (
	"fmt"
	"sort"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/tagwise/tagwise/internal/cli"
	"github.com/tagwise/tagwise/internal/engine"
	"github.com/tagwise/tagwise/internal/model"
)

func fixCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "fix",
		Short: "Reclassify all stored transactions against the current rules",
		Long: `Replay the classifier over every stored transaction. Manually overridden
transactions are pinned and never touched; every applied change is recorded
in the transaction's fix history.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			stack, err := initStack(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = stack.Close() }()

			txns, err := stack.store.GetTransactions(ctx)
			if err != nil {
				return fmt.Errorf("failed to load transactions: %w", err)
			}
			if len(txns) == 0 {
				fmt.Println(cli.SubtleStyle.Render("No transactions stored."))
				return nil
			}

			ptrs := make([]*model.Transaction, len(txns))
			for i := range txns {
				ptrs[i] = &txns[i]
			}

			var store engine.TransactionStore
			if !dryRun {
				store = stack.store
			}
			reclassifier := engine.NewReclassifier(stack.classifier, store)

			bar := progressbar.NewOptions(len(ptrs),
				progressbar.OptionSetDescription("Reclassifying"),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)

			report, err := reclassifier.FixAllExistingTagAssignments(ctx, ptrs, func(done, _ int) {
				_ = bar.Set(done)
			})
			if err != nil {
				return err
			}

			fmt.Println(cli.TitleStyle.Render("Fix report"))
			fmt.Printf("Processed: %d  Fixed: %d  Skipped (pinned): %d\n",
				report.Processed, report.Fixed, report.Skipped)

			if len(report.Transitions) > 0 {
				keys := make([]string, 0, len(report.Transitions))
				for k := range report.Transitions {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				for _, k := range keys {
					fmt.Printf("  %s: %d\n", k, report.Transitions[k])
				}
			}

			if dryRun {
				fmt.Println(cli.Warning("Dry run: no changes were persisted"))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report changes without persisting them")
	return cmd
}
