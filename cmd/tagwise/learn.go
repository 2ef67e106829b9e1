package main

import (
	"fmt"
	"math"
	"time"

	"github.com/spf13/cobra"

	"github.com/tagwise/tagwise/internal/cli"
	"github.com/tagwise/tagwise/internal/model"
)

func learnCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "learn",
		Short: "Learn classification rules from manual corrections",
	}

	cmd.AddCommand(recordAssignmentCmd())
	cmd.AddCommand(analyzeAssignmentsCmd())

	return cmd
}

func recordAssignmentCmd() *cobra.Command {
	var (
		description  string
		counterparty string
		category     string
		subcategory  string
		amount       float64
	)

	cmd := &cobra.Command{
		Use:   "record <tag>",
		Short: "Record a manual tag assignment",
		Long: `Record one manual correction as learning signal. Assignments accumulate
and are never deleted; run 'tagwise learn analyze' to turn them into rules.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if description == "" {
				return fmt.Errorf("--description is required")
			}

			stack, err := initStack(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = stack.Close() }()

			txn := model.Transaction{
				Date:         time.Now(),
				Description:  description,
				Counterparty: counterparty,
				Category:     category,
				Subcategory:  subcategory,
				Amount:       int64(math.Round(amount * model.MinorUnitsPerMajor)),
			}

			assignment, err := stack.learner.LearnFromAssignment(ctx, txn, args[0])
			if err != nil {
				return err
			}

			fmt.Println(cli.Success(fmt.Sprintf("Recorded assignment %s for tag %s (%d patterns)",
				assignment.ID, assignment.Tag, len(assignment.Patterns))))
			return nil
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "transaction description (required)")
	cmd.Flags().StringVar(&counterparty, "counterparty", "", "counterparty name")
	cmd.Flags().StringVar(&category, "category", "", "bank-provided category")
	cmd.Flags().StringVar(&subcategory, "subcategory", "", "bank-provided subcategory")
	cmd.Flags().Float64VarP(&amount, "amount", "a", 0, "signed amount in major currency units")

	return cmd
}

func analyzeAssignmentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze",
		Short: "Synthesize learned rules from recorded assignments",
		Long: `Group recorded assignments by tag and create one learned rule per tag
with at least two corroborating assignments. Re-analysis replaces the
previous rule for a tag rather than accumulating.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			stack, err := initStack(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = stack.Close() }()

			created, err := stack.learner.AnalyzeAndCreateRules(ctx)
			if err != nil {
				return err
			}

			if len(created) == 0 {
				fmt.Println(cli.Warning(fmt.Sprintf(
					"No rules created from %d assignments; each tag needs at least two", stack.learner.AssignmentCount())))
				return nil
			}

			fmt.Println(cli.TitleStyle.Render("Learned rules"))
			for _, rule := range created {
				fmt.Printf("%s %s (%d conditions, confidence %.2f, from %d assignments)\n",
					cli.SuccessStyle.Render("✓"), rule.Tag, len(rule.Conditions), rule.Confidence, rule.AssignmentsCount)
				for _, cond := range rule.Conditions {
					fmt.Printf("    %s %s %q (freq %.2f)\n",
						cli.SubtleStyle.Render("-"), cond.Type, cond.Pattern, cond.Frequency)
				}
			}
			return nil
		},
	}
}
