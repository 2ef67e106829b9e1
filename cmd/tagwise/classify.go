package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/tagwise/tagwise/internal/cli"
	"github.com/tagwise/tagwise/internal/common"
	"github.com/tagwise/tagwise/internal/model"
)

func classifyCmd() *cobra.Command {
	var (
		description  string
		counterparty string
		category     string
		subcategory  string
		existingTag  string
		inputFile    string
		amount       float64
		save         bool
	)

	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify transactions",
		Long: `Run a transaction through the tiered classifier and print the assigned
tag, confidence, and the reason for the decision. Pass --file to classify a
JSON array of transactions in one batch.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			stack, err := initStack(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = stack.Close() }()

			if inputFile != "" {
				return classifyFile(ctx, stack, inputFile, save)
			}

			if description == "" {
				return fmt.Errorf("--description or --file is required")
			}

			txn := model.Transaction{
				ID:           uuid.NewString(),
				Date:         time.Now(),
				Description:  description,
				Counterparty: counterparty,
				Category:     category,
				Subcategory:  subcategory,
				Tag:          existingTag,
				Amount:       int64(math.Round(amount * model.MinorUnitsPerMajor)),
			}

			res := stack.classifier.Classify(ctx, txn)

			fmt.Println(cli.TitleStyle.Render("Classification"))
			fmt.Printf("%s %s\n", cli.BoldStyle.Render("Tag:"), res.Tag)
			fmt.Printf("%s %.2f\n", cli.BoldStyle.Render("Confidence:"), res.Confidence)
			fmt.Printf("%s %d\n", cli.BoldStyle.Render("Tier:"), res.Tier)
			if res.Category != "" {
				fmt.Printf("%s %s / %s\n", cli.BoldStyle.Render("Category:"), res.Category, res.Subcategory)
			}
			fmt.Printf("%s %s\n", cli.SubtleStyle.Render("Reason:"), cli.SubtleStyle.Render(res.Reason))

			if save {
				txn.Tag = res.Tag
				txn.Category = res.Category
				txn.Subcategory = res.Subcategory
				txn.Confidence = res.Confidence
				txn.Reason = res.Reason
				if err := stack.store.SaveTransactions(ctx, []model.Transaction{txn}); err != nil {
					return fmt.Errorf("failed to save transaction: %w", err)
				}
				fmt.Println(cli.Success("Transaction saved as " + txn.ID))
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "transaction description")
	cmd.Flags().StringVarP(&inputFile, "file", "f", "", "JSON file with an array of transactions")
	cmd.Flags().StringVar(&counterparty, "counterparty", "", "counterparty name")
	cmd.Flags().StringVar(&category, "category", "", "bank-provided category")
	cmd.Flags().StringVar(&subcategory, "subcategory", "", "bank-provided subcategory")
	cmd.Flags().StringVar(&existingTag, "tag", "", "previously assigned tag to validate")
	cmd.Flags().Float64VarP(&amount, "amount", "a", 0, "signed amount in major currency units")
	cmd.Flags().BoolVar(&save, "save", false, "persist the classified transactions")

	return cmd
}

// wireTransaction is the JSON input shape for --file. Amounts are in minor
// units; the date defaults to now when omitted.
type wireTransaction struct {
	ID           string `json:"id"`
	Date         string `json:"date"`
	Description  string `json:"description"`
	Counterparty string `json:"counterparty"`
	Category     string `json:"category"`
	Subcategory  string `json:"subcategory"`
	Tag          string `json:"tag"`
	Amount       int64  `json:"amount"`
}

func classifyFile(ctx context.Context, stack *classificationStack, path string, save bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	var wire []wireTransaction
	if err := json.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if len(wire) == 0 {
		return common.ErrNoTransactions
	}

	txns := make([]model.Transaction, 0, len(wire))
	for i, w := range wire {
		if strings.TrimSpace(w.Description) == "" {
			return fmt.Errorf("%w: entry %d has no description", common.ErrInvalidPayload, i)
		}
		date := time.Now()
		if w.Date != "" {
			parsed, err := time.Parse("2006-01-02", w.Date)
			if err != nil {
				return fmt.Errorf("%w: entry %d has invalid date %q", common.ErrInvalidPayload, i, w.Date)
			}
			date = parsed
		}
		id := w.ID
		if id == "" {
			id = uuid.NewString()
		}
		txns = append(txns, model.Transaction{
			ID:           id,
			Date:         date,
			Description:  w.Description,
			Counterparty: w.Counterparty,
			Category:     w.Category,
			Subcategory:  w.Subcategory,
			Tag:          w.Tag,
			Amount:       w.Amount,
		})
	}

	tally := make(map[string]int)
	for i := range txns {
		res := stack.classifier.Classify(ctx, txns[i])
		txns[i].Tag = res.Tag
		txns[i].Category = res.Category
		txns[i].Subcategory = res.Subcategory
		txns[i].Confidence = res.Confidence
		txns[i].Reason = res.Reason
		tally[res.Tag]++

		fmt.Printf("%s  %s  (%.2f, %s)\n",
			cli.BoldStyle.Render(res.Tag), txns[i].Description, res.Confidence, cli.SubtleStyle.Render(res.Reason))
	}

	fmt.Println(cli.TitleStyle.Render("Summary"))
	for _, tag := range sortedKeys(tally) {
		fmt.Printf("  %s: %d\n", tag, tally[tag])
	}

	if save {
		if err := stack.store.SaveTransactions(ctx, txns); err != nil {
			return fmt.Errorf("failed to save transactions: %w", err)
		}
		fmt.Println(cli.Success(fmt.Sprintf("Saved %d transactions", len(txns))))
	}
	return nil
}
