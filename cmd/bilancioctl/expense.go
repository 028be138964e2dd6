package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"bilancio/internal/core"
)

func expenseCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "expense",
		Short: "Record one-time expenses and revenues",
	}
	cmd.AddCommand(expenseAddCmd(opts))
	return cmd
}

func expenseAddCmd(opts *rootOptions) *cobra.Command {
	var date, description, amount, primary, secondary string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record an expense; use a negative amount for a revenue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			money, err := parseMoney(amount)
			if err != nil {
				return err
			}
			day, err := parseDay(date)
			if err != nil {
				return err
			}
			a, err := opts.open()
			if err != nil {
				return err
			}
			defer a.Close()
			id, err := a.expenses.CreateExpense(cmd.Context(), core.Expense{
				Date:        day,
				Description: description,
				Amount:      money,
				Primary:     primary,
				Secondary:   secondary,
			})
			if err != nil {
				return fmt.Errorf("create expense: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created expense %d\n", id)
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&description, "description", "", "description")
	cmd.Flags().StringVar(&amount, "amount", "", "amount, negative for revenues")
	cmd.Flags().StringVar(&primary, "primary", "", "primary category")
	cmd.Flags().StringVar(&secondary, "secondary", "", "secondary category")
	return cmd
}
