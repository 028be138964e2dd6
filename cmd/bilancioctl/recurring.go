package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"bilancio/internal/core"
	"bilancio/internal/services"
)

func recurringCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "recurring",
		Aliases: []string{"rec"},
		Short:   "Manage recurring expenses and their amount changes",
	}
	cmd.AddCommand(
		recurringAddCmd(opts),
		recurringListCmd(opts),
		recurringShowCmd(opts),
		recurringModifyCmd(opts),
		recurringAmountCmd(opts),
		recurringDeleteCmd(opts),
	)
	return cmd
}

func recurringAddCmd(opts *rootOptions) *cobra.Command {
	var description, every, primary, secondary, amount, start, end string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a recurring expense",
		Example: `  bilancioctl recurring add --description Affitto --every monthly \
    --primary Casa --secondary Affitto --amount 800 --start 2025-01-01`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			base, err := parseMoney(amount)
			if err != nil {
				return err
			}
			startDay, err := parseDay(start)
			if err != nil {
				return err
			}
			endDay, err := parseDay(end)
			if err != nil {
				return err
			}
			a, err := opts.open()
			if err != nil {
				return err
			}
			defer a.Close()
			re, err := a.recurring.Create(cmd.Context(), services.CreateRecurringInput{
				Description: description,
				Every:       core.RepetitionTypes(every),
				Primary:     primary,
				Secondary:   secondary,
				Base:        base,
				Start:       startDay.Time,
				End:         endDay.Time,
			})
			if err != nil {
				return fmt.Errorf("create recurring expense: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created recurring expense %d\n", re.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&description, "description", "", "description")
	cmd.Flags().StringVar(&every, "every", string(core.Monthly), "repetition: daily, weekly, monthly or yearly")
	cmd.Flags().StringVar(&primary, "primary", "", "primary category")
	cmd.Flags().StringVar(&secondary, "secondary", "", "secondary category")
	cmd.Flags().StringVar(&amount, "amount", "", "base amount, negative for revenues")
	cmd.Flags().StringVar(&start, "start", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "optional end date (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("description")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("start")
	return cmd
}

func recurringListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List recurring expenses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.open()
			if err != nil {
				return err
			}
			defer a.Close()
			items, err := a.recurring.List(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tDESCRIPTION\tEVERY\tBASE\tSTART\tEND\tCHANGES")
			for _, re := range items {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%d\n",
					re.ID, re.Description, re.Every, re.Base(), re.StartDate(), orDash(re.EndDate().String()), len(re.Modifications()))
			}
			return tw.Flush()
		},
	}
}

func recurringShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a recurring expense with its amount changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			a, err := opts.open()
			if err != nil {
				return err
			}
			defer a.Close()
			re, err := a.recurring.Get(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("recurring expense %d: %w", id, err)
			}
			printRecurring(cmd.OutOrStdout(), re)
			return nil
		},
	}
}

func printRecurring(w io.Writer, re *core.RecurringExpense) {
	fmt.Fprintf(w, "%d %s (%s / %s)\n", re.ID, re.Description, re.Primary, re.Secondary)
	fmt.Fprintf(w, "every %s from %s to %s, base %s\n", re.Every, re.StartDate(), orDash(re.EndDate().String()), re.Base())
	for _, m := range re.Modifications() {
		fmt.Fprintf(w, "  after %s: %s\n", m.Date, m.Amount)
	}
}

func recurringModifyCmd(opts *rootOptions) *cobra.Command {
	var date, amount string

	cmd := &cobra.Command{
		Use:   "modify <id>",
		Short: "Change the amount from a date on, dropping every later change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
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
			re, err := a.recurring.AddModification(cmd.Context(), id, day.Time, money)
			if err != nil {
				return fmt.Errorf("modify recurring expense %d: %w", id, err)
			}
			printRecurring(cmd.OutOrStdout(), re)
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "effective date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&amount, "amount", "", "new amount")
	return cmd
}

func recurringAmountCmd(opts *rootOptions) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "amount <id>",
		Short: "Print the amount charged on a date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
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
			amount, err := a.recurring.AmountForMonth(cmd.Context(), id, day.Time)
			if err != nil {
				return fmt.Errorf("resolve amount: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), amount)
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "date to resolve (YYYY-MM-DD)")
	return cmd
}

func recurringDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a recurring expense",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			a, err := opts.open()
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.recurring.Delete(cmd.Context(), id); err != nil {
				return fmt.Errorf("delete recurring expense %d: %w", id, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted recurring expense %d\n", id)
			return nil
		},
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
