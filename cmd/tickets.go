package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/caretide/provdir/internal/model"
	"github.com/caretide/provdir/internal/store"
)

var (
	ticketsStatus   string
	ticketsPriority string
	ticketsLimit    int

	resolveBy    string
	resolveNotes string
)

var ticketsCmd = &cobra.Command{
	Use:   "tickets",
	Short: "Inspect and resolve review tickets",
}

var ticketsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List review tickets",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		tickets, err := st.ListTickets(ctx, store.TicketFilter{
			Status:   model.TicketStatus(ticketsStatus),
			Priority: model.Priority(ticketsPriority),
			Limit:    ticketsLimit,
		})
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(tickets)
	},
}

var ticketsResolveCmd = &cobra.Command{
	Use:   "resolve <ticket-id>",
	Short: "Mark a review ticket resolved",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.ResolveTicket(ctx, args[0], resolveBy, resolveNotes); err != nil {
			return err
		}

		ticket, err := st.GetTicket(ctx, args[0])
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(ticket)
	},
}

func init() {
	ticketsListCmd.Flags().StringVar(&ticketsStatus, "status", "", "filter by status (open, resolved)")
	ticketsListCmd.Flags().StringVar(&ticketsPriority, "priority", "", "filter by priority (high, medium, low)")
	ticketsListCmd.Flags().IntVar(&ticketsLimit, "limit", 0, "max tickets to list")

	ticketsResolveCmd.Flags().StringVar(&resolveBy, "by", "", "who resolved the ticket")
	ticketsResolveCmd.Flags().StringVar(&resolveNotes, "notes", "", "resolution notes")
	_ = ticketsResolveCmd.MarkFlagRequired("by")

	ticketsCmd.AddCommand(ticketsListCmd, ticketsResolveCmd)
	rootCmd.AddCommand(ticketsCmd)
}
