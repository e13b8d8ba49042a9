package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/dapur-pos/api/internal/config"
	"github.com/dapur-pos/api/internal/kds"
)

func main() {
	cfg := config.LoadKDS()
	if cfg.OutletID == "" || cfg.Token == "" {
		log.Fatal("POS_OUTLET_ID and POS_TOKEN are required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := kds.NewClient(cfg)
	poller := kds.NewPoller(client, cfg.PollInterval)

	poller.OnNewOrder = func(o kds.Order) {
		// BEL rings the terminal on kitchens that keep the speaker on.
		fmt.Printf("\a>>> NEW ORDER %s (%s)\n", o.OrderNumber, o.OrderType)
	}
	poller.OnRefresh = func(orders []kds.Order) {
		render(poller.Visible(orders))
	}
	poller.OnError = func(err error) {
		log.Printf("ERROR: fetch orders: %v", err)
	}

	log.Printf("Kitchen display polling %s every %s", cfg.ServerURL, cfg.PollInterval)
	poller.Run(ctx)
}

func render(orders []kds.Order) {
	// Clear screen, home cursor.
	fmt.Print("\033[2J\033[H")
	fmt.Printf("KITCHEN — %d open order(s)\n\n", len(orders))

	if len(orders) == 0 {
		fmt.Println("No open orders.")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ORDER\tTYPE\tSTATUS\tWAIT\tURGENCY\tITEMS")
	for _, o := range orders {
		fmt.Fprintf(w, "%s\t%s\t%s\t%dm\t%s\t%s\n",
			o.OrderNumber,
			o.OrderType,
			o.KitchenStatus,
			o.MinutesElapsed,
			urgencyMark(o.Urgency),
			itemSummary(o.Items),
		)
	}
	w.Flush()
}

func urgencyMark(urgency string) string {
	switch urgency {
	case "urgent":
		return "!! URGENT"
	case "warning":
		return "! warning"
	default:
		return "-"
	}
}

func itemSummary(items []kds.OrderItem) string {
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = fmt.Sprintf("%dx %s", it.Quantity, it.ProductName)
		if it.Note != nil && *it.Note != "" {
			parts[i] += " (" + *it.Note + ")"
		}
	}
	return strings.Join(parts, ", ")
}
