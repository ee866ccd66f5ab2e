package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/x402labs/x402gate/internal/config"
	"github.com/x402labs/x402gate/internal/model"
	"github.com/x402labs/x402gate/internal/routing"
)

// Offline quote inspector: prints the generated routes and the
// aggregated quote for a given allocation without starting the server.
//
//	go run ./cmd/inspector -amount 1000 -stable 20 -liquid 30 -growth 50
func main() {
	amount := flag.Float64("amount", 1000, "total amount to allocate")
	stable := flag.Float64("stable", 40, "stable bucket percent")
	liquid := flag.Float64("liquid", 40, "liquid bucket percent")
	growth := flag.Float64("growth", 20, "growth bucket percent")
	mev := flag.Bool("mev", false, "quote with MEV protection")
	flag.Parse()

	alloc := model.Allocation{Stable: *stable, Liquid: *liquid, Growth: *growth}
	if !alloc.Valid() {
		fmt.Fprintf(os.Stderr, "allocation sums to %.1f, expected 100\n", alloc.Sum())
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	costModel := routing.NewStaticCostModel()
	generator := routing.NewGenerator(costModel, cfg.Routing)
	aggregator := routing.NewAggregator(costModel, cfg.Routing)

	routes := generator.Generate(alloc, decimal.NewFromFloat(*amount))
	quote := aggregator.BuildQuote(uuid.New().String(), routes, *mev)

	out, _ := json.MarshalIndent(quote, "", "  ")
	fmt.Println(string(out))
}
