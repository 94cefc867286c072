package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"cryptoquote-service/internal/bootstrap"
	"cryptoquote-service/internal/config"
	"cryptoquote-service/internal/infrastructure/logx"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func init() { _ = godotenv.Load() }

// One-shot quote from the command line, against the same market source
// the API uses. Handy for checking a conversion without starting the
// server.
func main() {
	symbol := flag.String("symbol", "", "trading pair symbol, e.g. BTC_USDT")
	amount := flag.String("amount", "", "amount to convert")
	flag.Parse()

	if *symbol == "" || *amount == "" {
		fmt.Fprintln(os.Stderr, "usage: quote -symbol BTC_USDT -amount 1.5")
		os.Exit(2)
	}

	logger := logx.L()
	cfg := config.Load()

	feeCache, closeCache, err := bootstrap.BuildFeeCache(cfg)
	if err != nil {
		logger.Fatal("bootstrap fee cache", zap.Error(err))
	}
	defer closeCache()

	md, _ := bootstrap.BuildMarket(cfg, feeCache)
	engine := bootstrap.BuildEngine(md, feeCache)

	ctx := context.Background()
	if _, err := engine.LoadPairs(ctx); err != nil {
		logger.Fatal("load pairs", zap.Error(err))
	}
	if _, ok := engine.Pair(*symbol); !ok {
		fmt.Fprintf(os.Stderr, "unknown symbol %q\n", *symbol)
		os.Exit(1)
	}
	if err := engine.SelectPair(ctx, *symbol); err != nil {
		logger.Fatal("fetch quote inputs", zap.Error(err))
	}
	engine.SetAmount(*amount)

	st := engine.State()
	fmt.Printf("symbol:   %s\n", st.SelectedSymbol)
	fmt.Printf("price:    %s\n", st.Price)
	fmt.Printf("fee:      %s%%\n", st.FeePercent)
	fmt.Printf("receive:  %s\n", st.DerivedAmount)
	if !engine.ValidateAmount() {
		fmt.Printf("warning:  amount outside limits [%s, %s]\n", st.MinAmount, st.MaxAmount)
	}
}
