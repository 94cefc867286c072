package worker

import (
	"context"
	"time"

	"cryptoquote-service/internal/application"
	"cryptoquote-service/internal/infrastructure/config"

	"go.uber.org/zap"
)

var _ application.Worker = (*PricePoller)(nil)

// PricePoller keeps the engine's price fresh between selections by
// refetching the selected pair on a fixed interval. Fees are not polled
// here: they arrive through the engine's own fetch and the live feed.
type PricePoller struct {
	Market application.MarketData
	Engine *application.QuoteEngine

	PollEvery time.Duration
	Log       *zap.Logger
}

func (w *PricePoller) Start(ctx context.Context) {
	log := w.Log
	if log == nil {
		log = zap.NewNop()
	}
	if w.PollEvery <= 0 {
		w.PollEvery = config.DefaultPricePoll
	}

	t := time.NewTicker(w.PollEvery)
	defer t.Stop()

	log.Info("price_poller_started", zap.Duration("poll_every", w.PollEvery))
	for {
		select {
		case <-ctx.Done():
			log.Info("price_poller_stopped")
			return
		case <-t.C:
			w.tick(ctx, log)
		}
	}
}

func (w *PricePoller) tick(ctx context.Context, log *zap.Logger) {
	symbol := w.Engine.State().SelectedSymbol
	if symbol == "" {
		return
	}
	c, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	price, err := w.Market.GetPrice(c, symbol)
	if err != nil {
		log.Warn("price_poll_failed", zap.String("symbol", symbol), zap.Error(err))
		return
	}
	w.Engine.ApplyPrice(price)
}
