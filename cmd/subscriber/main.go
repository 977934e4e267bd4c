// subscriber tails ledger events from Redis Pub/Sub. With -account it follows
// one pool or launch; with -ix one instruction type; otherwise everything.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/aman-zulfiqar/redz-ledger/internal/config"
	"github.com/aman-zulfiqar/redz-ledger/internal/constants"
	"github.com/aman-zulfiqar/redz-ledger/internal/events"
	"github.com/aman-zulfiqar/redz-ledger/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func main() {
	account := flag.String("account", "", "follow one pool, launch or config address")
	ix := flag.String("ix", "", "follow one instruction type, or * for all by pattern")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "2006-01-02 15:04:05"})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg := config.Load()
	rclient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	defer rclient.Close()

	pub, err := events.NewPublisher(rclient, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to create subscriber")
	}

	handler := func(ev *models.LedgerEvent) {
		logger.WithFields(logrus.Fields{
			"signature":  ev.Signature,
			"index":      ev.Index,
			"subject":    ev.Subject,
			"signer":     ev.Signer,
			"direction":  ev.Direction,
			"amount_a":   ev.AmountA,
			"amount_b":   ev.AmountB,
			"amount_in":  ev.AmountIn,
			"amount_out": ev.AmountOut,
			"lp_amount":  ev.LpAmount,
		}).Info(ev.Instruction)
	}

	switch {
	case *account != "":
		err = pub.Subscribe(ctx, constants.ChannelAccountPrefix+*account, handler)
	case *ix == "*":
		err = pub.PSubscribe(ctx, constants.ChannelInstructionPrefix+"*", handler)
	case *ix != "":
		err = pub.Subscribe(ctx, constants.ChannelInstructionPrefix+*ix, handler)
	default:
		err = pub.Subscribe(ctx, constants.ChannelAllEvents, handler)
	}
	if err != nil && ctx.Err() == nil {
		logger.WithError(err).Fatal("subscription failed")
	}
	logger.Info("subscriber stopped")
}
