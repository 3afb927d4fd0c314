// Command server wires the matching engine core to its durability and
// transport layers: WAL replay, the gRPC surface, the periodic snapshot
// job, and the two Kafka publishers. Grounded on the teacher's
// cmd/server/main.go top-to-bottom construction order (WAL open, book
// construct, replay, service construct, background jobs, gRPC serve).
package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"

	grpcapi "lobengine/api/grpc"
	"lobengine/internal/analytics"
	"lobengine/internal/broadcaster"
	"lobengine/internal/config"
	"lobengine/internal/ivsolver"
	"lobengine/internal/logging"
	"lobengine/internal/marketdata"
	"lobengine/internal/orderbook"
	"lobengine/internal/sequence"
	"lobengine/internal/service"
	"lobengine/internal/snapshotstore"
	"lobengine/internal/walstore"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		panic(err)
	}

	log := logging.New("lobengine", cfg.Symbol)
	log.Info("starting")

	wal, err := walstore.Open(walstore.Config{Dir: cfg.WALDir})
	if err != nil {
		log.WithError(err).Fatal("wal open failed")
	}
	defer wal.Close()

	book := orderbook.NewOrderBook(cfg.Symbol)

	if err := service.ReplayFromWAL(cfg.WALDir, book); err != nil {
		log.WithError(err).Fatal("wal replay failed")
	}
	log.Info("wal replay complete")

	engine := service.NewEngine(book, wal)

	snapStore, err := snapshotstore.Open(cfg.SnapshotDir)
	if err != nil {
		log.WithError(err).Fatal("snapshot store open failed")
	}
	defer snapStore.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	snapSeq := sequence.New(1)
	if lastSeq, _, err := snapStore.Latest(); err == nil {
		snapSeq.Reset(lastSeq + 1)
	}
	go runTicker(ctx, cfg.SnapshotEvery, func() {
		raw, err := analytics.BuildRawSnapshot(book, cfg.SnapshotDepth)
		if err != nil {
			log.WithError(err).Warn("snapshot build failed")
			return
		}
		if err := snapStore.Put(snapSeq.Next(), raw); err != nil {
			log.WithError(err).Warn("snapshot store put failed")
		}
	})

	go runTicker(ctx, cfg.EpochEvery, func() {
		book.PurgeExpired(orderbook.Buy)
		book.PurgeExpired(orderbook.Sell)
	})

	bc, err := broadcaster.New(cfg.KafkaBrokers, cfg.TradeTopic)
	if err != nil {
		log.WithError(err).Warn("trade broadcaster dial failed, trades will not be published")
	} else {
		unsubscribe := bc.ListenTo(book)
		defer unsubscribe()
		go bc.Run(ctx)
		defer bc.Close()
	}

	mdProducer := marketdata.NewProducer(cfg.KafkaBrokers, cfg.MarketDataTopic)
	defer mdProducer.Close()
	mdPublisher := marketdata.NewPublisher(mdProducer, book, cfg.SnapshotDepth, analytics.MetricAll, cfg.MarketDataEvery)
	go mdPublisher.Run(ctx)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.WithError(err).Fatal("listen failed")
	}

	grpcSrv := grpc.NewServer()
	srv := grpcapi.NewServerWithEngine(engine, ivsolver.DefaultSolverConfig())
	grpcapi.RegisterOrderBookServer(grpcSrv, srv)

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		log.Info("shutting down")
		grpcSrv.GracefulStop()
		cancel()
	}()

	log.WithField("addr", cfg.GRPCAddr).Info("serving")
	if err := grpcSrv.Serve(lis); err != nil {
		log.WithError(err).Fatal("gRPC server exited")
	}
}

func runTicker(ctx context.Context, every time.Duration, fn func()) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}
