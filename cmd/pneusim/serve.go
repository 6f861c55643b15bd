package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/edgeo-scada/pneusim"
	"github.com/spf13/cobra"
)

var (
	serveTick      time.Duration
	serveThreshold uint
	serveSeed      bool
	serveBase      uint16
	serveMaxConns  int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Modbus TCP slave",
	Long: `Run the slave and its simulation loop until interrupted.

The control system under test writes the valve coils; the simulation
loop counts how many cycles each valve has been held and trips the
position sensors once the threshold is reached.`,
	Example: `  # Defaults: port 502, 100ms cycle, threshold 3, starts retracted
  pneusim serve

  # The older deployment variant: threshold 2, 1-based bank addresses,
  # sensors low at startup
  pneusim serve --threshold 2 --address-base 1 --seed-retracted=false`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().DurationVar(&serveTick, "tick", pneusim.DefaultTickPeriod, "simulation cycle period")
	serveCmd.Flags().UintVar(&serveThreshold, "threshold", pneusim.DefaultSensorThreshold, "cycles before a sensor trips")
	serveCmd.Flags().BoolVar(&serveSeed, "seed-retracted", true, "start with sensor_home high")
	serveCmd.Flags().Uint16Var(&serveBase, "address-base", 0, "wire address of the first register in each bank")
	serveCmd.Flags().IntVar(&serveMaxConns, "max-conns", 100, "maximum concurrent connections")
}

func runServe(cmd *cobra.Command, args []string) error {
	store := pneusim.NewRegisterStore(
		pneusim.WithAddressBase(serveBase),
	)

	engine := pneusim.NewEngine(store,
		pneusim.WithTickPeriod(serveTick),
		pneusim.WithThreshold(serveThreshold),
		pneusim.WithSeedRetracted(serveSeed),
		pneusim.WithEngineLogger(logger),
	)

	server := pneusim.NewServer(store,
		pneusim.WithServerLogger(logger),
		pneusim.WithMaxConnections(serveMaxConns),
	)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutting down")
		cancel()
	}()

	go engine.Run(ctx)

	addr := getAddress()
	logger.Info("starting pneumatic cylinder slave",
		slog.String("addr", addr),
		slog.Duration("tick", serveTick),
		slog.Uint64("threshold", uint64(serveThreshold)),
		slog.Bool("seed_retracted", serveSeed),
		slog.Uint64("address_base", uint64(serveBase)))

	return server.ListenAndServeContext(ctx, addr)
}
