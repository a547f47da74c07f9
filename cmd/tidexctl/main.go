// Command tidexctl calls the Tidex adapter from the command line and prints
// the unified result as JSON.
//
//	tidexctl [flags] <command> [args]
//
// Run tidexctl -h for the command list.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"maps"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"tidexgo/pkg/core"
	"tidexgo/pkg/exchange"
	"tidexgo/pkg/exchange/tidex"
	"tidexgo/pkg/ordertracker"
)

type commandFunc func(ctx context.Context, ex exchange.Exchange, args []string, opts []exchange.Option) (any, error)

type command struct {
	usage   string
	minArgs int
	run     commandFunc
}

var commands = map[string]command{
	"markets": {usage: "markets", run: func(ctx context.Context, ex exchange.Exchange, _ []string, _ []exchange.Option) (any, error) {
		return ex.LoadMarkets(ctx, false)
	}},
	"currencies": {usage: "currencies", run: func(ctx context.Context, ex exchange.Exchange, _ []string, _ []exchange.Option) (any, error) {
		return ex.FetchCurrencies(ctx)
	}},
	"ticker": {usage: "ticker SYMBOL", minArgs: 1, run: func(ctx context.Context, ex exchange.Exchange, args []string, opts []exchange.Option) (any, error) {
		return ex.FetchTicker(ctx, args[0], opts...)
	}},
	"tickers": {usage: "tickers [SYMBOL...]", run: func(ctx context.Context, ex exchange.Exchange, args []string, opts []exchange.Option) (any, error) {
		return ex.FetchTickers(ctx, args, opts...)
	}},
	"orderbook": {usage: "orderbook SYMBOL", minArgs: 1, run: func(ctx context.Context, ex exchange.Exchange, args []string, opts []exchange.Option) (any, error) {
		return ex.FetchOrderBook(ctx, args[0], opts...)
	}},
	"trades": {usage: "trades SYMBOL", minArgs: 1, run: func(ctx context.Context, ex exchange.Exchange, args []string, opts []exchange.Option) (any, error) {
		var trades []*core.Trade
		for trade, err := range ex.FetchTrades(ctx, args[0], opts...) {
			if err != nil {
				return nil, err
			}
			trades = append(trades, trade)
		}
		return trades, nil
	}},
	"ohlcv": {usage: "ohlcv SYMBOL", minArgs: 1, run: func(ctx context.Context, ex exchange.Exchange, args []string, opts []exchange.Option) (any, error) {
		return ex.FetchOHLCV(ctx, args[0], opts...)
	}},
	"balance": {usage: "balance", run: func(ctx context.Context, ex exchange.Exchange, _ []string, opts []exchange.Option) (any, error) {
		return ex.FetchBalance(ctx, opts...)
	}},
	"create": {usage: "create SYMBOL buy|sell AMOUNT PRICE", minArgs: 4, run: runCreateOrder},
	"cancel": {usage: "cancel ORDER_ID [SYMBOL]", minArgs: 1, run: func(ctx context.Context, ex exchange.Exchange, args []string, opts []exchange.Option) (any, error) {
		return ex.CancelOrder(ctx, &exchange.CancelRequest{OrderID: args[0], Symbol: argAt(args, 1)}, opts...)
	}},
	"order": {usage: "order ORDER_ID [SYMBOL]", minArgs: 1, run: func(ctx context.Context, ex exchange.Exchange, args []string, opts []exchange.Option) (any, error) {
		return ex.FetchOrder(ctx, &exchange.OrderQuery{OrderID: args[0], Symbol: argAt(args, 1)}, opts...)
	}},
	"open": {usage: "open [SYMBOL]", run: func(ctx context.Context, ex exchange.Exchange, args []string, opts []exchange.Option) (any, error) {
		return ex.FetchOpenOrders(ctx, argAt(args, 0), opts...)
	}},
	"mytrades": {usage: "mytrades [SYMBOL]", run: func(ctx context.Context, ex exchange.Exchange, args []string, opts []exchange.Option) (any, error) {
		return ex.FetchMyTrades(ctx, argAt(args, 0), opts...)
	}},
	"withdraw": {usage: "withdraw CODE AMOUNT ADDRESS [TAG]", minArgs: 3, run: runWithdraw},
}

func runCreateOrder(ctx context.Context, ex exchange.Exchange, args []string, opts []exchange.Option) (any, error) {
	amount, err := core.ParseDecimal(args[2])
	if err != nil {
		return nil, fmt.Errorf("parse amount: %w", err)
	}
	price, err := core.ParseDecimal(args[3])
	if err != nil {
		return nil, fmt.Errorf("parse price: %w", err)
	}
	return ex.CreateOrder(ctx, &exchange.OrderRequest{
		Symbol: args[0],
		Side:   core.OrderSide(strings.ToLower(args[1])),
		Type:   core.TypeLimit,
		Amount: amount,
		Price:  price,
	}, opts...)
}

func runWithdraw(ctx context.Context, ex exchange.Exchange, args []string, opts []exchange.Option) (any, error) {
	amount, err := core.ParseDecimal(args[1])
	if err != nil {
		return nil, fmt.Errorf("parse amount: %w", err)
	}
	return ex.Withdraw(ctx, &exchange.WithdrawRequest{
		Currency: args[0],
		Amount:   amount,
		Address:  args[2],
		Tag:      argAt(args, 3),
	}, opts...)
}

func argAt(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "tidexctl: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, argv []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("tidexctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to YAML config file")
	envFile := fs.String("env", ".env", "dotenv file loaded before the config")
	limit := fs.Int("limit", 0, "maximum number of items")
	since := fs.Int64("since", 0, "lower time bound in epoch milliseconds")
	cursor := fs.String("cursor", "", "trade id to page public trades from")
	timeframe := fs.String("timeframe", "", "candle width, for example 1m or 1h")
	timeout := fs.Duration("timeout", 30*time.Second, "overall deadline")
	fs.Usage = func() { printUsage(fs) }

	if err := fs.Parse(argv); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	if fs.NArg() == 0 {
		printUsage(fs)
		return errors.New("missing command")
	}

	name, args := fs.Arg(0), fs.Args()[1:]
	cmd, ok := commands[name]
	if !ok {
		return fmt.Errorf("unknown command %q", name)
	}
	if len(args) < cmd.minArgs {
		return fmt.Errorf("usage: tidexctl %s", cmd.usage)
	}

	cfg, err := LoadConfig(*configPath, *envFile)
	if err != nil {
		return err
	}
	logger := newLogger(stderr, cfg)

	tracker := ordertracker.New(cfg.Tracker)
	tracker.SetLogger(logger)
	tracker.OnOrderUpdate(func(o core.Order) {
		logger.Info().Str("order_id", o.ID).Str("symbol", o.Symbol).Str("status", string(o.Status)).Msg("order update")
	})

	reg := exchange.NewRegistry()
	tidex.Register(reg, tidex.WithLogger(logger), tidex.WithOrderTracker(tracker))
	defer reg.Close()

	ex, err := reg.Open(&cfg.Config)
	if err != nil {
		return err
	}

	var opts []exchange.Option
	if *limit > 0 {
		opts = append(opts, exchange.WithLimit(*limit))
	}
	if *since > 0 {
		opts = append(opts, exchange.WithSince(*since))
	}
	if *cursor != "" {
		opts = append(opts, exchange.WithCursor(*cursor))
	}
	if *timeframe != "" {
		opts = append(opts, exchange.WithTimeframe(*timeframe))
	}

	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	result, err := cmd.run(ctx, ex, args, opts)
	if err != nil {
		return err
	}
	return writeJSON(stdout, result)
}

func newLogger(w io.Writer, cfg *Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	if cfg.Pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

func writeJSON(w io.Writer, v any) error {
	data, err := core.JSON.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}

func printUsage(fs *flag.FlagSet) {
	out := fs.Output()
	fmt.Fprintln(out, "usage: tidexctl [flags] <command> [args]")
	fmt.Fprintln(out, "\ncommands:")
	for _, name := range slices.Sorted(maps.Keys(commands)) {
		fmt.Fprintf(out, "  %s\n", commands[name].usage)
	}
	fmt.Fprintln(out, "\nflags:")
	fs.PrintDefaults()
}
