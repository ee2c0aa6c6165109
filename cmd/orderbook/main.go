package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"
	go_zeta "zetago"
	"zetago/config"
	"zetago/constants"
	"zetago/connection"
	"zetago/lib/serum"
	serumSubscriber "zetago/serum"
	"zetago/utils"

	"github.com/gagliardetto/solana-go"
	"github.com/go-errors/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	NewCLI().Run()
}

// CLI is the cobra command tree of the orderbook tool.
type CLI struct {
	root    *cobra.Command
	cfg     *config.Config
	logger  *zap.SugaredLogger
	manager connection.IConnectionManager
}

func NewCLI() *CLI {
	cli := &CLI{}
	cli.root = &cobra.Command{
		Use:           "orderbook",
		Short:         "Inspect serum style order books",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			envFile, err := cmd.Flags().GetString("env-file")
			if err != nil {
				return err
			}
			level, err := cmd.Flags().GetString("log-level")
			if err != nil {
				return err
			}
			return cli.setup(envFile, level)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			cli.teardown()
		},
	}
	cli.root.PersistentFlags().String("env-file", "", "dotenv file to load before the environment")
	cli.root.PersistentFlags().String("log-level", "warn", "log level")

	cli.root.AddCommand(cli.l2Command(), cli.ordersCommand(), cli.openOrdersCommand(), cli.treeCommand(), cli.watchCommand())
	return cli
}

func (cli *CLI) Run() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if err := cli.root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func (cli *CLI) setup(envFile string, level string) error {
	cfg, err := config.LoadFromEnv(envFile)
	if err != nil {
		return err
	}
	logger, err := utils.NewLogger(level)
	if err != nil {
		return err
	}
	rpcConfig, err := connection.ConfigFromEndpoint(cfg.RpcEndpoint)
	if err != nil {
		return err
	}
	wsConfig, err := connection.ConfigFromEndpoint(cfg.WsEndpoint)
	if err != nil {
		return err
	}
	cli.cfg = cfg
	cli.logger = logger.Sugar()
	if cli.manager == nil {
		cli.manager = connection.CreateManager()
	}
	cli.manager.AddConfig(rpcConfig, "rpc")
	cli.manager.AddConfig(wsConfig, "ws")
	return nil
}

func (cli *CLI) teardown() {
	if cli.manager != nil {
		cli.manager.Close()
	}
	if cli.logger != nil {
		_ = cli.logger.Sync()
	}
}

func (cli *CLI) subscriber(cmd *cobra.Command) (*serumSubscriber.OrderbookSubscriber, error) {
	market, err := publicKeyFlag(cmd, "market")
	if err != nil {
		return nil, err
	}
	programId, err := solana.PublicKeyFromBase58(cli.cfg.Network.DEX_PROGRAM_ID)
	if err != nil {
		return nil, err
	}
	return serumSubscriber.CreateOrderbookSubscriber(serumSubscriber.OrderbookSubscriberConfig{
		ProgramId:     programId,
		MarketAddress: market,
		Epoch:         cli.cfg.Epoch,
		Precision:     cli.cfg.Precision,
		Logger:        cli.logger,
	}), nil
}

func (cli *CLI) l2Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "l2",
		Short: "Print aggregated price levels of a market",
		RunE: func(cmd *cobra.Command, args []string) error {
			depth, _ := cmd.Flags().GetInt("depth")
			clockTs, _ := cmd.Flags().GetInt64("clock")
			subscriber, err := cli.subscriber(cmd)
			if err != nil {
				return err
			}
			if err = subscriber.Load(cmd.Context(), cli.manager.GetRpc("rpc")); err != nil {
				return err
			}
			bids, asks, err := subscriber.GetL2(depth, clockTs)
			if err != nil {
				return err
			}
			printLevels(cmd.OutOrStdout(), bids, asks)
			return nil
		},
	}
	cmd.Flags().String("market", "", "market address")
	cmd.Flags().Int("depth", constants.DEFAULT_L2_DEPTH, "number of price levels per side")
	cmd.Flags().Int64("clock", 0, "unix time used for time in force expiry, 0 disables it")
	_ = cmd.MarkFlagRequired("market")
	return cmd
}

func (cli *CLI) ordersCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "Print the resting orders of an open orders account",
		RunE: func(cmd *cobra.Command, args []string) error {
			openOrders, err := publicKeyFlag(cmd, "open-orders")
			if err != nil {
				return err
			}
			subscriber, err := cli.subscriber(cmd)
			if err != nil {
				return err
			}
			if err = subscriber.Load(cmd.Context(), cli.manager.GetRpc("rpc")); err != nil {
				return err
			}
			orders, err := subscriber.GetOrdersForOwner(openOrders)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, order := range orders {
				fmt.Fprintf(out, "%s\t%v\t%v\tclient=%d\ttif=%d\n",
					order.Side, order.Info.Price, order.Info.Size, order.ClientOrderId, order.TifOffset)
			}
			return nil
		},
	}
	cmd.Flags().String("market", "", "market address")
	cmd.Flags().String("open-orders", "", "open orders account address")
	_ = cmd.MarkFlagRequired("market")
	_ = cmd.MarkFlagRequired("open-orders")
	return cmd
}

func (cli *CLI) openOrdersCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "open-orders",
		Short: "Find the open orders accounts of an owner on a market",
		RunE: func(cmd *cobra.Command, args []string) error {
			market, err := publicKeyFlag(cmd, "market")
			if err != nil {
				return err
			}
			owner, err := publicKeyFlag(cmd, "owner")
			if err != nil {
				return err
			}
			programId, err := solana.PublicKeyFromBase58(cli.cfg.Network.DEX_PROGRAM_ID)
			if err != nil {
				return err
			}
			accounts, slot, err := go_zeta.FindOpenOrdersAccounts(cmd.Context(), cli.manager.GetRpc("rpc"), programId, market, owner)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "slot %d\n", slot)
			for _, account := range accounts {
				fmt.Fprintln(out, account)
			}
			return nil
		},
	}
	cmd.Flags().String("market", "", "market address")
	cmd.Flags().String("owner", "", "owner address")
	_ = cmd.MarkFlagRequired("market")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}

func (cli *CLI) treeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Dump the slab tree of a bids or asks account",
		RunE: func(cmd *cobra.Command, args []string) error {
			address, err := publicKeyFlag(cmd, "address")
			if err != nil {
				return err
			}
			info, err := cli.manager.GetRpc("rpc").GetAccountInfo(cmd.Context(), address)
			if err != nil {
				return err
			}
			if info == nil || info.Value == nil {
				return errors.Errorf("account %s not found", address)
			}
			book, err := serum.DecodeOrderbook(info.Value.Data.GetBinary(), serum.MarketParams{})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", book.Side(), book.Slab.Tree())
			return nil
		},
	}
	cmd.Flags().String("address", "", "bids or asks account address")
	_ = cmd.MarkFlagRequired("address")
	return cmd
}

func (cli *CLI) watchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow a market and print the top of book on every interval",
		RunE: func(cmd *cobra.Command, args []string) error {
			depth, _ := cmd.Flags().GetInt("depth")
			interval, _ := cmd.Flags().GetDuration("interval")
			subscriber, err := cli.subscriber(cmd)
			if err != nil {
				return err
			}
			ws, err := cli.manager.GetWs(cmd.Context(), "ws")
			if err != nil {
				return err
			}
			if err = subscriber.Subscribe(cmd.Context(), cli.manager.GetRpc("rpc"), ws); err != nil {
				return err
			}
			defer subscriber.Unsubscribe()

			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-cmd.Context().Done():
					return nil
				case now := <-ticker.C:
					bids, asks, err := subscriber.GetL2(depth, now.Unix())
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "-- %s bids@%d asks@%d\n", now.Format(time.RFC3339),
						subscriber.GetSlot(serum.SideBid), subscriber.GetSlot(serum.SideAsk))
					printLevels(cmd.OutOrStdout(), bids, asks)
				}
			}
		},
	}
	cmd.Flags().String("market", "", "market address")
	cmd.Flags().Int("depth", 5, "number of price levels per side")
	cmd.Flags().Duration("interval", time.Second, "print interval")
	_ = cmd.MarkFlagRequired("market")
	return cmd
}

func publicKeyFlag(cmd *cobra.Command, name string) (solana.PublicKey, error) {
	value, err := cmd.Flags().GetString(name)
	if err != nil {
		return solana.PublicKey{}, err
	}
	key, err := solana.PublicKeyFromBase58(value)
	if err != nil {
		return solana.PublicKey{}, errors.WrapPrefix(err, "--"+name, 0)
	}
	return key, nil
}

// printLevels writes asks worst to best above bids best to worst.
func printLevels(out io.Writer, bids []serum.OrderInfo, asks []serum.OrderInfo) {
	for i := len(asks) - 1; i >= 0; i-- {
		fmt.Fprintf(out, "ask\t%v\t%v\n", asks[i].Price, asks[i].Size)
	}
	for _, bid := range bids {
		fmt.Fprintf(out, "bid\t%v\t%v\n", bid.Price, bid.Size)
	}
}
