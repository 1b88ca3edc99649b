package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/jmcglad/socketcan-demo/internal/cliconfig"
	"github.com/jmcglad/socketcan-demo/internal/echo"
	"github.com/jmcglad/socketcan-demo/internal/socketcan"
)

const version = "2.0.0"

var longHelp = strings.TrimSpace(`
Echo filtered frames through a SocketCAN broadcast-manager socket.

A kernel receive filter is registered for the watch identifier, so only
matching frames reach this program. Each one is dumped, its payload bytes
are incremented by one, its identifier is replaced by the transmit
identifier, and the result is sent back out as a one-shot transmission.
`)

var exampleUsage = strings.TrimSpace(`
  socketcan-bcm-demo can0
  socketcan-bcm-demo --watch-id 0x123 --tx-id 0x0BC vcan0
`)

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	log := cliconfig.Logger()

	root := &cobra.Command{
		Use:     "socketcan-bcm-demo [flags] IFACE",
		Short:   "Echo filtered frames through a SocketCAN broadcast-manager socket",
		Long:    longHelp,
		Example: exampleUsage,
		Args:    cobra.ExactArgs(1),
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.Iface = args[0]

			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })
			if err := cliconfig.Merge(&cfg, cfgPath, changed); err != nil {
				return err
			}
			log.Info().Str("iface", cfg.Iface).
				Str("watch-id", fmt.Sprintf("0x%03X", cfg.WatchID)).
				Str("tx-id", fmt.Sprintf("0x%03X", cfg.EchoTxID)).
				Msg("configuration")

			sess, err := socketcan.Open(cfg.Iface, socketcan.BroadcastManager)
			if err != nil {
				return fmt.Errorf("open bcm session: %w", err)
			}

			// The registration stays in place through shutdown, so a repeat
			// signal is absorbed instead of killing the process mid-close.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			pipe, err := socketcan.NewBCMPipe(ctx, sess, cfg.WatchID, log)
			if err != nil {
				_ = sess.Close()
				return err
			}

			eng := &echo.Engine{Pipe: pipe, TxID: cfg.EchoTxID, Log: log}
			if err := eng.Run(ctx); err != nil {
				_ = sess.Close()
				return err
			}
			if ctx.Err() != nil {
				log.Info().Msg("received signal, draining...")
			}

			if err := sess.Close(); err != nil {
				return fmt.Errorf("close session: %w", err)
			}
			fmt.Println("Goodbye!")
			return nil
		},
	}

	root.SetVersionTemplate("{{.Version}}\n")
	root.Flags().BoolP("version", "V", false, "Display version info then exit")
	root.Flags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.socketcan-demo/config.toml)")
	root.Flags().Uint32Var(&cfg.WatchID, "watch-id", cfg.WatchID, "identifier the kernel receive filter matches")
	root.Flags().Uint32Var(&cfg.EchoTxID, "tx-id", cfg.EchoTxID, "identifier stamped on echoed frames")

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("socketcan-bcm-demo")
		os.Exit(1)
	}
}
