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
Echo frames on a raw SocketCAN socket.

Every frame received on IFACE is dumped, each payload byte is incremented
by one, the identifier is replaced by the transmit identifier, and the
result is written back to the bus.
`)

var exampleUsage = strings.TrimSpace(`
  socketcan-raw-demo can0
  socketcan-raw-demo --tx-id 0x0CC vcan0
`)

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	log := cliconfig.Logger()

	root := &cobra.Command{
		Use:     "socketcan-raw-demo [flags] IFACE",
		Short:   "Echo frames on a raw SocketCAN socket",
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
				Str("tx-id", fmt.Sprintf("0x%03X", cfg.RawTxID)).
				Msg("configuration")

			sess, err := socketcan.Open(cfg.Iface, socketcan.Raw)
			if err != nil {
				return fmt.Errorf("open raw session: %w", err)
			}

			// The registration stays in place through shutdown, so a repeat
			// signal is absorbed instead of killing the process mid-close.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			eng := &echo.Engine{Pipe: socketcan.NewRawPipe(sess), TxID: cfg.RawTxID, Log: log}
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
	root.Flags().Uint32Var(&cfg.RawTxID, "tx-id", cfg.RawTxID, "identifier stamped on echoed frames")

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("socketcan-raw-demo")
		os.Exit(1)
	}
}
