package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/jmcglad/socketcan-demo/internal/cliconfig"
	"github.com/jmcglad/socketcan-demo/internal/cyclic"
	"github.com/jmcglad/socketcan-demo/internal/socketcan"
)

const version = "2.0.0"

var longHelp = strings.TrimSpace(`
Register cyclic messages with the SocketCAN broadcast manager.

A single transmission task is handed to the kernel: four frames with
identifiers 0x0C0 through 0x0C3, sent one at a time every 1200 ms, over
and over. The kernel keeps transmitting on its own until this program is
stopped, which closes the socket and cancels the task.
`)

var exampleUsage = strings.TrimSpace(`
  socketcan-cyclic-demo can0
  socketcan-cyclic-demo --base-id 0x0C0 --frames 4 --interval 1200ms vcan0
`)

const bannerFmt = `Use a tool such as "candump %s" to view the messages.
These messages will continue to transmit so long as the socket
used to communicate with SocketCAN remains open. In other words,
close this program with SIGINT or SIGTERM in order to gracefully
stop transmitting.
`

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	log := cliconfig.Logger()

	root := &cobra.Command{
		Use:     "socketcan-cyclic-demo [flags] IFACE",
		Short:   "Register cyclic messages with the SocketCAN broadcast manager",
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
				Str("base-id", fmt.Sprintf("0x%03X", cfg.CyclicBaseID)).
				Int("frames", cfg.CyclicFrames).
				Int("length", cfg.CyclicLength).
				Dur("interval", cfg.CyclicInterval).
				Msg("configuration")

			sess, err := socketcan.Open(cfg.Iface, socketcan.BroadcastManager)
			if err != nil {
				return fmt.Errorf("open bcm session: %w", err)
			}

			// The registration stays in place through shutdown, so a repeat
			// signal is absorbed instead of killing the process mid-close.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			task := cyclic.Task{
				BaseID:   cfg.CyclicBaseID,
				Frames:   cfg.CyclicFrames,
				Length:   cfg.CyclicLength,
				Interval: cfg.CyclicInterval,
			}
			if err := cyclic.Register(ctx, sess, task); err != nil {
				_ = sess.Close()
				return err
			}

			color.New(color.FgCyan).Println("Cyclic messages registered with SocketCAN!")
			fmt.Printf(bannerFmt, cfg.Iface)

			// The kernel is transmitting on its own now; nothing left to do
			// but wait for termination.
			<-ctx.Done()
			log.Info().Msg("received signal, shutting down...")

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
	root.Flags().Uint32Var(&cfg.CyclicBaseID, "base-id", cfg.CyclicBaseID, "identifier of the first cyclic frame")
	root.Flags().IntVar(&cfg.CyclicFrames, "frames", cfg.CyclicFrames, "number of cyclic frames")
	root.Flags().IntVar(&cfg.CyclicLength, "length", cfg.CyclicLength, "payload length of each cyclic frame")
	root.Flags().DurationVar(&cfg.CyclicInterval, "interval", cfg.CyclicInterval, "repeat interval shared by all frames")

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("socketcan-cyclic-demo")
		os.Exit(1)
	}
}
