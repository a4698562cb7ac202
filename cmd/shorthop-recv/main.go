// Command shorthop-recv is the Receiver CLI entry point: it parses
// flags into a config.RecvConfig, runs a session, and renders it to
// the terminal.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shorthop/shorthop/internal/config"
	"github.com/shorthop/shorthop/internal/events"
	"github.com/shorthop/shorthop/internal/logging"
	"github.com/shorthop/shorthop/internal/session"
	"github.com/shorthop/shorthop/internal/ui"
)

func main() {
	var (
		code          string
		dir           string
		overwriteFlag string
		password      string
		expireMinutes uint8
		debug         bool
	)

	cmd := &cobra.Command{
		Use:   "shorthop-recv <code>",
		Short: "Receive files, directories, or a message from a Sender on the LAN",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logging.SetDebug(debug)
			code = args[0]

			strategy, err := config.ParseStrategy(overwriteFlag)
			if err != nil {
				return err
			}

			cfg := config.RecvConfig{
				Code:          code,
				Dir:           dir,
				Overwrite:     strategy,
				Password:      password,
				ExpireMinutes: expireMinutes,
			}

			bus := events.NewBus()
			defer bus.Close()

			renderer := ui.New(bus)
			go renderer.Run()
			renderer.Waiting("announcing to the sender")

			result := session.RunReceiver(cfg, bus)
			bus.Close()

			if !result.Done {
				if result.Err != nil {
					return result.Err
				}
				os.Exit(1)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "destination directory")
	cmd.Flags().StringVarP(&overwriteFlag, "overwrite", "o", "ask", "conflict strategy: ask|overwrite|rename|skip")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password required by the Connect handshake")
	cmd.Flags().Uint8VarP(&expireMinutes, "expire", "e", config.DefaultExpireMinutes, "not read by the receiver, which gives up after 10 announcements 5 s apart")
	cmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
