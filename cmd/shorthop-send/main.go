// Command shorthop-send is the Sender CLI entry point: it parses flags
// into a config.SendConfig, runs a session, and renders it to the
// terminal (spec.md §6 "out of scope" collaborators — CLI parsing and
// the terminal renderer live here, outside the core).
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
		message       string
		password      string
		expireMinutes uint8
		debug         bool
	)

	cmd := &cobra.Command{
		Use:   "shorthop-send [files...]",
		Short: "Send files, directories, or a message to a Receiver on the LAN",
		RunE: func(cmd *cobra.Command, args []string) error {
			logging.SetDebug(debug)

			cfg := config.SendConfig{
				ExpireMinutes: expireMinutes,
				Files:         args,
				Message:       message,
				Password:      password,
			}

			bus := events.NewBus()
			defer bus.Close()

			renderer := ui.New(bus)
			go renderer.Run()
			renderer.Waiting("waiting for a receiver to connect")

			result := session.RunSender(cfg, bus)
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

	cmd.Flags().StringVarP(&message, "message", "m", "", "text message to send alongside (or instead of) files")
	cmd.Flags().StringVarP(&password, "password", "p", "", "require this password on the Connect handshake")
	cmd.Flags().Uint8VarP(&expireMinutes, "expire", "e", config.DefaultExpireMinutes, "minutes to wait for a Receiver before giving up")
	cmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
