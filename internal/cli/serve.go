package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/mrcode/nightscout-fpu/internal/api"
	"github.com/spf13/cobra"
)

func newServeCmd(st *state) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := st.openApp()
			if err != nil {
				return err
			}

			if addr == "" {
				addr = a.Settings().ListenAddr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return api.NewServer(a, st.logger).ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from settings)")

	return cmd
}
