package main

import (
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the capture pipeline and the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		noCamera, _ := cmd.Flags().GetBool("no-camera")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		rt, err := newServices()
		if err != nil {
			return err
		}
		defer func() {
			if err := rt.Close(); err != nil {
				log.Errorf("shutdown: %s", err)
			}
		}()

		if !noCamera {
			rt.startPipeline()
		}

		log.Infof("listening on %s", cfg.Addr())
		return rt.server.Serve(ctx, cfg.Addr())
	},
}

func init() {
	serveCmd.Flags().Bool("no-camera", false, "Only accept joint sets pushed to /api/frames")
}
