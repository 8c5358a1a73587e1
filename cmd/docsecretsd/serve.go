/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/hyperledger/fabric-docsecrets/pkg/metrics"
	"github.com/hyperledger/fabric-docsecrets/pkg/server"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			clientMetrics := metrics.NewDiscardClientMetrics()
			serverMetrics := metrics.NewDiscardServerMetrics()
			var metricsHandler http.Handler
			if cfg.Metrics.Enabled {
				provider := metrics.NewProvider()
				clientMetrics = provider.NewClientMetrics()
				serverMetrics = provider.NewServerMetrics()
				metricsHandler = provider.Handler()
			}

			service, connector, err := newService(cfg, clientMetrics)
			if err != nil {
				return err
			}
			defer connector.Close()

			srv := server.New(server.Config{
				ListenAddress:        cfg.Server.ListenAddress,
				MetricsListenAddress: cfg.Metrics.ListenAddress,
				ReadTimeout:          cfg.Server.ReadTimeout,
				WriteTimeout:         cfg.Server.WriteTimeout,
				ShutdownTimeout:      cfg.Server.ShutdownTimeout,
			}, server.NewHandler(service), serverMetrics, metricsHandler)

			errs := make(chan error, 2)
			srv.RunInBackground(errs)

			exit := make(chan os.Signal, 1)
			signal.Notify(exit, os.Interrupt, syscall.SIGTERM)

			select {
			case sig := <-exit:
				logger.Infof("received %s, shutting down", sig)
				srv.Shutdown()
				return nil
			case err := <-errs:
				srv.Shutdown()
				return err
			}
		},
	}
}
