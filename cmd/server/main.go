package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/yurifrl/ynabsite/pkg/config"
	"github.com/yurifrl/ynabsite/pkg/server"
)

func main() {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportCaller:    true,
		ReportTimestamp: true,
		Prefix:          "ynabsite",
	})

	var (
		port   = flag.String("port", "3000", "Server port")
		output = flag.String("o", "_site", "Built site directory to serve")
	)
	flag.Parse()

	cfg := &config.Config{OutputDir: *output}
	srv := server.New(cfg, logger)
	addr := fmt.Sprintf("0.0.0.0:%s", *port)
	logger.Info("starting preview server", "addr", addr, "dir", cfg.OutputDir)
	if err := srv.Start(addr); err != nil {
		logger.Fatal("server error", "err", err)
	}
}
