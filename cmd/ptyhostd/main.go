package main

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ptyhostd/ptyhostd/internal/config"
	"github.com/ptyhostd/ptyhostd/internal/server"
)

func main() {
	root := &cobra.Command{
		Use:   "ptyhostd [dir] [initial-client-fd]",
		Short: "PTY multiplexing supervisor daemon",
		Args:  cobra.RangeArgs(0, 2),
		RunE:  run,
	}

	root.Flags().String("config", "", "path to a YAML config file")

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ptyhostd: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	var cfg *config.Config
	if configPath != "" {
		c, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = c
	} else {
		cfg = config.Default()
	}

	if len(args) >= 1 && args[0] != "" {
		cfg.Dir = args[0]
	}
	if err := os.MkdirAll(cfg.Dir, 0o700); err != nil {
		return fmt.Errorf("create runtime dir %s: %w", cfg.Dir, err)
	}

	initialClientFd := 3 // the process that spawned us (internal/client.Create) hands us ExtraFiles[0] at fd 3
	if len(args) >= 2 {
		fd, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("parse initial client fd %q: %w", args[1], err)
		}
		initialClientFd = fd
	}

	srv, err := server.New(cfg, initialClientFd)
	if err != nil {
		return fmt.Errorf("construct server: %w", err)
	}

	log.Printf("ptyhostd pid=%d starting (rendezvous dir=%s)", os.Getpid(), cfg.Dir)
	return srv.Run()
}
