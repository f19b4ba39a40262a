package main

import (
	"context"
	"os"
	"syscall"

	"github.com/charmbracelet/fang"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/garrettladley/bnotif/internal/paths"
	"github.com/garrettladley/bnotif/internal/version"
)

func main() {
	_ = godotenv.Load()
	if path, err := paths.EnvFile(); err == nil {
		_ = godotenv.Load(path)
	}

	rootCmd := &cobra.Command{
		Use:     "bnotif",
		Short:   "Notification feed and unread badge from the terminal",
		Version: version.Get(),
	}

	flags := &moderationFlags{}
	flags.register(rootCmd)

	rootCmd.AddCommand(watchCmd(flags))
	rootCmd.AddCommand(feedCmd(flags))
	rootCmd.AddCommand(findCmd(flags))

	if err := fang.Execute(context.Background(), rootCmd, fang.WithNotifySignal(os.Interrupt, syscall.SIGTERM)); err != nil {
		os.Exit(1)
	}
}
