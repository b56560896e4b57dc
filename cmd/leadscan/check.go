package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

)

var checkTimeout time.Duration

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Test connectivity to the remote model",
	Long: `Send a short prompt to the configured remote model and report whether
it answered. Without an API key the remote tier is disabled and every page
is processed locally.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv(os.Stderr)
		if err != nil {
			return err
		}

		a, err := e.newApp(e.mgr.Get())
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), checkTimeout)
		defer cancel()

		st := a.Status().Remote
		if err := a.Ping(ctx); err != nil {
			return fmt.Errorf("remote model check failed: %w", err)
		}
		fmt.Printf("Remote: ok\n")
		fmt.Printf("  Provider: %s\n", st.Provider)
		fmt.Printf("  Model:    %s\n", st.Model)
		return nil
	},
}

func init() {
	checkCmd.Flags().DurationVar(&checkTimeout, "timeout", time.Minute, "overall timeout for the probe")
	rootCmd.AddCommand(checkCmd)
}
