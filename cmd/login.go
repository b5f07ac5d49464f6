package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate against the tenant and cache tokens",
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := initAuthManager()
		if err != nil {
			return err
		}

		if _, err := mgr.Acquire(cmd.Context()); err != nil {
			return eris.Wrap(err, "login")
		}

		zap.L().Info("login complete", zap.String("cache_file", cfg.Auth.CacheFile))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
}
