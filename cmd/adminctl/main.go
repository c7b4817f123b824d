package main

import (
	"fmt"
	"os"

	"github.com/jrsteele09/go-admin-auth/internal/config"
	"github.com/jrsteele09/go-admin-auth/internal/logging"
	"github.com/spf13/cobra"
)

func main() {
	var verbose bool
	cfg := config.New()

	rootCmd := &cobra.Command{
		Use:   "adminctl",
		Short: "Sign in to the admin backend and run the admin console",
		Long: `adminctl manages an admin session against the REST backend.

The access and refresh tokens are kept in the configured token store
(TOKEN_STORE=file|redis|memory) and shared by every command, including
the console started with "adminctl serve".`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := cfg.GetLogLevel()
			switch {
			case verbose:
				level = "debug"
			case cmd.Name() != "serve":
				// Keep one-shot commands quiet unless something goes wrong.
				level = "warn"
			}
			logging.Setup(cfg.GetEnv(), level)
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(
		loginCmd(cfg),
		registerCmd(cfg),
		logoutCmd(cfg),
		statusCmd(cfg),
		whoamiCmd(cfg),
		captchaCmd(cfg),
		serveCmd(cfg),
	)

	if err := rootCmd.Execute(); err != nil {
		errorMsg("%s", err)
		os.Exit(1)
	}
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(format string, args ...any) {
	fmt.Printf("\033[33m⚠\033[0m %s\n", fmt.Sprintf(format, args...))
}

// errorMsg prints an error message.
func errorMsg(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "\033[31m✗\033[0m %s\n", fmt.Sprintf(format, args...))
}
