package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jrsteele09/go-admin-auth/internal/config"
	"github.com/jrsteele09/go-admin-auth/resourceapi"
	"github.com/jrsteele09/go-admin-auth/session"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const passwordEnvVar = "ADMINCTL_PASSWORD"

func loginCmd(cfg config.Config) *cobra.Command {
	var (
		username    string
		password    string
		captchaID   string
		captchaCode string
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session tokens",
		Long: `Sign in with a username and password.

The password is read from --password, then $ADMINCTL_PASSWORD, then a
line on stdin. If the backend asks for a captcha, fetch one with
"adminctl captcha" and pass --captcha-id and --captcha-code.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if username == "" {
				return fmt.Errorf("--username is required")
			}
			pw, err := resolvePassword(password)
			if err != nil {
				return err
			}

			a, err := newApp(ctx, cfg, cliNavigator)
			if err != nil {
				return err
			}
			defer a.Close()

			err = a.controller.Login(ctx, resourceapi.LoginRequest{
				Username:    username,
				Password:    pw,
				CaptchaID:   captchaID,
				CaptchaCode: captchaCode,
			})
			if err != nil {
				return userError(err)
			}
			a.controller.SettleLoading()

			state := a.controller.State()
			success("Signed in as %s (%s)", state.User.Username, state.User.Role)
			if !state.TokenExpiresAt.IsZero() {
				info("Access token expires %s", state.TokenExpiresAt.Local().Format(time.RFC1123))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "Username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password")
	cmd.Flags().StringVar(&captchaID, "captcha-id", "", "Captcha challenge id")
	cmd.Flags().StringVar(&captchaCode, "captcha-code", "", "Captcha answer")

	return cmd
}

func registerCmd(cfg config.Config) *cobra.Command {
	var (
		username string
		email    string
		password string
		role     string
	)

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Long:  "Create an account. Registration does not sign you in.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if username == "" || email == "" {
				return fmt.Errorf("--username and --email are required")
			}
			pw, err := resolvePassword(password)
			if err != nil {
				return err
			}

			a, err := newApp(ctx, cfg, cliNavigator)
			if err != nil {
				return err
			}
			defer a.Close()

			user, err := a.controller.Register(ctx, resourceapi.RegisterRequest{
				Username: username,
				Email:    email,
				Password: pw,
				Role:     role,
			})
			if err != nil {
				return userError(err)
			}
			success("Registered %s (id %d)", user.Username, user.ID)
			info("Run \"adminctl login -u %s\" to sign in.", user.Username)
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "Username")
	cmd.Flags().StringVarP(&email, "email", "e", "", "Email address")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password")
	cmd.Flags().StringVar(&role, "role", "", "Requested role (the backend may ignore it)")

	return cmd
}

func logoutCmd(cfg config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and clear the stored tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, cfg, cliNavigator)
			if err != nil {
				return err
			}
			if _, ok := a.tokens.AccessToken(ctx); !ok {
				a.Close()
				warn("Not signed in")
				return nil
			}

			a.controller.Logout(ctx)
			// Close waits for the backend notification so the process does not exit early.
			a.Close()
			success("Signed out")
			return nil
		},
	}
}

func statusCmd(cfg config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Verify the stored session against the backend",
		Long: `Verify the stored session. An access token close to expiry is
refreshed first. A session the backend rejects is cleared.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, cfg, cliNavigator)
			if err != nil {
				return err
			}
			defer a.Close()

			state := a.controller.CheckAuth(ctx)
			if !state.IsAuthenticated {
				warn("Not signed in")
				return nil
			}
			success("Signed in as %s", state.User.Username)
			info("Role:    %s", state.User.Role)
			info("Email:   %s", state.User.Email)
			if !state.TokenExpiresAt.IsZero() {
				info("Expires: %s", state.TokenExpiresAt.Local().Format(time.RFC1123))
			}
			return nil
		},
	}
}

func whoamiCmd(cfg config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the identity in the stored access token without contacting the backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, cfg, cliNavigator)
			if err != nil {
				return err
			}
			defer a.Close()

			inspector := a.controller.Inspector()
			claims, ok := inspector.CurrentClaimsUser(ctx)
			if !ok {
				warn("No readable access token stored")
				return nil
			}

			info("User:    %s (id %d)", claims.Username, claims.ID)
			info("Role:    %s", claims.Role)
			if claims.Exp > 0 {
				info("Expires: %s", time.Unix(claims.Exp, 0).Local().Format(time.RFC1123))
			}
			switch {
			case inspector.IsAccessTokenValid(ctx):
				success("Access token is valid")
			case inspector.HasUsableCredentials(ctx):
				warn("Access token is expiring; the next command will refresh it")
			default:
				warn("Access token has expired")
			}
			return nil
		},
	}
}

// userError keeps the display message of an auth failure and drops the wrapped detail,
// which is logged at debug level instead.
func userError(err error) error {
	var authErr *session.AuthError
	if errors.As(err, &authErr) {
		log.Debug().Err(err).Msg("auth failure")
		return errors.New(authErr.Message)
	}
	return err
}

// resolvePassword prefers the flag, then the environment, then one line from stdin.
func resolvePassword(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if pw := os.Getenv(passwordEnvVar); pw != "" {
		return pw, nil
	}
	fmt.Print("Password: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading password: %w", err)
	}
	pw := strings.TrimRight(line, "\r\n")
	if pw == "" {
		return "", fmt.Errorf("a password is required")
	}
	return pw, nil
}

func captchaCmd(cfg config.Config) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "captcha",
		Short: "Fetch a login captcha and save its image",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.GetAPITimeout())
			defer cancel()

			a, err := newApp(ctx, cfg, cliNavigator)
			if err != nil {
				return err
			}
			defer a.Close()

			captcha, err := a.client.GenerateCaptcha(ctx)
			if err != nil {
				return err
			}
			if err := writeDataURI(out, captcha.Data); err != nil {
				return err
			}
			success("Captcha saved to %s", out)
			info("Pass --captcha-id %s --captcha-code <answer> to adminctl login", captcha.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "captcha.png", "Where to write the challenge image")
	return cmd
}
