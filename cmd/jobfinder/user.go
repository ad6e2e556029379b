package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobfinder/internal/subscription"
)

var (
	userEmail    string
	userKeyword  string
	userCode     string
	userPassword string
	userConfirm  string
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Subscriber verification and subscription",
	Long:  "Drives the email verification flow: request-code, verify, set-password, unsubscribe.",
}

var userRequestCodeCmd = &cobra.Command{
	Use:   "request-code",
	Short: "Register an email and keyword and mail a verification code",
	RunE: withSubscription(func(ctx context.Context, svc *subscription.Service) error {
		if err := svc.RequestCode(ctx, userEmail, userKeyword); err != nil {
			return err
		}
		fmt.Printf("verification code sent to %s\n", userEmail)
		return nil
	}),
}

var userVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Confirm an email with the mailed code",
	RunE: withSubscription(func(ctx context.Context, svc *subscription.Service) error {
		if err := svc.VerifyCode(ctx, userEmail, userCode); err != nil {
			return err
		}
		fmt.Printf("%s verified\n", userEmail)
		return nil
	}),
}

var userSetPasswordCmd = &cobra.Command{
	Use:   "set-password",
	Short: "Set the 4-digit PIN used to unsubscribe",
	RunE: withSubscription(func(ctx context.Context, svc *subscription.Service) error {
		if err := svc.SetPassword(ctx, userEmail, userPassword, userConfirm); err != nil {
			return err
		}
		fmt.Println("password set")
		return nil
	}),
}

var userUnsubscribeCmd = &cobra.Command{
	Use:   "unsubscribe",
	Short: "Stop digests for an email",
	RunE: withSubscription(func(ctx context.Context, svc *subscription.Service) error {
		if err := svc.Unsubscribe(ctx, userEmail, userPassword); err != nil {
			return err
		}
		fmt.Printf("%s unsubscribed\n", userEmail)
		return nil
	}),
}

var userShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the verification state of an email",
	RunE: withSubscription(func(ctx context.Context, svc *subscription.Service) error {
		u, state, err := svc.Lookup(ctx, userEmail)
		if err != nil {
			return err
		}
		fmt.Printf("email:    %s\nstate:    %s\n", userEmail, state)
		if u == nil {
			return nil
		}
		fmt.Printf("keyword:  %s\npassword: %t\ncreated:  %s\n",
			u.KeywordValue(), u.Password != nil, u.CreatedAt.Format(time.DateTime))
		if u.AuthExpiresAt != nil {
			fmt.Printf("code expires: %s\n", u.AuthExpiresAt.Format(time.DateTime))
		}
		return nil
	}),
}

func init() {
	userCmd.PersistentFlags().StringVar(&userEmail, "email", "", "subscriber email address")
	_ = userCmd.MarkPersistentFlagRequired("email")

	userRequestCodeCmd.Flags().StringVar(&userKeyword, "keyword", "", "digest keyword")
	_ = userRequestCodeCmd.MarkFlagRequired("keyword")

	userVerifyCmd.Flags().StringVar(&userCode, "code", "", "verification code from the email")
	_ = userVerifyCmd.MarkFlagRequired("code")

	userSetPasswordCmd.Flags().StringVar(&userPassword, "password", "", "4-digit PIN")
	userSetPasswordCmd.Flags().StringVar(&userConfirm, "confirm", "", "PIN confirmation")
	_ = userSetPasswordCmd.MarkFlagRequired("password")
	_ = userSetPasswordCmd.MarkFlagRequired("confirm")

	userUnsubscribeCmd.Flags().StringVar(&userPassword, "password", "", "4-digit PIN")
	_ = userUnsubscribeCmd.MarkFlagRequired("password")

	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(userRequestCodeCmd, userVerifyCmd, userSetPasswordCmd, userUnsubscribeCmd, userShowCmd)
}

// withSubscription builds the store, mailer and locker for a user
// subcommand and runs fn against the resulting service.
func withSubscription(fn func(ctx context.Context, svc *subscription.Service) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		logger := setupLogger(debug)

		cfg, err := loadConfig(cfgPath)
		if err != nil {
			logger.Error("failed to load config", "error", err)
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx, cfg, logger)
		if err != nil {
			logger.Error("failed to open store", "error", err)
			return err
		}
		defer st.Close()

		locker, closeLocker, err := setupLocker(ctx, cfg, logger)
		if err != nil {
			logger.Error("failed to set up locker", "error", err)
			return err
		}
		defer closeLocker()

		svc := newSubscriptionService(cfg, st, setupMailer(cfg, newHTTPClient(cfg), logger), locker, logger)
		return reportUserError(logger, fn(ctx, svc))
	}
}

// reportUserError logs infrastructure failures; verification failures are
// returned as-is for cobra to print.
func reportUserError(logger *slog.Logger, err error) error {
	switch {
	case err == nil:
		return nil
	case subscription.IsReported(err):
		return err
	case errors.Is(err, subscription.ErrDelivery):
		logger.Warn("state saved but the email was not delivered; request a new code", "error", err)
		return err
	default:
		logger.Error("user command failed", "error", err)
		return err
	}
}
