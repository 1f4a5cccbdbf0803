package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/spf13/cobra"

	fiberadapter "github.com/lborres/webpro/adapters/fiber"
	pgxadapter "github.com/lborres/webpro/adapters/pgx"
	"github.com/lborres/webpro/core"
	"github.com/lborres/webpro/internal/config"
	"github.com/lborres/webpro/pkg/crypto"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the connection API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := loadEnv(ctx)
			if err != nil {
				return err
			}
			defer e.close()

			if len(e.cfg.Admins) == 0 {
				return errors.New("at least one entry in admins is required to serve")
			}

			app := fiber.New(fiber.Config{AppName: "webpro"})
			app.Use(logger.New(logger.Config{
				Format:     accessLogFormat(),
				TimeFormat: "2006/01/02 15:04:05",
				TimeZone:   "Local",
			}))

			if _, err := e.newWebPro(fiberadapter.New(app, staticActors(e.cfg.Admins))); err != nil {
				return err
			}

			errCh := make(chan error, 1)
			go func() {
				errCh <- app.Listen(e.cfg.Server.Addr, fiber.ListenConfig{DisableStartupMessage: true})
			}()

			cyan := color.New(color.FgCyan)
			cyan.Printf("webpro listening on %s%s\n", e.cfg.Server.Addr, e.cfg.Server.BasePath)
			e.logger.Info("serving", "addr", e.cfg.Server.Addr, "base_path", e.cfg.Server.BasePath, "admins", len(e.cfg.Admins))

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			e.logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return app.ShutdownWithContext(shutdownCtx)
		},
	}
}

// accessLogFormat leaves out headers and bodies, which carry keys and tokens
func accessLogFormat() string {
	format := []string{
		"${time}",
		"${status}|${latency}",
		"${ip}",
		"${method}|${path}",
		"${error}",
	}
	return strings.Join(format, "|") + "\n"
}

func staticActors(admins []config.AdminConfig) fiberadapter.StaticActors {
	actors := make(fiberadapter.StaticActors, 0, len(admins))
	for _, admin := range admins {
		actors = append(actors, fiberadapter.StaticActor{
			Actor:     core.Actor{Login: admin.Login, CanManageUsers: admin.ManagesUsers()},
			TokenHash: strings.ToLower(admin.TokenHash),
		})
	}
	return actors
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the PostgreSQL tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := loadEnv(ctx)
			if err != nil {
				return err
			}
			defer e.close()

			adapter, ok := e.dir.(*pgxadapter.Adapter)
			if !ok {
				return errors.New("database.url is required to migrate")
			}
			if err := adapter.Migrate(); err != nil {
				return err
			}

			color.Green("schema is up to date")
			return nil
		},
	}
}

func newDisconnectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disconnect <account-id>",
		Short: "Disconnect a web pro and notify the platform",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := loadEnv(ctx)
			if err != nil {
				return err
			}
			defer e.close()

			wp, err := e.newWebPro(nil)
			if err != nil {
				return err
			}

			ctx = core.WithActor(ctx, operator())
			if err := wp.Disconnect(ctx, args[0]); err != nil {
				return err
			}

			color.Green("disconnected %s", args[0])
			return nil
		},
	}
}

func newCheckKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check-key <key>",
		Short: "Show who a platform key belongs to without connecting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := loadEnv(ctx)
			if err != nil {
				return err
			}
			defer e.close()

			wp, err := e.newWebPro(nil)
			if err != nil {
				return err
			}

			check, err := wp.CheckKey(ctx, args[0])
			if err != nil {
				return err
			}

			printKeyCheck(check)
			return nil
		},
	}
}

func printKeyCheck(check *core.KeyCheck) {
	gray := color.New(color.FgHiBlack)

	switch check.Status {
	case core.KeyCheckSuccess:
		color.Green("key is valid")
	case core.KeyCheckConnected:
		color.Yellow("key belongs to a web pro who is already connected")
	default:
		color.Red("key was rejected")
		return
	}

	gray.Print("  name:     ")
	fmt.Println(check.Name)
	gray.Print("  email:    ")
	fmt.Println(check.Email)
	gray.Print("  location: ")
	fmt.Println(check.Location)
}

func newAdminTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin-token <login>",
		Short: "Mint a bearer token for an admins entry",
		Long: `Prints a new random bearer token and the admins entry that accepts it.
Only the hash belongs in the config file; hand the token to the operator.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			length, _ := cmd.Flags().GetInt("bytes")

			admin, err := crypto.NewAdminToken(length)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s\n\n", color.HiBlackString("token:"), admin.Token)
			fmt.Fprintln(out, color.HiBlackString("admins:"))
			fmt.Fprintf(out, "  - login: %q\n    token_hash: %q\n", args[0], admin.Hash)
			return nil
		},
	}
	cmd.Flags().Int("bytes", crypto.DefaultTokenLength, "random bytes in the token")
	return cmd
}
