package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	authclient "github.com/ortelius/pdvd-auth/client/auth"
	"github.com/ortelius/pdvd-auth/client/health"
	"github.com/ortelius/pdvd-auth/config"
	"github.com/ortelius/pdvd-auth/internal/api"
	"github.com/ortelius/pdvd-auth/restapi"
	"github.com/ortelius/pdvd-auth/restapi/modules/auth"
	"github.com/ortelius/pdvd-auth/session"
	"github.com/ortelius/pdvd-auth/util"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// cli holds what every subcommand needs once flags and config are resolved
type cli struct {
	out io.Writer
	in  io.Reader

	configFile string
	baseURL    string
	timeout    time.Duration
	logLevel   string

	cfg    *config.Config
	logger *zap.Logger
	http   *http.Client
	client *authclient.Client
	store  *session.Store
}

func newRootCmd(out io.Writer, in io.Reader) *cobra.Command {
	c := &cli{out: out, in: in}

	rootCmd := &cobra.Command{
		Use:   "pdvd-auth",
		Short: "Log in to a PDVD backend and manage your account",
		Long: `pdvd-auth talks to the authentication endpoints of a PDVD backend.

It logs in, shows the current user, changes the password and logs out.
The session token is kept in a local file between invocations.`,
		SilenceUsage:      true,
		PersistentPreRunE: c.setup,
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if c.logger != nil {
				_ = c.logger.Sync()
			}
		},
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(out)
	rootCmd.SetIn(in)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&c.configFile, "config", "", "config file (default "+config.DefaultConfigPath+")")
	flags.StringVar(&c.baseURL, "base-url", "", "API base URL (overrides config, e.g. "+config.DefaultBaseURL+")")
	flags.DurationVar(&c.timeout, "timeout", 0, "per-request timeout (overrides config)")
	flags.StringVar(&c.logLevel, "log-level", "", "log level: debug, info, warn, error")

	rootCmd.AddCommand(
		c.loginCmd(),
		c.whoamiCmd(),
		c.passwdCmd(),
		c.logoutCmd(),
		c.waitCmd(),
		c.serveCmd(),
	)
	return rootCmd
}

// setup resolves configuration, then builds the logger, HTTP client and session store
func (c *cli) setup(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(c.configFile)
	if err != nil {
		return err
	}
	if c.baseURL != "" {
		cfg.BaseURL = c.baseURL
	}
	if c.timeout > 0 {
		cfg.Timeout = c.timeout
	}
	if c.logLevel != "" {
		cfg.LogLevel = c.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	c.cfg = cfg
	c.logger = util.InitLogger(util.LogConfig{Level: cfg.LogLevel, File: cfg.LogFile})
	c.http = &http.Client{Timeout: cfg.Timeout}
	c.client = authclient.New(cfg.BaseURL,
		authclient.WithHTTPClient(c.http),
		authclient.WithLogger(c.logger),
	)
	c.store = session.NewStore(cfg.SessionFile)
	return nil
}

// currentSession loads the stored session or explains how to get one
func (c *cli) currentSession() (string, error) {
	sess, err := c.store.Load()
	if errors.Is(err, session.ErrNoSession) {
		return "", fmt.Errorf("not logged in; run 'pdvd-auth login' first")
	}
	if err != nil {
		return "", err
	}
	return sess.AccessToken, nil
}

func (c *cli) loginCmd() *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session token",
		Long: `Log in with a username and password.

The password is taken from --password, then the PDVD_PASSWORD environment
variable, then one line of standard input.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if password == "" {
				password = os.Getenv("PDVD_PASSWORD")
			}
			if password == "" {
				var err error
				if password, err = readLine(c.in); err != nil {
					return fmt.Errorf("failed to read password: %w", err)
				}
			}

			sess, err := c.client.Login(cmd.Context(), username, password)
			if err != nil {
				return err
			}
			if err := c.store.Save(sess); err != nil {
				return err
			}

			c.logger.Sugar().Debugf("Session for %s saved to %s", sess.Username, c.store.Path())
			fmt.Fprintf(c.out, "Logged in as %s\n", util.GetStringOrDefault(sess.Username, username))
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (prefer PDVD_PASSWORD or stdin)")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func (c *cli) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			token, err := c.currentSession()
			if err != nil {
				return err
			}

			user, err := c.client.FetchSelf(cmd.Context(), token)
			if err != nil {
				if authclient.IsUnauthorized(err) {
					return fmt.Errorf("session expired or revoked; run 'pdvd-auth login' again: %w", err)
				}
				return err
			}

			orgs := "(all)"
			if len(user.Orgs) > 0 {
				orgs = strings.Join(user.Orgs, ", ")
			}
			fmt.Fprintf(c.out, "Username:    %s\n", user.Username)
			fmt.Fprintf(c.out, "Email:       %s\n", user.Email)
			fmt.Fprintf(c.out, "Role:        %s\n", user.Role)
			fmt.Fprintf(c.out, "Permissions: %s\n", strings.Join(user.Permissions(), ", "))
			fmt.Fprintf(c.out, "Orgs:        %s\n", orgs)
			fmt.Fprintf(c.out, "GitHub:      %t\n", user.GitHubConnected)
			return nil
		},
	}
}

func (c *cli) passwdCmd() *cobra.Command {
	var current, newPassword, confirm string

	cmd := &cobra.Command{
		Use:   "passwd",
		Short: "Change the password of the logged in user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			token, err := c.currentSession()
			if err != nil {
				return err
			}

			if err := c.client.ChangePassword(cmd.Context(), token, current, newPassword, confirm); err != nil {
				return err
			}
			fmt.Fprintln(c.out, "Password changed")
			return nil
		},
	}
	cmd.Flags().StringVar(&current, "current", "", "current password")
	cmd.Flags().StringVar(&newPassword, "new", "", "new password")
	cmd.Flags().StringVar(&confirm, "confirm", "", "new password again")
	_ = cmd.MarkFlagRequired("current")
	_ = cmd.MarkFlagRequired("new")
	_ = cmd.MarkFlagRequired("confirm")
	return cmd
}

func (c *cli) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out and remove the stored session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := c.store.Load()
			if errors.Is(err, session.ErrNoSession) {
				fmt.Fprintln(c.out, "Not logged in")
				return nil
			}
			if err == nil {
				if err := c.client.Logout(cmd.Context(), sess.AccessToken); err != nil {
					c.logger.Warn("server logout failed; removing local session anyway", zap.Error(err))
				}
			}

			if err := c.store.Clear(); err != nil {
				return err
			}
			fmt.Fprintln(c.out, "Logged out")
			return nil
		},
	}
}

func (c *cli) waitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "wait",
		Short: "Wait until the backend reports healthy",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := health.Wait(cmd.Context(), c.http, c.cfg.BaseURL, c.cfg.WaitTimeout, c.logger); err != nil {
				return err
			}
			fmt.Fprintln(c.out, "Backend is healthy")
			return nil
		},
	}
}

func (c *cli) serveCmd() *cobra.Command {
	var addr string
	var users []string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the in-memory reference auth server",
		Long: `Run a local server implementing the auth endpoints under ` + restapi.APIPrefix + `.

Users are seeded with --user name:password[:role] and live only in memory.
The token signing secret is read from PDVD_JWT_SECRET.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			specs := make([]auth.UserSpec, 0, len(users))
			for _, u := range users {
				spec, err := auth.ParseUserSpec(u)
				if err != nil {
					return err
				}
				specs = append(specs, spec)
			}

			if secret := os.Getenv("PDVD_JWT_SECRET"); secret != "" {
				auth.SetJWTSecret(secret)
			} else {
				c.logger.Warn("PDVD_JWT_SECRET not set; using the built-in development secret")
			}

			db := auth.NewUserStore()
			if err := auth.BootstrapUsers(db, specs); err != nil {
				return err
			}

			app := api.NewFiberApp(db, c.out, c.logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				c.logger.Sugar().Infof("Reference server listening on %s with %d users", addr, len(specs))
				errCh <- app.Listen(addr)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
				c.logger.Info("Shutting down reference server")
				return app.Shutdown()
			}
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().StringArrayVar(&users, "user", nil, "seed user as name:password[:role] (repeatable)")
	return cmd
}

// readLine reads a single line, without its line ending
func readLine(in io.Reader) (string, error) {
	if in == nil {
		return "", io.EOF
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

