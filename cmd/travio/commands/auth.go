package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/travio/travio-client/internal/constants"
	"github.com/travio/travio-client/pkg/session"
	"github.com/travio/travio-client/pkg/travio"
	"github.com/travio/travio-client/pkg/travioclient"
)

// NewLoginCommand creates the login command.
func NewLoginCommand(rt *Runtime) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to the Travio gateway",
		Long:  "Authenticate with email and password. Credentials are kept in the local cache for later commands.",
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error

			if email == "" {
				email, err = rt.prompt(cmd, "Email", false)
				if err != nil {
					return err
				}
			}

			if password == "" {
				password, err = rt.prompt(cmd, "Password", true)
				if err != nil {
					return err
				}
			}

			return rt.withApp(cmd, func(ctx context.Context, app *travioclient.App) error {
				if !app.Session.Login(ctx, email, password) {
					return fmt.Errorf("%w: %s", constants.ErrLoginFailed, app.Session.Error())
				}

				identity := app.Session.Session()
				success(cmd, "Logged in to %s as %s", app.BaseURL(), identity.UserID)

				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password (prompted when omitted)")

	return cmd
}

// NewLogoutCommand creates the logout command.
func NewLogoutCommand(rt *Runtime) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Log out of the Travio gateway",
		Long:  "Revoke the current session on the server and forget the local credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.withApp(cmd, func(ctx context.Context, app *travioclient.App) error {
				if !app.Session.IsAuthenticated() {
					notice(cmd, "Not logged in")

					return nil
				}

				if all {
					err := app.Session.LogoutAll(ctx)
					if err != nil {
						return err
					}

					success(cmd, "Logged out of all sessions")

					return nil
				}

				app.Session.Logout(ctx)
				success(cmd, "Logged out")

				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "revoke every session of the user")

	return cmd
}

// NewWhoamiCommand creates the whoami command.
func NewWhoamiCommand(rt *Runtime) *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.withApp(cmd, func(ctx context.Context, app *travioclient.App) error {
				// a probe through the session transport renews a stale token
				stale := app.TokenExpiresWithin(constants.TokenExpirationBuffer)

				if (refresh || stale) && app.Session.IsAuthenticated() && !app.Session.FetchUser(ctx) {
					return fmt.Errorf("failed to fetch user: %s", app.Session.Error())
				}

				identity := app.Session.Session()
				if identity == nil {
					return constants.ErrNotLoggedIn
				}

				var expires string
				if expiry := app.TokenExpiry(); !expiry.IsZero() {
					expires = expiry.Local().Format(time.RFC3339)
				}

				return rt.render(cmd, identity, func(w io.Writer) error {
					return propertyTable(w, [][2]string{
						{"API", app.BaseURL()},
						{"User", identity.UserID},
						{"Organization", identity.OrganizationID},
						{"Role", identity.Role},
						{"Token expires", expires},
					})
				})
			})
		},
	}

	cmd.Flags().BoolVar(&refresh, "refresh", false, "re-read the identity from the server")

	return cmd
}

// NewSessionsCommand creates the sessions command.
func NewSessionsCommand(rt *Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List active sessions of the logged-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.withApp(cmd, func(ctx context.Context, app *travioclient.App) error {
				sessions, err := app.Session.Sessions(ctx)
				if err != nil {
					if travio.IsUnauthorized(err) || errors.Is(err, travio.ErrNotAuthenticated) {
						return constants.ErrNotLoggedIn
					}

					return err
				}

				return rt.render(cmd, sessions, func(w io.Writer) error {
					return renderSessions(w, sessions)
				})
			})
		},
	}
}

func renderSessions(w io.Writer, sessions []travio.ActiveSession) error {
	if len(sessions) == 0 {
		_, _ = io.WriteString(w, "No active sessions\n")

		return nil
	}

	table := tablewriter.NewWriter(w)
	table.Header("ID", "Device", "IP", "Created", "Expires")

	for _, s := range sessions {
		_ = table.Append(s.ID, s.DeviceInfo, s.IPAddress,
			s.CreatedAt.Format("2006-01-02 15:04"),
			s.ExpiresAt.Format("2006-01-02 15:04"))
	}

	return table.Render()
}

// NewRegisterCommand creates the register command.
func NewRegisterCommand(rt *Runtime) *cobra.Command {
	var input session.RegisterInput

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a user account",
		Long: `Create a user account. With --org-name a new organization is created first
and the user joins it; with --org-id the user joins an existing organization.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if input.Password == "" {
				password, err := rt.prompt(cmd, "Password", true)
				if err != nil {
					return err
				}

				input.Password = password
			}

			return rt.withApp(cmd, func(ctx context.Context, app *travioclient.App) error {
				if !app.Session.Register(ctx, input) {
					return fmt.Errorf("%w: %s", constants.ErrRegisterFailed, app.Session.Error())
				}

				success(cmd, "Registered %s. Run 'travio login' to sign in.", input.Email)

				return nil
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&input.Email, "email", "e", "", "account email")
	flags.StringVarP(&input.Password, "password", "p", "", "account password (prompted when omitted)")
	flags.StringVar(&input.Name, "name", "", "full name")
	flags.StringVar(&input.OrganizationID, "org-id", "", "join an existing organization")
	flags.StringVar(&input.OrganizationName, "org-name", "", "create a new organization")
	flags.StringVar(&input.PlanID, "plan", "", "plan of the new organization (default \"free\")")
	flags.StringVar(&input.OrganizationDetails.Email, "org-email", "", "contact email of the new organization")
	flags.StringVar(&input.OrganizationDetails.Phone, "org-phone", "", "phone of the new organization")
	flags.StringVar(&input.OrganizationDetails.Address, "org-address", "", "address of the new organization")
	flags.StringVar(&input.OrganizationDetails.Website, "org-website", "", "website of the new organization")
	flags.StringVar(&input.OrganizationDetails.Currency, "currency", "", "billing currency of the new organization")

	return cmd
}
