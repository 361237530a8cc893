package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/travio/travio-client/pkg/travio"
	"github.com/travio/travio-client/pkg/travioclient"
)

// NewOrgCommand creates the org command group.
func NewOrgCommand(rt *Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "org",
		Aliases: []string{"organization"},
		Short:   "Manage the current organization",
	}

	cmd.AddCommand(newOrgShowCommand(rt))
	cmd.AddCommand(newOrgUpdateCommand(rt))

	return cmd
}

func newOrgShowCommand(rt *Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the organization of the logged-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.withApp(cmd, func(ctx context.Context, app *travioclient.App) error {
				org, err := app.Client().Organizations().Me(ctx)
				if err != nil {
					return fmt.Errorf("failed to get organization: %w", err)
				}

				return rt.render(cmd, org, func(w io.Writer) error {
					return renderOrganization(w, org)
				})
			})
		},
	}
}

func newOrgUpdateCommand(rt *Runtime) *cobra.Command {
	var request travio.OrganizationUpdateRequest

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update the organization profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.withApp(cmd, func(ctx context.Context, app *travioclient.App) error {
				org, err := app.Client().Organizations().UpdateMe(ctx, &request)
				if err != nil {
					return fmt.Errorf("failed to update organization: %w", err)
				}

				success(cmd, "Organization %s updated", org.Name)

				return nil
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&request.Name, "name", "", "organization name")
	flags.StringVar(&request.Email, "email", "", "contact email")
	flags.StringVar(&request.Phone, "phone", "", "phone")
	flags.StringVar(&request.Address, "address", "", "address")
	flags.StringVar(&request.Website, "website", "", "website")
	flags.StringVar(&request.Currency, "currency", "", "billing currency")

	return cmd
}

func renderOrganization(w io.Writer, org *travio.Organization) error {
	rows := [][2]string{
		{"ID", org.ID},
		{"Name", org.Name},
		{"Status", org.Status},
		{"Plan", org.PlanID},
		{"Email", org.Email},
		{"Phone", org.Phone},
		{"Address", org.Address},
		{"Website", org.Website},
		{"Currency", org.Currency},
	}

	if !org.CreatedAt.IsZero() {
		rows = append(rows, [2]string{"Created", org.CreatedAt.Format("2006-01-02 15:04:05")})
	}

	return propertyTable(w, rows)
}
