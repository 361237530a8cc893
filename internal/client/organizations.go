package client

import (
	"context"
	"fmt"

	"github.com/travio/travio-client/internal/constants"
	"github.com/travio/travio-client/internal/http"
	"github.com/travio/travio-client/pkg/travio"
)

// OrganizationsClient implements travio.OrganizationsClient.
type OrganizationsClient struct {
	public  http.Requester
	session http.Requester
}

// NewOrganizationsClient creates a new organizations client. Creation is an
// onboarding step and goes through the public transport.
func NewOrganizationsClient(public, session http.Requester) *OrganizationsClient {
	return &OrganizationsClient{
		public:  public,
		session: session,
	}
}

// Create implements travio.OrganizationsClient.Create.
func (c *OrganizationsClient) Create(ctx context.Context, request *travio.OrganizationCreateRequest) (*travio.OrganizationCreateResponse, error) {
	body := *request
	if body.PlanID == "" {
		body.PlanID = constants.DefaultPlanID
	}

	resp, err := c.public.Post(ctx, constants.PathOrganizations, &body)
	if err != nil {
		return nil, fmt.Errorf("creating organization: %w", err)
	}

	var created travio.OrganizationCreateResponse

	err = resp.Decode(&created)
	if err != nil {
		return nil, fmt.Errorf("parsing organization response: %w", err)
	}

	return &created, nil
}

// Me implements travio.OrganizationsClient.Me.
func (c *OrganizationsClient) Me(ctx context.Context) (*travio.Organization, error) {
	resp, err := c.session.Get(ctx, constants.PathOrganizationMe, nil)
	if err != nil {
		return nil, fmt.Errorf("getting organization: %w", err)
	}

	var org travio.Organization

	err = resp.Decode(&org)
	if err != nil {
		return nil, fmt.Errorf("parsing organization: %w", err)
	}

	return &org, nil
}

// UpdateMe implements travio.OrganizationsClient.UpdateMe.
func (c *OrganizationsClient) UpdateMe(ctx context.Context, request *travio.OrganizationUpdateRequest) (*travio.Organization, error) {
	resp, err := c.session.Put(ctx, constants.PathOrganizationMe, request)
	if err != nil {
		return nil, fmt.Errorf("updating organization: %w", err)
	}

	var org travio.Organization

	err = resp.Decode(&org)
	if err != nil {
		return nil, fmt.Errorf("parsing organization response: %w", err)
	}

	return &org, nil
}
