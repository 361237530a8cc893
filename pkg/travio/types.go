package travio

import (
	"time"
)

// ListResponse is the canonical paginated list envelope returned by the gateway.
type ListResponse[T any] struct {
	Items         []T    `json:"items"                     yaml:"items"`
	Total         int    `json:"total"                     yaml:"total"`
	NextPageToken string `json:"next_page_token,omitempty" yaml:"next_page_token,omitempty"`
}

// Station is a boardable location in the catalog.
type Station struct {
	ID        string   `json:"id"                  yaml:"id"`
	Code      string   `json:"code"                yaml:"code"`
	Name      string   `json:"name"                yaml:"name"`
	City      string   `json:"city"                yaml:"city"`
	State     string   `json:"state,omitempty"     yaml:"state,omitempty"`
	Country   string   `json:"country"             yaml:"country"`
	Latitude  float64  `json:"latitude"            yaml:"latitude"`
	Longitude float64  `json:"longitude"           yaml:"longitude"`
	Timezone  string   `json:"timezone"            yaml:"timezone"`
	Amenities []string `json:"amenities,omitempty" yaml:"amenities,omitempty"`
}

// StationList is a page of stations.
type StationList = ListResponse[Station]

// TokenPair is the credential set issued by login and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"  yaml:"access_token"`
	RefreshToken string `json:"refresh_token" yaml:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"    yaml:"expires_in"`
}

// Identity is the authenticated principal. A nil *Identity means no session.
type Identity struct {
	UserID         string `json:"id"              yaml:"id"`
	OrganizationID string `json:"organization_id" yaml:"organization_id"`
	Role           string `json:"role"            yaml:"role"`
}

// ActiveSession is one refresh-token session known to the server.
type ActiveSession struct {
	ID         string    `json:"id"          yaml:"id"`
	DeviceInfo string    `json:"device_info" yaml:"device_info"`
	IPAddress  string    `json:"ip_address"  yaml:"ip_address"`
	CreatedAt  time.Time `json:"created_at"  yaml:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"  yaml:"expires_at"`
}

// LoginRequest is the body of POST /v1/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest is the body of POST /v1/auth/refresh and /v1/auth/logout.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// RegisterRequest is the body of POST /v1/auth/register. The user joins
// OrganizationID, or NewOrganization when the server should create one.
type RegisterRequest struct {
	Email           string             `json:"email"`
	Password        string             `json:"password"`
	Name            string             `json:"name"`
	OrganizationID  string             `json:"organization_id,omitempty"`
	NewOrganization *OrganizationInput `json:"new_organization,omitempty"`
}

// OrganizationInput names an organization together with its details.
type OrganizationInput struct {
	OrgDetails

	Name string `json:"name"`
}

// RegisterResponse is returned by POST /v1/auth/register.
type RegisterResponse struct {
	UserID string `json:"user_id" yaml:"user_id"`
}

// OrgDetails are the optional contact fields of an organization.
type OrgDetails struct {
	Address  string `json:"address,omitempty"  yaml:"address,omitempty"`
	Phone    string `json:"phone,omitempty"    yaml:"phone,omitempty"`
	Email    string `json:"email,omitempty"    yaml:"email,omitempty"`
	Website  string `json:"website,omitempty"  yaml:"website,omitempty"`
	Currency string `json:"currency,omitempty" yaml:"currency,omitempty"`
}

// OrganizationCreateRequest is the body of POST /v1/orgs.
type OrganizationCreateRequest struct {
	OrgDetails

	Name   string `json:"name"`
	PlanID string `json:"plan_id"`
}

// OrganizationCreateResponse is returned by POST /v1/orgs.
type OrganizationCreateResponse struct {
	OrganizationID string `json:"organization_id"    yaml:"organization_id"`
	Status         string `json:"status"             yaml:"status"`
	Currency       string `json:"currency,omitempty" yaml:"currency,omitempty"`
}

// Organization is the profile returned by GET /v1/orgs/me.
type Organization struct {
	OrgDetails `yaml:",inline"`

	ID        string    `json:"id"                   yaml:"id"`
	Name      string    `json:"name"                 yaml:"name"`
	Status    string    `json:"status"               yaml:"status"`
	PlanID    string    `json:"plan_id,omitempty"    yaml:"plan_id,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
}

// OrganizationUpdateRequest is the body of PUT /v1/orgs/me.
type OrganizationUpdateRequest struct {
	OrgDetails

	Name string `json:"name,omitempty"`
}
