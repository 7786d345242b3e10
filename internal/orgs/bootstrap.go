package orgs

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lifesciencesignals/radar/internal/contracts"
	"github.com/lifesciencesignals/radar/pkg/logger"
)

// ErrInvalidUser is returned when the bootstrap request has no user id
var ErrInvalidUser = errors.New("user id is required")

// Result is the outcome of a bootstrap
type Result struct {
	Org     *contracts.Org `json:"org"`
	Created bool           `json:"created"`
}

// Bootstrapper gives a signed-in user an organization on first visit
type Bootstrapper struct {
	repo   contracts.MembershipRepository
	logger *logger.Logger
}

// NewBootstrapper creates a bootstrapper
func NewBootstrapper(repo contracts.MembershipRepository, log *logger.Logger) *Bootstrapper {
	if log == nil {
		log = logger.Nop()
	}
	return &Bootstrapper{repo: repo, logger: log}
}

// Bootstrap stores the user's profile, then returns their existing org or
// creates one named after their email domain with the user as owner
func (b *Bootstrapper) Bootstrap(ctx context.Context, userID, email string) (*Result, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrInvalidUser
	}
	email = strings.TrimSpace(email)

	if email != "" {
		if err := b.repo.UpsertProfile(ctx, contracts.Profile{ID: userID, Email: email}); err != nil {
			return nil, err
		}
	}

	org, err := b.repo.OrgForUser(ctx, userID)
	if err == nil {
		return &Result{Org: org}, nil
	}
	if !errors.Is(err, contracts.ErrNotFound) {
		return nil, fmt.Errorf("failed to load membership: %w", err)
	}

	org, err = b.repo.CreateOrgWithOwner(ctx, OrgName(email), userID)
	if err != nil {
		return nil, err
	}

	b.logger.WithFields(map[string]interface{}{
		"org_id":  org.ID,
		"user_id": userID,
		"name":    org.Name,
	}).Info("Organization created")

	return &Result{Org: org, Created: true}, nil
}

// OrgName derives a default org name from the domain part of email
func OrgName(email string) string {
	_, domain, ok := strings.Cut(email, "@")
	domain = strings.TrimSpace(domain)
	if !ok || domain == "" {
		return contracts.DefaultOrgName
	}
	return strings.ToLower(domain)
}
