package filters

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/lifesciencesignals/radar/internal/contracts"
	"github.com/lifesciencesignals/radar/pkg/logger"
)

// Input is a filter as submitted by a user
type Input struct {
	Name        string            `json:"name"`
	Countries   []string          `json:"countries"`
	SignalTypes []string          `json:"signal_types"`
	MinScore    int               `json:"min_score"`
	Cadence     contracts.Cadence `json:"digest_frequency"`
	EmailAlerts bool              `json:"email_alerts"`
}

// Service validates and stores filters
type Service struct {
	repo   contracts.FilterRepository
	logger *logger.Logger
}

// NewService creates a filter service
func NewService(repo contracts.FilterRepository, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{repo: repo, logger: log}
}

// Normalize validates in and turns it into a filter for orgID.
// Country codes are upper-cased and de-duplicated; selecting the whole
// taxonomy is stored as "any" (nil).
func Normalize(orgID string, in Input) (*contracts.Filter, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", contracts.ErrInvalidFilter)
	}
	if in.MinScore < 0 {
		return nil, fmt.Errorf("%w: min_score must be >= 0", contracts.ErrInvalidFilter)
	}

	cadence := in.Cadence
	if cadence == "" {
		cadence = contracts.CadenceDaily
	}
	if !cadence.Valid() {
		return nil, fmt.Errorf("%w: unknown digest_frequency %q", contracts.ErrInvalidFilter, in.Cadence)
	}

	countries := make([]string, 0, len(in.Countries))
	seen := make(map[string]bool, len(in.Countries))
	for _, c := range in.Countries {
		c = strings.ToUpper(strings.TrimSpace(c))
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		countries = append(countries, c)
	}

	var types []string
	if len(in.SignalTypes) > 0 {
		for _, t := range in.SignalTypes {
			if !contracts.IsKnownSignalType(t) {
				return nil, fmt.Errorf("%w: unknown signal type %q", contracts.ErrInvalidFilter, t)
			}
		}
		if !contracts.CoversTaxonomy(in.SignalTypes) {
			types = dedupe(in.SignalTypes)
		}
	}

	return &contracts.Filter{
		OrgID:       orgID,
		Name:        name,
		Countries:   countries,
		SignalTypes: types,
		MinScore:    in.MinScore,
		Cadence:     cadence,
		EmailAlerts: in.EmailAlerts,
	}, nil
}

func dedupe(items []string) []string {
	set := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		if _, ok := set[it]; ok {
			continue
		}
		set[it] = struct{}{}
		out = append(out, it)
	}
	sort.Strings(out)
	return out
}

// Create validates in and stores it as the org's active filter
func (s *Service) Create(ctx context.Context, orgID string, in Input) (*contracts.Filter, error) {
	f, err := Normalize(orgID, in)
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateFilter(ctx, f); err != nil {
		return nil, err
	}

	s.logger.WithOrg(orgID).WithFields(map[string]interface{}{
		"filter_id": f.ID,
		"countries": len(f.Countries),
		"types":     len(f.SignalTypes),
		"min_score": f.MinScore,
	}).Info("Filter created")

	return f, nil
}

// List returns the org's filters, newest first
func (s *Service) List(ctx context.Context, orgID string) ([]contracts.Filter, error) {
	return s.repo.ListFilters(ctx, orgID)
}

// Active returns the filter the radar and digest use, or nil
func (s *Service) Active(ctx context.Context, orgID string) (*contracts.Filter, error) {
	return s.repo.ActiveFilter(ctx, orgID)
}

// Delete removes a filter owned by orgID
func (s *Service) Delete(ctx context.Context, orgID, filterID string) error {
	if err := s.repo.DeleteFilter(ctx, orgID, filterID); err != nil {
		return err
	}
	s.logger.WithOrg(orgID).WithField("filter_id", filterID).Info("Filter deleted")
	return nil
}

// Activate makes filterID the org's active filter
func (s *Service) Activate(ctx context.Context, orgID, filterID string) error {
	return s.repo.ActivateFilter(ctx, orgID, filterID)
}
