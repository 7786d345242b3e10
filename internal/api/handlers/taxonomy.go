package handlers

import (
	"fmt"
	"net/http"

	"github.com/lifesciencesignals/radar/internal/contracts"
	"github.com/lifesciencesignals/radar/pkg/redis"
)

// TaxonomyGroup is a signal group with per-type markers
type TaxonomyGroup struct {
	Label string         `json:"label"`
	Items []TaxonomyItem `json:"items"`
}

// TaxonomyItem is one selectable signal type
type TaxonomyItem struct {
	Type          string `json:"type"`
	HighIntent    bool   `json:"high_intent"`
	AlertEligible bool   `json:"alert_eligible"`
}

// GetTaxonomy returns the signal taxonomy and country options
// GET /api/taxonomy
func GetTaxonomy(w http.ResponseWriter, r *http.Request) {
	groups := make([]TaxonomyGroup, 0, len(contracts.SignalGroups))
	for _, g := range contracts.SignalGroups {
		items := make([]TaxonomyItem, 0, len(g.Items))
		for _, t := range g.Items {
			items = append(items, TaxonomyItem{
				Type:          t,
				HighIntent:    contracts.HighIntent[t],
				AlertEligible: contracts.AlertEligible[t],
			})
		}
		groups = append(groups, TaxonomyGroup{Label: g.Label, Items: items})
	}

	w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", int(redis.TTLTaxonomy.Seconds())))
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"groups":    groups,
		"countries": contracts.CountryOptions,
	})
}
