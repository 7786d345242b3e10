package contracts

// SignalGroup is a labelled set of signal types shown together in the UI
type SignalGroup struct {
	Label string   `json:"label"`
	Items []string `json:"items"`
}

// TypeOther is assigned by ingestion when no rule matches. It is not selectable.
const TypeOther = "OTHER"

// SignalGroups is the fixed signal taxonomy
var SignalGroups = []SignalGroup{
	{
		Label: "Validation & Quality",
		Items: []string{
			"CSV_HIRING",
			"ANNEX11_HIRING",
			"DATA_INTEGRITY_HIRING",
			"QA_SYSTEMS_HIRING",
			"AUDIT_READINESS",
			"GXP_COMPLIANCE",
			"ELECTRONIC_RECORDS",
			"ELECTRONIC_SIGNATURES",
			"QUALITY_COMPLIANCE",
			"QUALITY_ENGINEERING",
			"QUALITY_ASSURANCE",
		},
	},
	{
		Label: "Manufacturing & Operations",
		Items: []string{
			"MANUFACTURING_MANAGEMENT",
			"MANUFACTURING_ENGINEERING",
			"PROCESS_ENGINEERING",
			"PRODUCTION_ENGINEERING",
			"OPERATIONS_MANAGEMENT",
			"TECHNICAL_OPERATIONS",
			"CONTINUOUS_IMPROVEMENT",
			"LEAN_MANUFACTURING",
			"OPERATIONAL_EXCELLENCE",
		},
	},
	{
		Label: "Automation & Digital",
		Items: []string{
			"INDUSTRIAL_AUTOMATION",
			"PLC_SCADA",
			"DCS_AUTOMATION",
			"ROBOTICS_AUTOMATION",
			"INDUSTRY_4_0",
			"SMART_FACTORY",
			"DIGITAL_MANUFACTURING",
		},
	},
	{
		Label: "MES / LIMS / MOM",
		Items: []string{
			"MES_LIMS_HIRING",
			"MES_IMPLEMENTATION",
			"LIMS_ADMIN",
			"MOM_SYSTEMS",
			"SHOP_FLOOR_SYSTEMS",
			"BATCH_RECORDS",
			"ELECTRONIC_BATCH_RECORDS",
		},
	},
	{
		Label: "Traceability & Supply Chain",
		Items: []string{
			"SERIALIZATION_HIRING",
			"TRACK_AND_TRACE",
			"TRACEABILITY_PROGRAM",
			"SUPPLY_CHAIN_VISIBILITY",
			"WAREHOUSE_SYSTEMS",
			"WMS_TMS",
			"LOGISTICS_TECH",
			"ANTI_COUNTERFEITING",
		},
	},
	{
		Label: "IT & Architecture",
		Items: []string{
			"IT_OT_CONVERGENCE",
			"SYSTEMS_INTEGRATION",
			"ENTERPRISE_ARCHITECTURE",
			"SAP_MANUFACTURING",
			"ERP_INTEGRATION",
			"DATA_ARCHITECTURE",
			"MASTER_DATA_MANAGEMENT",
		},
	},
	{
		Label: "CapEx & Facilities",
		Items: []string{
			"CAPITAL_PROJECTS",
			"FACILITY_EXPANSION",
			"NEW_SITE_STARTUP",
			"GREENFIELD_SITE",
			"BROWNFIELD_UPGRADE",
			"ENGINEERING_PROJECTS",
			"TECH_TRANSFER",
		},
	},
	{
		Label: "Sustainability",
		Items: []string{
			"SUSTAINABILITY_SYSTEMS",
			"CARBON_TRACKING",
			"CSRD_READINESS",
			"EUDR_COMPLIANCE",
			"DIGITAL_PRODUCT_PASSPORT",
			"RESPONSIBLE_SOURCING",
		},
	},
}

// HighIntent marks types that usually precede a purchase
var HighIntent = setOf(
	"CSV_HIRING",
	"ANNEX11_HIRING",
	"DATA_INTEGRITY_HIRING",
	"QA_SYSTEMS_HIRING",
	"MES_LIMS_HIRING",
	"MES_IMPLEMENTATION",
	"ELECTRONIC_BATCH_RECORDS",
	"SERIALIZATION_HIRING",
	"TRACK_AND_TRACE",
	"FACILITY_EXPANSION",
	"NEW_SITE_STARTUP",
	"CAPITAL_PROJECTS",
	"PLC_SCADA",
	"INDUSTRIAL_AUTOMATION",
	"IT_OT_CONVERGENCE",
	"SYSTEMS_INTEGRATION",
)

// AlertEligible marks types worth an email alert
var AlertEligible = setOf(
	"CSV_HIRING",
	"ANNEX11_HIRING",
	"DATA_INTEGRITY_HIRING",
	"QA_SYSTEMS_HIRING",
	"AUDIT_READINESS",
	"GXP_COMPLIANCE",
	"ELECTRONIC_RECORDS",
	"ELECTRONIC_SIGNATURES",
	"MANUFACTURING_MANAGEMENT",
	"INDUSTRIAL_AUTOMATION",
	"PLC_SCADA",
	"DCS_AUTOMATION",
	"MES_LIMS_HIRING",
	"MES_IMPLEMENTATION",
	"ELECTRONIC_BATCH_RECORDS",
	"SERIALIZATION_HIRING",
	"TRACK_AND_TRACE",
	"TRACEABILITY_PROGRAM",
	"SUPPLY_CHAIN_VISIBILITY",
	"IT_OT_CONVERGENCE",
	"SYSTEMS_INTEGRATION",
	"CAPITAL_PROJECTS",
	"FACILITY_EXPANSION",
	"NEW_SITE_STARTUP",
	"TECH_TRANSFER",
	"CARBON_TRACKING",
	"CSRD_READINESS",
	"DIGITAL_PRODUCT_PASSPORT",
)

// CountryOptions are the country codes offered when building a filter
var CountryOptions = []string{"IE", "UK", "DE", "FR", "NL", "BE", "ES", "IT", "CH", "SE", "DK", "PL", "AT"}

var knownTypes = func() map[string]struct{} {
	m := make(map[string]struct{})
	for _, g := range SignalGroups {
		for _, t := range g.Items {
			m[t] = struct{}{}
		}
	}
	return m
}()

// AllSignalTypes returns every selectable type in taxonomy order
func AllSignalTypes() []string {
	out := make([]string, 0, len(knownTypes))
	for _, g := range SignalGroups {
		out = append(out, g.Items...)
	}
	return out
}

// IsKnownSignalType reports whether t is a selectable taxonomy type
func IsKnownSignalType(t string) bool {
	_, ok := knownTypes[t]
	return ok
}

// CoversTaxonomy reports whether types selects every taxonomy type
func CoversTaxonomy(types []string) bool {
	seen := make(map[string]struct{}, len(types))
	for _, t := range types {
		if IsKnownSignalType(t) {
			seen[t] = struct{}{}
		}
	}
	return len(seen) == len(knownTypes)
}

func setOf(items ...string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, it := range items {
		m[it] = true
	}
	return m
}
