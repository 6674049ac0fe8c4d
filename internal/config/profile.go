package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/andresuchdata/stockplanner/internal/domain"
	"github.com/pelletier/go-toml/v2"
)

// Profile is a TOML file that overrides planning parameters for one run.
// Absent keys leave the base configuration alone.
//
//	working_days = 24
//	batch_round_to = 500
//	cust_alert_exclude_add = ["1002010"]
//
//	[target_months]
//	VERY_HIGH = 2
//
//	[product_thresholds]
//	red_lt = 5
//	orange_lt = 15
//	yellow_lt = 45
type Profile struct {
	WorkingDays       *int               `toml:"working_days"`
	BatchRoundTo      *int64             `toml:"batch_round_to"`
	DedupMachines     *bool              `toml:"dedup_machines"`
	PlanStartDate     string             `toml:"plan_start_date"`
	TargetMonths      map[string]float64 `toml:"target_months"`
	SafetyDays        map[string]float64 `toml:"safety_days"`
	MinBatchMonths    map[string]float64 `toml:"min_batch_months"`
	ProductThresholds *domain.Thresholds `toml:"product_thresholds"`
	CustThresholds    *domain.Thresholds `toml:"cust_thresholds"`

	// CustAlertExclude replaces the exclusion list, CustAlertExcludeAdd extends it.
	CustAlertExclude    []string `toml:"cust_alert_exclude"`
	CustAlertExcludeAdd []string `toml:"cust_alert_exclude_add"`
}

// ParseProfile decodes a TOML profile, rejecting unknown keys.
func ParseProfile(data []byte) (*Profile, error) {
	var p Profile
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("invalid plan profile: %w", err)
	}
	return &p, nil
}

// LoadProfile reads and decodes a profile file.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile %s: %w", path, err)
	}
	return ParseProfile(data)
}

// Apply returns a copy of base with the profile's overrides. base is not
// modified.
func (p *Profile) Apply(base domain.PlanConfig) (domain.PlanConfig, error) {
	cfg := base.Clone()
	if p == nil {
		return cfg, nil
	}

	if p.WorkingDays != nil {
		cfg.WorkingDays = *p.WorkingDays
	}
	if p.BatchRoundTo != nil {
		cfg.BatchRoundTo = *p.BatchRoundTo
	}
	if p.DedupMachines != nil {
		cfg.DedupMachines = *p.DedupMachines
	}
	if p.PlanStartDate != "" {
		d, err := domain.ParseDate(p.PlanStartDate)
		if err != nil {
			return base, fmt.Errorf("plan_start_date: %w", err)
		}
		cfg.PlanStartDate = d
	}

	for name, m := range map[string]struct {
		src map[string]float64
		dst domain.ClassValues
	}{
		"target_months":    {p.TargetMonths, cfg.TargetMonths},
		"safety_days":      {p.SafetyDays, cfg.SafetyDays},
		"min_batch_months": {p.MinBatchMonths, cfg.MinBatchMonths},
	} {
		for k, v := range m.src {
			class, ok := domain.ParseDemandClass(strings.ToUpper(strings.TrimSpace(k)))
			if !ok {
				return base, fmt.Errorf("%s: unknown demand class %q", name, k)
			}
			m.dst[class] = v
		}
	}

	if p.ProductThresholds != nil {
		cfg.ProductThresholds = *p.ProductThresholds
	}
	if p.CustThresholds != nil {
		cfg.CustThresholds = *p.CustThresholds
	}

	if p.CustAlertExclude != nil {
		cfg.CustAlertExclude = domain.NewKeySet(p.CustAlertExclude...)
	}
	for k := range domain.NewKeySet(p.CustAlertExcludeAdd...) {
		cfg.CustAlertExclude[k] = struct{}{}
	}

	if err := cfg.Validate(); err != nil {
		return base, err
	}
	return cfg, nil
}
