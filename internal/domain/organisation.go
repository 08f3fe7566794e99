// Package domain holds the entity types shared across the ingestion and
// experiment pipeline: organisations, API keys, datasets, examples, spans,
// and experiments (spec.md section 3).
package domain

import "time"

// Tier is an organisation's subscription tier.
type Tier string

const (
	TierFree       Tier = "free"
	TierTrial      Tier = "trial"
	TierPro        Tier = "pro"
	TierEnterprise Tier = "enterprise"
)

// TierDefaults holds the rate-limit-per-hour default for a tier (spec.md section 4.2).
var TierDefaults = map[Tier]int{
	TierFree:       100,
	TierTrial:      1000,
	TierPro:        1000,
	TierEnterprise: 10000,
}

// defaultRetentionDays, defaultMaxMembers, etc. resolve the remaining
// per-tier overrides named in spec.md section 3 when an organisation has
// not set an override.
var (
	defaultRetentionDays           = map[Tier]int{TierFree: 30, TierTrial: 30, TierPro: 90, TierEnterprise: 365}
	defaultMaxMembers              = map[Tier]int{TierFree: 3, TierTrial: 5, TierPro: 25, TierEnterprise: 1000}
	defaultMaxDatasets             = map[Tier]int{TierFree: 3, TierTrial: 5, TierPro: 50, TierEnterprise: 1000}
	defaultExperimentRetentionDays = map[Tier]int{TierFree: 30, TierTrial: 30, TierPro: 180, TierEnterprise: 730}
	defaultMaxExamplesPerDataset   = map[Tier]int{TierFree: 200, TierTrial: 500, TierPro: 10000, TierEnterprise: 1000000}
)

// Organisation is a tenant (spec.md section 3).
type Organisation struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Tier      Tier      `json:"tier" db:"tier"`
	Members   []string  `json:"members,omitempty" db:"members"`
	CreatedAt time.Time `json:"created" db:"created_at"`
	UpdatedAt time.Time `json:"updated" db:"updated_at"`

	// Overrides, any of which may be zero/unset to fall back to the tier default.
	RateLimitPerHour          int `json:"rateLimitPerHour,omitempty" db:"rate_limit_per_hour"`
	RetentionDays             int `json:"retentionDays,omitempty" db:"retention_days"`
	MaxMembers                int `json:"maxMembers,omitempty" db:"max_members"`
	MaxDatasets               int `json:"maxDatasets,omitempty" db:"max_datasets"`
	ExperimentRetentionDays   int `json:"experimentRetentionDays,omitempty" db:"experiment_retention_days"`
	MaxExamplesPerDataset     int `json:"maxExamplesPerDataset,omitempty" db:"max_examples_per_dataset"`
}

// EffectiveRateLimit resolves the per-hour span ingestion quota: the lesser
// of any org override and the tier default (spec.md section 4.2 says
// "min(org.rate_limit_per_hour, tier default)").
func (o *Organisation) EffectiveRateLimit() int {
	tierDefault := TierDefaults[o.Tier]
	if tierDefault == 0 {
		tierDefault = TierDefaults[TierFree]
	}
	if o.RateLimitPerHour <= 0 {
		return tierDefault
	}
	if o.RateLimitPerHour < tierDefault {
		return o.RateLimitPerHour
	}
	return tierDefault
}

func resolve(override int, defaults map[Tier]int, tier Tier) int {
	if override > 0 {
		return override
	}
	if v, ok := defaults[tier]; ok {
		return v
	}
	return defaults[TierFree]
}

// EffectiveRetentionDays resolves the trace retention window.
func (o *Organisation) EffectiveRetentionDays() int {
	return resolve(o.RetentionDays, defaultRetentionDays, o.Tier)
}

// EffectiveMaxMembers resolves the member cap.
func (o *Organisation) EffectiveMaxMembers() int {
	return resolve(o.MaxMembers, defaultMaxMembers, o.Tier)
}

// EffectiveMaxDatasets resolves the dataset cap.
func (o *Organisation) EffectiveMaxDatasets() int {
	return resolve(o.MaxDatasets, defaultMaxDatasets, o.Tier)
}

// EffectiveExperimentRetentionDays resolves the experiment retention window.
func (o *Organisation) EffectiveExperimentRetentionDays() int {
	return resolve(o.ExperimentRetentionDays, defaultExperimentRetentionDays, o.Tier)
}

// EffectiveMaxExamplesPerDataset resolves the per-dataset example cap.
func (o *Organisation) EffectiveMaxExamplesPerDataset() int {
	return resolve(o.MaxExamplesPerDataset, defaultMaxExamplesPerDataset, o.Tier)
}
