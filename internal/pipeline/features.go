package pipeline

import "github.com/cosmosquery/crosspartition/internal/config"

// SupportedFeatures is query_supported_features(): the literal
// {orderBy,groupBy,distinct,offsetLimit,top,hybrid} object an embedder can
// report to a gateway negotiating plan capability, without constructing a
// pipeline first. Every field but hybrid is unconditionally true — this
// engine build always implements OrderBy/GroupBy/Distinct/OffsetLimit/Top;
// hybrid reflects cfg.Feature.EnableHybrid.
type SupportedFeatures struct {
	OrderBy     bool `json:"orderBy"`
	GroupBy     bool `json:"groupBy"`
	Distinct    bool `json:"distinct"`
	OffsetLimit bool `json:"offsetLimit"`
	Top         bool `json:"top"`
	Hybrid      bool `json:"hybrid"`
}

// QuerySupportedFeatures reports which plan features this engine build can
// execute, given cfg's feature gates.
func QuerySupportedFeatures(cfg *config.Config) SupportedFeatures {
	if cfg == nil {
		cfg = config.Default()
	}
	return SupportedFeatures{
		OrderBy:     true,
		GroupBy:     true,
		Distinct:    true,
		OffsetLimit: true,
		Top:         true,
		Hybrid:      cfg.Feature.EnableHybrid,
	}
}
