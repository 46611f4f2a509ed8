package plan

// PartitionKeyRange is one physical partition's half-open interval over
// the hex EPK space: [MinInclusive, MaxExclusive). The full space is
// [\"\", \"FF\").
type PartitionKeyRange struct {
	ID           string `json:"id"`
	MinInclusive string `json:"minInclusive"`
	MaxExclusive string `json:"maxExclusive"`
}

// Contains reports whether hex epk falls within r's half-open interval.
func (r PartitionKeyRange) Contains(epk string) bool {
	return epk >= r.MinInclusive && epk < r.MaxExclusive
}
