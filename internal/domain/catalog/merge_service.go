package catalog

import (
	"sort"
	"time"
)

// TieWarning reports two vendors sharing the same priority rank while both
// supplying a value for the same field. The condition is a configuration
// error; the merge resolves it deterministically in favor of the most recently
// updated mapping, and the caller is expected to log the warning for operator
// review.
type TieWarning struct {
	// UniversalID is the affected product key
	UniversalID string
	// Attribute is the contested field
	Attribute string
	// Rank is the shared priority rank
	Rank int
	// WinnerVendor is the vendor whose value was selected
	WinnerVendor string
	// LoserVendor is the vendor whose value was discarded
	LoserVendor string
}

// MergeEngine resolves conflicting vendor field values into one master record
// using the vendors' configured priority order. The merge is a pure function
// of its inputs: recomputing with unchanged mappings and ranks produces a
// bit-identical MasterProduct.
type MergeEngine struct{}

// NewMergeEngine creates a merge engine
func NewMergeEngine() *MergeEngine {
	return &MergeEngine{}
}

// candidate is one vendor's contribution ordered for selection.
type candidate struct {
	mapping *VendorProductMapping
	rank    int
}

// Recompute merges all active mappings for a universal identifier into the
// given master product. When existing is nil a new MasterProduct is created.
// For each descriptive attribute the value comes from the highest-priority
// vendor (lowest rank) with a non-empty value; rank ties fall to the mapping
// updated most recently. ranks maps vendor code to priority rank; vendors
// absent from the map are ignored.
func (e *MergeEngine) Recompute(existing *MasterProduct, universalID string, mappings []VendorProductMapping, ranks map[string]int) (*MasterProduct, []TieWarning, error) {
	product := existing
	if product == nil {
		var err error
		product, err = NewMasterProduct(universalID)
		if err != nil {
			return nil, nil, err
		}
	}

	candidates := make([]candidate, 0, len(mappings))
	for i := range mappings {
		m := &mappings[i]
		if !m.IsActive || m.UniversalID != universalID {
			continue
		}
		rank, ok := ranks[m.VendorCode]
		if !ok {
			continue
		}
		candidates = append(candidates, candidate{mapping: m, rank: rank})
	}

	// Deterministic selection order: rank ascending, then most recently
	// updated, then vendor code as a stable final tie-break.
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].rank != candidates[j].rank {
			return candidates[i].rank < candidates[j].rank
		}
		ti, tj := candidates[i].mapping.UpdatedAt, candidates[j].mapping.UpdatedAt
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return candidates[i].mapping.VendorCode < candidates[j].mapping.VendorCode
	})

	var warnings []TieWarning
	changed := false
	var latest time.Time

	for _, attr := range DescriptiveAttributes {
		winnerIdx := -1
		for i, c := range candidates {
			if c.mapping.DescriptiveValue(attr) != "" {
				winnerIdx = i
				break
			}
		}
		if winnerIdx < 0 {
			continue
		}
		winner := candidates[winnerIdx]

		// A later candidate at the same rank with its own value means the
		// priority configuration is ambiguous for this field.
		for _, other := range candidates[winnerIdx+1:] {
			if other.rank != winner.rank {
				break
			}
			if other.mapping.DescriptiveValue(attr) != "" {
				warnings = append(warnings, TieWarning{
					UniversalID:  universalID,
					Attribute:    attr,
					Rank:         winner.rank,
					WinnerVendor: winner.mapping.VendorCode,
					LoserVendor:  other.mapping.VendorCode,
				})
				break
			}
		}

		value := winner.mapping.DescriptiveValue(attr)
		prov := FieldProvenance{
			VendorCode:   winner.mapping.VendorCode,
			PriorityRank: winner.rank,
			SuppliedAt:   winner.mapping.UpdatedAt,
		}
		if product.Attribute(attr) != value || product.Provenance[attr] != prov {
			product.setAttribute(attr, value)
			product.Provenance[attr] = prov
			changed = true
		}
		if winner.mapping.UpdatedAt.After(latest) {
			latest = winner.mapping.UpdatedAt
		}
	}

	// UpdatedAt is derived from the inputs, not the wall clock, so repeated
	// recomputation with unchanged inputs yields an identical record.
	if changed && !latest.IsZero() {
		product.UpdatedAt = latest
	}

	return product, warnings, nil
}
