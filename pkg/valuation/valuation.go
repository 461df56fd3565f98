// Copyright 2025 Certen Protocol
//
// Package valuation filters a set of external valuations for an asset,
// rejecting sources whose reported value deviates too far from the
// median, and emits a canonical rejection event when it does.
package valuation

import (
	"fmt"
	"sort"

	"github.com/proveniq/ledger/pkg/canonical"
)

// ThresholdFraction is the maximum allowed absolute deviation from the
// median, expressed as a fraction of the median.
const ThresholdFraction = 0.1

// RejectedEventType is the canonical ledger event type emitted when
// one or more sources are rejected. It satisfies the registry's
// DOMAIN_NOUN_PASTVERB shape; "oracle data rejected" is its
// human-readable gloss.
const RejectedEventType = "ORACLE_DATA_REJECTED"

// Valuation is a single source's reported value for an asset.
type Valuation struct {
	Source string
	Value  float64
}

// Result is the outcome of filtering a valuation set.
type Result struct {
	Median    float64
	Accepted  []Valuation
	Rejected  []Valuation
}

// Filter computes the median of values and rejects any source whose
// absolute deviation exceeds ThresholdFraction of the median.
func Filter(valuations []Valuation) Result {
	if len(valuations) == 0 {
		return Result{}
	}
	values := make([]float64, len(valuations))
	for i, v := range valuations {
		values[i] = v.Value
	}
	median := computeMedian(values)

	result := Result{Median: median}
	threshold := median * ThresholdFraction
	if threshold < 0 {
		threshold = -threshold
	}
	for _, v := range valuations {
		deviation := v.Value - median
		if deviation < 0 {
			deviation = -deviation
		}
		if deviation > threshold {
			result.Rejected = append(result.Rejected, v)
		} else {
			result.Accepted = append(result.Accepted, v)
		}
	}
	return result
}

func computeMedian(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// RejectionEvent builds the payload and idempotency key for the
// ORACLE_DATA_REJECTED event emitted when at least one source is
// rejected. assetID identifies the asset the valuations concern.
func RejectionEvent(assetID string, result Result) (payload map[string]interface{}, idempotencyKey string, err error) {
	if len(result.Rejected) == 0 {
		return nil, "", fmt.Errorf("valuation: no rejected sources to report")
	}

	rejectedSources := make([]string, len(result.Rejected))
	for i, v := range result.Rejected {
		rejectedSources[i] = v.Source
	}
	allValuations := make([]map[string]interface{}, 0, len(result.Accepted)+len(result.Rejected))
	for _, v := range result.Accepted {
		allValuations = append(allValuations, map[string]interface{}{"source": v.Source, "value": v.Value})
	}
	for _, v := range result.Rejected {
		allValuations = append(allValuations, map[string]interface{}{"source": v.Source, "value": v.Value})
	}

	payload = map[string]interface{}{
		"asset_id":           assetID,
		"median":             result.Median,
		"rejected_sources":   rejectedSources,
		"valuations":         allValuations,
		"threshold_fraction": ThresholdFraction,
	}

	hash, err := canonical.Hash(payload)
	if err != nil {
		return nil, "", fmt.Errorf("valuation: hash payload: %w", err)
	}
	idempotencyKey = fmt.Sprintf("%s:%s", assetID, hash)
	return payload, idempotencyKey, nil
}
