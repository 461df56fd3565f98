// Copyright 2025 Certen Protocol
//
// Package canonical provides deterministic serialization and content
// hashing for ledger payloads: same semantic value in, same bytes out,
// regardless of map iteration order or input key order.
package canonical

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// Bytes returns the canonical byte representation of v.
//
// v is first round-tripped through encoding/json to normalize it into
// the interface{} shapes canonicalizeValue understands (map[string]interface{},
// []interface{}, json.Number, etc.), then recursively canonicalized: map
// keys sorted lexicographically, nulls and absent fields handled per the
// rules below. When v itself is a time.Time or []byte it is rendered
// through its documented token (UTC millisecond timestamp, base64). A
// time.Time nested inside v is not converted: it takes encoding/json's
// RFC 3339 form, keeping its own zone and precision.
func Bytes(v interface{}) ([]byte, error) {
	normalized, err := normalize(v)
	if err != nil {
		return nil, fmt.Errorf("canonical: normalize: %w", err)
	}
	canon, err := canonicalizeValue(normalized)
	if err != nil {
		return nil, fmt.Errorf("canonical: canonicalize: %w", err)
	}
	return json.Marshal(canon)
}

// normalize converts a top-level time.Time (-> RFC3339 millisecond UTC
// string) or []byte (-> base64) directly; any other value it marshals through encoding/json so the rest of the pipeline only
// ever sees interface{}, map[string]interface{}, []interface{}, and
// json.Number.
func normalize(v interface{}) (interface{}, error) {
	switch vv := v.(type) {
	case []byte:
		return base64.StdEncoding.EncodeToString(vv), nil
	case time.Time:
		return vv.UTC().Format("2006-01-02T15:04:05.000Z"), nil
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.UseNumber()
	var out interface{}
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// canonicalizeValue sorts map keys at every level and validates that
// numeric values are finite. Sequence elements keep their position;
// nulls (including absent-then-nulled elements) pass through as the
// null token.
func canonicalizeValue(v interface{}) (interface{}, error) {
	switch vv := v.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(vv))
		for k, val := range vv {
			if val == nil {
				continue // absent/omitted: drop rather than emit a null-valued key
			}
			keys = append(keys, k)
		}
		sort.Strings(keys)
		ordered := make(map[string]interface{}, len(keys))
		for _, k := range keys {
			c, err := canonicalizeValue(vv[k])
			if err != nil {
				return nil, err
			}
			ordered[k] = c
		}
		return ordered, nil
	case []interface{}:
		out := make([]interface{}, len(vv))
		for i, e := range vv {
			c, err := canonicalizeValue(e)
			if err != nil {
				return nil, err
			}
			out[i] = c
		}
		return out, nil
	case json.Number:
		f, err := vv.Float64()
		if err == nil && (math.IsNaN(f) || math.IsInf(f, 0)) {
			return nil, fmt.Errorf("non-finite number %q is not canonicalizable", vv.String())
		}
		return vv, nil
	default:
		return vv, nil
	}
}

// SHA256Hex returns the lowercase hex-encoded SHA-256 digest of data.
func SHA256Hex(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Hash returns SHA256Hex(Bytes(v)).
func Hash(v interface{}) (string, error) {
	b, err := Bytes(v)
	if err != nil {
		return "", err
	}
	return SHA256Hex(b), nil
}

// EvidenceSetHash combines a set of content-hashes into a single
// order-independent digest: filter empty strings, sort ascending, join
// with "|", SHA-256 the result.
func EvidenceSetHash(hashes []string) string {
	filtered := make([]string, 0, len(hashes))
	for _, h := range hashes {
		if h != "" {
			filtered = append(filtered, h)
		}
	}
	sort.Strings(filtered)
	return SHA256Hex([]byte(strings.Join(filtered, "|")))
}

// AssetStateInput is the composite input to AssetStateHash.
type AssetStateInput struct {
	RulesetVersion string      `json:"ruleset_version"`
	Claim          interface{} `json:"claim_json"`
	EvidenceHashes []string    `json:"-"`
}

// AssetStateHash computes the composite content hash binding a claim to
// its evidence set and the ruleset version it was evaluated under.
func AssetStateHash(in AssetStateInput) (string, error) {
	return Hash(map[string]interface{}{
		"ruleset_version":   in.RulesetVersion,
		"claim_json":        in.Claim,
		"evidence_set_hash": EvidenceSetHash(in.EvidenceHashes),
	})
}
