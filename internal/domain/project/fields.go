package project

import (
	"fmt"
	"maps"
	"slices"
	"unicode/utf8"
)

// Asset keys carried by every story's derived fields.
const (
	AssetHook         = "hook"
	AssetGoogleH1     = "google_h1"
	AssetGoogleDesc   = "google_desc"
	AssetMetaPrimary  = "meta_primary"
	AssetLandingH1    = "lp_h1"
	AssetEmailSubject = "email_subject"
	AssetCTA          = "cta"
)

// Reasoning keys always tracked for editing.
const (
	ReasoningProof     = "proof"
	ReasoningObjection = "objection"
)

// AssetKeys lists the fixed asset fields in display order.
var AssetKeys = []string{
	AssetHook,
	AssetGoogleH1,
	AssetGoogleDesc,
	AssetMetaPrimary,
	AssetLandingH1,
	AssetEmailSubject,
	AssetCTA,
}

// ReasoningKeys lists the reasoning fields every story exposes.
var ReasoningKeys = []string{ReasoningProof, ReasoningObjection}

// DefaultLimits are the character ceilings used when a story has none.
var DefaultLimits = map[string]int{
	AssetHook:         125,
	AssetGoogleH1:     30,
	AssetGoogleDesc:   90,
	AssetMetaPrimary:  125,
	AssetLandingH1:    60,
	AssetEmailSubject: 60,
	AssetCTA:          25,
}

// Clone returns a deep copy of the derived fields.
func (d *DerivedFields) Clone() *DerivedFields {
	if d == nil {
		return nil
	}
	out := &DerivedFields{
		Meta:           maps.Clone(d.Meta),
		Assets:         maps.Clone(d.Assets),
		Reasoning:      maps.Clone(d.Reasoning),
		Limits:         maps.Clone(d.Limits),
		CharCounts:     maps.Clone(d.CharCounts),
		OverLimitCount: d.OverLimitCount,
	}
	if d.OverLimitFields != nil {
		out.OverLimitFields = slices.Clone(d.OverLimitFields)
	}
	return out
}

// Measure returns a copy of d with char counts and over-limit data recomputed
// from its assets and limits. Counts are in runes.
func Measure(d *DerivedFields) *DerivedFields {
	if d == nil {
		return nil
	}
	out := d.Clone()
	limits := out.Limits
	if len(limits) == 0 {
		limits = DefaultLimits
	}
	out.CharCounts = make(map[string]int, len(out.Assets))
	out.OverLimitFields = nil
	for key, value := range out.Assets {
		n := utf8.RuneCountInString(value)
		out.CharCounts[key] = n
		if limit, ok := limits[key]; ok && limit > 0 && n > limit {
			out.OverLimitFields = append(out.OverLimitFields, key)
		}
	}
	slices.Sort(out.OverLimitFields)
	out.OverLimitCount = len(out.OverLimitFields)
	return out
}

// FieldString normalizes a free-form field value for comparison. Missing and
// nil values compare equal to the empty string.
func FieldString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	default:
		return fmt.Sprint(val)
	}
}
