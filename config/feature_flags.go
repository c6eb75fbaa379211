package config

import (
	"fmt"
	"hash/fnv"
	"os"
	"strconv"
	"strings"
	"sync"
)

// FeatureFlags toggles optional portal features at runtime. A flag can be
// switched on for a percentage of users; assignment is stable per user id.
type FeatureFlags struct {
	mu       sync.RWMutex
	features map[string]*Feature
}

// Feature is a single toggle.
type Feature struct {
	Name           string
	Description    string
	Enabled        bool
	RolloutPercent int // 0-100
}

// Known feature names.
const (
	FeatureGrievanceUpvotes   = "grievance.upvotes"
	FeatureCommunityLikes     = "community.likes"
	FeatureOpportunityApply   = "opportunity.applications"
	FeatureSOSDispatch        = "sos.dispatch"
	FeatureDashboardSnapshots = "dashboard.snapshots"
)

// LoadFeatureFlags builds the defaults and applies FEATURE_* overrides.
// FEATURE_COMMUNITY_LIKES=false disables a flag; =25 rolls it out to 25%.
func LoadFeatureFlags() *FeatureFlags {
	ff := NewFeatureFlags()
	for name, f := range ff.features {
		val := strings.TrimSpace(os.Getenv(featureNameToEnvKey(name)))
		if val == "" {
			continue
		}
		if b, err := strconv.ParseBool(val); err == nil {
			f.Enabled = b
			f.RolloutPercent = 100
			continue
		}
		if pct, err := strconv.Atoi(val); err == nil && pct >= 0 && pct <= 100 {
			f.Enabled = pct > 0
			f.RolloutPercent = pct
		}
	}
	return ff
}

// NewFeatureFlags returns the defaults with every feature fully enabled.
func NewFeatureFlags() *FeatureFlags {
	ff := &FeatureFlags{features: make(map[string]*Feature)}
	for _, f := range []Feature{
		{Name: FeatureGrievanceUpvotes, Description: "Students can upvote grievances"},
		{Name: FeatureCommunityLikes, Description: "Members can like community posts"},
		{Name: FeatureOpportunityApply, Description: "Students can apply to opportunities"},
		{Name: FeatureSOSDispatch, Description: "SOS alerts are pushed to campus security"},
		{Name: FeatureDashboardSnapshots, Description: "Dashboard reads the worker's cached snapshot"},
	} {
		f := f
		f.Enabled = true
		f.RolloutPercent = 100
		ff.features[f.Name] = &f
	}
	return ff
}

func featureNameToEnvKey(name string) string {
	return "FEATURE_" + strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(name))
}

// IsEnabled reports whether the feature is on for userID. An empty userID
// only sees fully rolled-out features.
func (ff *FeatureFlags) IsEnabled(name, userID string) bool {
	if ff == nil {
		return true
	}
	ff.mu.RLock()
	f, ok := ff.features[name]
	ff.mu.RUnlock()
	if !ok || !f.Enabled {
		return false
	}
	if f.RolloutPercent >= 100 {
		return true
	}
	if userID == "" {
		return false
	}
	return bucket(name, userID) < f.RolloutPercent
}

func bucket(name, userID string) int {
	h := fnv.New32a()
	h.Write([]byte(name + ":" + userID))
	return int(h.Sum32() % 100)
}

// Set switches a feature on or off for everyone.
func (ff *FeatureFlags) Set(name string, enabled bool) error {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	f, ok := ff.features[name]
	if !ok {
		return fmt.Errorf("unknown feature %q", name)
	}
	f.Enabled = enabled
	f.RolloutPercent = 100
	return nil
}

// All returns a copy of every flag.
func (ff *FeatureFlags) All() map[string]Feature {
	ff.mu.RLock()
	defer ff.mu.RUnlock()
	out := make(map[string]Feature, len(ff.features))
	for k, v := range ff.features {
		out[k] = *v
	}
	return out
}
