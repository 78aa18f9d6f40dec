package discovery

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// AffinityTables are enumerated lookup tables for structural scoring. Every
// curated pair is an explicit entry so the tables can be audited and tested
// in isolation; anything not listed falls through to the defaults.
type AffinityTables struct {
	samePlatform    float64
	defaultPlatform float64
	platformPairs   map[string]float64

	sameType    float64
	defaultType float64
	typePairs   map[string]float64
}

func DefaultAffinityTables() *AffinityTables {
	return &AffinityTables{
		samePlatform:    0.6,
		defaultPlatform: 0.5,
		platformPairs: map[string]float64{
			pairKey("github", "jira"):   0.9,
			pairKey("gitlab", "jira"):   0.9,
			pairKey("github", "linear"): 0.9,
			pairKey("gitlab", "linear"): 0.9,
			pairKey("github", "slack"):  0.7,
			pairKey("jira", "slack"):    0.7,
			pairKey("linear", "slack"):  0.7,
			pairKey("jira", "notion"):   0.7,
			pairKey("slack", "notion"):  0.6,
		},

		sameType:    0.7,
		defaultType: 0.5,
		typePairs: map[string]float64{
			pairKey("commit", "pull_request"):   0.8,
			pairKey("issue", "pull_request"):    0.8,
			pairKey("issue", "commit"):          0.8,
			pairKey("issue", "message"):         0.8,
			pairKey("message", "document"):      0.8,
			pairKey("document", "pull_request"): 0.8,
		},
	}
}

type affinityYAML struct {
	Platforms struct {
		Same    *float64           `yaml:"same"`
		Default *float64           `yaml:"default"`
		Pairs   map[string]float64 `yaml:"pairs"`
	} `yaml:"platforms"`
	Types struct {
		Same    *float64           `yaml:"same"`
		Default *float64           `yaml:"default"`
		Pairs   map[string]float64 `yaml:"pairs"`
	} `yaml:"types"`
}

// LoadAffinityTables overlays curated entries from a YAML file onto the
// defaults. Pair keys are written "a/b"; order does not matter.
func LoadAffinityTables(path string) (*AffinityTables, error) {
	tables := DefaultAffinityTables()
	if strings.TrimSpace(path) == "" {
		return tables, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("affinity tables read: %w", err)
	}
	var parsed affinityYAML
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("affinity tables parse: %w", err)
	}

	if parsed.Platforms.Same != nil {
		tables.samePlatform = *parsed.Platforms.Same
	}
	if parsed.Platforms.Default != nil {
		tables.defaultPlatform = *parsed.Platforms.Default
	}
	for key, score := range parsed.Platforms.Pairs {
		a, b, err := splitPair(key)
		if err != nil {
			return nil, err
		}
		tables.platformPairs[pairKey(a, b)] = score
	}

	if parsed.Types.Same != nil {
		tables.sameType = *parsed.Types.Same
	}
	if parsed.Types.Default != nil {
		tables.defaultType = *parsed.Types.Default
	}
	for key, score := range parsed.Types.Pairs {
		a, b, err := splitPair(key)
		if err != nil {
			return nil, err
		}
		tables.typePairs[pairKey(a, b)] = score
	}

	return tables, nil
}

func (t *AffinityTables) PlatformAffinity(a, b string) float64 {
	a = normalizeTag(a)
	b = normalizeTag(b)
	if a != "" && a == b {
		return t.samePlatform
	}
	if score, ok := t.platformPairs[pairKey(a, b)]; ok {
		return score
	}
	return t.defaultPlatform
}

func (t *AffinityTables) TypeCompatibility(a, b string) float64 {
	a = normalizeTag(a)
	b = normalizeTag(b)
	if a != "" && a == b {
		return t.sameType
	}
	if score, ok := t.typePairs[pairKey(a, b)]; ok {
		return score
	}
	return t.defaultType
}

func pairKey(a, b string) string {
	pair := []string{normalizeTag(a), normalizeTag(b)}
	sort.Strings(pair)
	return pair[0] + "|" + pair[1]
}

func splitPair(key string) (string, string, error) {
	parts := strings.Split(key, "/")
	if len(parts) != 2 || strings.TrimSpace(parts[0]) == "" || strings.TrimSpace(parts[1]) == "" {
		return "", "", fmt.Errorf("affinity tables: invalid pair key %q (want \"a/b\")", key)
	}
	return parts[0], parts[1], nil
}

func normalizeTag(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
