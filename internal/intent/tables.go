// Package intent classifies free-text SLO questions into an intent from a
// fixed allow-list, extracts entities, expands enrichment intents, and
// computes the union of data sources the orchestrator must query. The LLM
// only names intents and entities; data-source requirements always come from
// the static tables.
package intent

import (
	_ "embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed tables.yaml
var rawTables []byte

type intentDef struct {
	Description string   `yaml:"description"`
	DataSources []string `yaml:"data_sources"`
}

type categoryDef struct {
	Description string               `yaml:"description"`
	Intents     map[string]intentDef `yaml:"intents"`
}

type dataSourceDef struct {
	Description string `yaml:"description"`
}

type tablesFile struct {
	Categories      map[string]categoryDef   `yaml:"categories"`
	EnrichmentRules map[string][]string      `yaml:"enrichment_rules"`
	DataSources     map[string]dataSourceDef `yaml:"data_sources"`
}

// Tables is the loaded static intent configuration.
type Tables struct {
	file        tablesFile
	categories  []string
	intents     map[string]intentDef
	intentNames []string
}

// LoadTables parses the embedded intent tables.
func LoadTables() (*Tables, error) {
	var f tablesFile
	if err := yaml.Unmarshal(rawTables, &f); err != nil {
		return nil, fmt.Errorf("failed to parse intent tables: %w", err)
	}

	t := &Tables{
		file:    f,
		intents: make(map[string]intentDef),
	}
	for cat, catDef := range f.Categories {
		t.categories = append(t.categories, cat)
		for name, def := range catDef.Intents {
			t.intents[name] = def
		}
	}
	sort.Strings(t.categories)

	for name := range t.intents {
		t.intentNames = append(t.intentNames, name)
	}
	sort.Strings(t.intentNames)

	if len(t.intents) == 0 {
		return nil, fmt.Errorf("intent tables define no intents")
	}
	return t, nil
}

// Known reports whether the intent is on the allow-list.
func (t *Tables) Known(intent string) bool {
	_, ok := t.intents[intent]
	return ok
}

// Intents returns every allowed intent name, sorted.
func (t *Tables) Intents() []string {
	return append([]string(nil), t.intentNames...)
}

// Enrichments returns the related intents silently included with the given
// intent, or nil.
func (t *Tables) Enrichments(intent string) []string {
	return t.file.EnrichmentRules[intent]
}

// Enrich expands the given intents through the enrichment rules and returns
// the sorted union, unknown names dropped.
func (t *Tables) Enrich(intents []string) []string {
	seen := make(map[string]bool)
	for _, intent := range intents {
		if !t.Known(intent) {
			continue
		}
		seen[intent] = true
		for _, extra := range t.file.EnrichmentRules[intent] {
			if t.Known(extra) {
				seen[extra] = true
			}
		}
	}

	out := make([]string, 0, len(seen))
	for intent := range seen {
		out = append(out, intent)
	}
	sort.Strings(out)
	return out
}

// DataSources returns the sorted union of data sources required by the given
// intents.
func (t *Tables) DataSources(intents []string) []string {
	seen := make(map[string]bool)
	for _, intent := range intents {
		for _, ds := range t.intents[intent].DataSources {
			seen[ds] = true
		}
	}

	out := make([]string, 0, len(seen))
	for ds := range seen {
		out = append(out, ds)
	}
	sort.Strings(out)
	return out
}

// DataSourceDescription returns the human description for a data source name.
func (t *Tables) DataSourceDescription(name string) string {
	return t.file.DataSources[name].Description
}
