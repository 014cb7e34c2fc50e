package llm

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var promptsYAML []byte

// PromptSet is one version of the extraction and repair prompts.
type PromptSet struct {
	Version     string  `yaml:"-"`
	Temperature float32 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	Extraction  string  `yaml:"extraction"`
	Biography   string  `yaml:"biography"`
	Repair      string  `yaml:"repair"`
}

type promptCatalog struct {
	Default  string               `yaml:"default"`
	Versions map[string]PromptSet `yaml:"versions"`
}

var loadCatalog = sync.OnceValues(func() (promptCatalog, error) {
	return parseCatalog(promptsYAML)
})

func parseCatalog(data []byte) (promptCatalog, error) {
	var cat promptCatalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return promptCatalog{}, fmt.Errorf("parse prompt catalog: %w", err)
	}
	if _, ok := cat.Versions[cat.Default]; !ok {
		return promptCatalog{}, fmt.Errorf("prompt catalog default %q not defined", cat.Default)
	}
	for name, set := range cat.Versions {
		if strings.TrimSpace(set.Extraction) == "" || strings.TrimSpace(set.Repair) == "" {
			return promptCatalog{}, fmt.Errorf("prompt version %q missing extraction or repair prompt", name)
		}
		set.Version = name
		cat.Versions[name] = set
	}
	return cat, nil
}

// Prompts returns the prompt set for version and whether the version was
// recognized. Unknown or empty versions fall back to the catalog default.
func Prompts(version string) (PromptSet, bool) {
	cat, err := loadCatalog()
	if err != nil {
		panic(err)
	}
	if set, ok := cat.Versions[strings.TrimSpace(version)]; ok {
		return set, true
	}
	return cat.Versions[cat.Default], false
}

// PromptVersions lists the catalog versions in sorted order.
func PromptVersions() []string {
	cat, err := loadCatalog()
	if err != nil {
		panic(err)
	}
	out := make([]string, 0, len(cat.Versions))
	for v := range cat.Versions {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
