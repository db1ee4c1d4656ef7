package taxonomy

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Other is the sport of text no keyword matches.
const Other = "Other"

const defaultIcon = "🏆"

//go:embed default.yaml
var defaultYAML []byte

// Sport is one entry of the ordered sport table.
type Sport struct {
	Name     string   `yaml:"name"`
	Icon     string   `yaml:"icon"`
	Keywords []string `yaml:"keywords"`
	Leagues  []string `yaml:"leagues"`
}

// Taxonomy holds the closed vocabularies the pipeline filters on.
type Taxonomy struct {
	Bookmakers []string `yaml:"bookmakers"`
	Sports     []Sport  `yaml:"sports"`
}

// Default returns the built-in taxonomy.
func Default() *Taxonomy {
	t, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("taxonomy: embedded default: %v", err))
	}
	return t
}

// Load reads a taxonomy YAML file. An empty path yields Default.
func Load(path string) (*Taxonomy, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read taxonomy: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a taxonomy document.
func Parse(data []byte) (*Taxonomy, error) {
	var t Taxonomy
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse taxonomy: %w", err)
	}
	if err := t.validate(); err != nil {
		return nil, err
	}

	// Keywords are compared against lower-cased text.
	for i := range t.Sports {
		for j, kw := range t.Sports[i].Keywords {
			t.Sports[i].Keywords[j] = strings.ToLower(strings.TrimSpace(kw))
		}
	}
	return &t, nil
}

func (t *Taxonomy) validate() error {
	if len(t.Sports) == 0 {
		return errors.New("taxonomy: no sports defined")
	}
	seen := make(map[string]bool)
	for _, s := range t.Sports {
		if s.Name == "" {
			return errors.New("taxonomy: sport without name")
		}
		if s.Name == Other {
			return fmt.Errorf("taxonomy: %q is reserved", Other)
		}
		if seen[s.Name] {
			return fmt.Errorf("taxonomy: duplicate sport %q", s.Name)
		}
		seen[s.Name] = true
	}
	return nil
}

// Classify maps free text to a sport: the first sport in table order with
// a keyword contained in the lower-cased text, else Other.
func (t *Taxonomy) Classify(text string) string {
	text = strings.ToLower(text)
	for _, s := range t.Sports {
		for _, kw := range s.Keywords {
			if kw != "" && strings.Contains(text, kw) {
				return s.Name
			}
		}
	}
	return Other
}

// Icon returns the emoji shown next to a sport.
func (t *Taxonomy) Icon(sport string) string {
	if s, ok := t.Sport(sport); ok && s.Icon != "" {
		return s.Icon
	}
	return defaultIcon
}

// Sport looks up a sport by name.
func (t *Taxonomy) Sport(name string) (Sport, bool) {
	for _, s := range t.Sports {
		if s.Name == name {
			return s, true
		}
	}
	return Sport{}, false
}

// SportNames returns sport names in table order.
func (t *Taxonomy) SportNames() []string {
	names := make([]string, 0, len(t.Sports))
	for _, s := range t.Sports {
		names = append(names, s.Name)
	}
	return names
}

// Leagues returns the named leagues of a sport, nil when it has none.
func (t *Taxonomy) Leagues(sport string) []string {
	s, _ := t.Sport(sport)
	return s.Leagues
}
