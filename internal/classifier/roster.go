package classifier

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// ModelSpec names one voting model and its fallback-backend alias.
type ModelSpec struct {
	Model string `yaml:"model"`
	Alias string `yaml:"alias"`
}

// Roster is the configured set of voting models for Stage 1.
type Roster struct {
	Models []ModelSpec `yaml:"models"`
}

// DefaultRoster returns the built-in three-model voting roster used when no
// roster file is configured.
func DefaultRoster() Roster {
	return Roster{
		Models: []ModelSpec{
			{Model: "claude-haiku-4-5-20251001", Alias: "sonar"},
			{Model: "claude-sonnet-4-5-20250929", Alias: "sonar-pro"},
			{Model: "claude-opus-4-6", Alias: "sonar-pro"},
		},
	}
}

// LoadRoster reads a model roster from a yaml file.
func LoadRoster(path string) (Roster, error) {
	var r Roster
	data, err := os.ReadFile(path)
	if err != nil {
		return r, eris.Wrapf(err, "classifier: read roster %s", path)
	}
	if err := yaml.Unmarshal(data, &r); err != nil {
		return r, eris.Wrapf(err, "classifier: parse roster %s", path)
	}
	if len(r.Models) == 0 {
		return r, eris.Errorf("classifier: roster %s has no models", path)
	}
	return r, nil
}

// Aliases returns the model→alias translation table for the gateway.
func (r Roster) Aliases() map[string]string {
	out := make(map[string]string, len(r.Models))
	for _, m := range r.Models {
		if m.Alias != "" {
			out[m.Model] = m.Alias
		}
	}
	return out
}
