package conversation

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Skill is one entry of the skill manifest the suggester matches against.
type Skill struct {
	Name        string   `yaml:"name"`
	Path        string   `yaml:"path"`
	Description string   `yaml:"description"`
	Keywords    []string `yaml:"keywords"`
}

type skillManifest struct {
	Skills []Skill `yaml:"skills"`
}

//go:embed skills.yaml
var embeddedManifest []byte

// LoadSkills parses a skill manifest. An empty path loads the embedded
// default manifest.
func LoadSkills(path string) ([]Skill, error) {
	data := embeddedManifest
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read skill manifest: %w", err)
		}
	}
	var manifest skillManifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("parse skill manifest: %w", err)
	}
	if len(manifest.Skills) == 0 {
		return nil, fmt.Errorf("skill manifest has no skills")
	}
	for i, s := range manifest.Skills {
		if s.Name == "" || s.Path == "" {
			return nil, fmt.Errorf("skill %d: name and path are required", i)
		}
	}
	return manifest.Skills, nil
}
