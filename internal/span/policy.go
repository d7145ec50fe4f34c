package span

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Policy carries per-language strategy weight overrides, loaded from a
// standalone YAML file so corpus teams can tune languages without
// touching the main configuration.
type Policy struct {
	Languages map[string]Weights `yaml:"languages"`
}

// LoadPolicy reads a policy file. An empty path yields an empty
// policy, keeping the file optional.
func LoadPolicy(path string) (*Policy, error) {
	if path == "" {
		return &Policy{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "span: read policy %s", path)
	}

	// The YAML has a top-level "span_policy" key
	var wrapper struct {
		SpanPolicy Policy `yaml:"span_policy"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "span: parse policy")
	}

	p := &wrapper.SpanPolicy
	for lang, w := range p.Languages {
		if err := w.Validate(); err != nil {
			return nil, eris.Wrapf(err, "span: policy weights for %s", lang)
		}
	}
	return p, nil
}

// Apply returns cfg with the weight override for its language, when
// the policy carries one. Lookup is case-insensitive.
func (p *Policy) Apply(cfg Config) Config {
	if p == nil || len(p.Languages) == 0 {
		return cfg
	}
	for lang, w := range p.Languages {
		if strings.EqualFold(lang, cfg.Language) {
			cfg.Weights = w
			break
		}
	}
	return cfg
}
