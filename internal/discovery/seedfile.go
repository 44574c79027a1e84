package discovery

import (
	"context"
	"fmt"
	"os"

	"github.com/tomatolover555/windrose-ai/internal/types"
	"gopkg.in/yaml.v3"
)

// SeedEntry is one seed file line: either a bare domain or a mapping with an
// optional GitHub repository that vouches for it.
type SeedEntry struct {
	Domain     string `yaml:"domain"`
	GitHubRepo string `yaml:"github_repo"`
}

func (s *SeedEntry) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		s.Domain = node.Value
		return nil
	}
	type plain SeedEntry
	return node.Decode((*plain)(s))
}

type seedFile struct {
	Seeds []SeedEntry `yaml:"seeds"`
}

// SeedFileFeed reads seeds from a YAML file on every run so edits are picked
// up without a restart.
type SeedFileFeed struct {
	path string
}

func NewSeedFileFeed(path string) *SeedFileFeed {
	return &SeedFileFeed{path: path}
}

func (f *SeedFileFeed) Name() string { return "seed_file" }

func (f *SeedFileFeed) Candidates(ctx context.Context) ([]Candidate, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return ParseSeeds(data)
}

// ParseSeeds decodes seed file contents.
func ParseSeeds(data []byte) ([]Candidate, error) {
	var sf seedFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("parse seed YAML: %w", err)
	}

	out := make([]Candidate, 0, len(sf.Seeds))
	for _, s := range sf.Seeds {
		c := Candidate{Domain: s.Domain, Source: "seed_file"}
		if s.GitHubRepo != "" {
			c.Evidence = []types.Evidence{{
				Kind:   types.EvidenceGitHubHit,
				Detail: "github repository " + s.GitHubRepo,
				URL:    "https://github.com/" + s.GitHubRepo,
			}}
		}
		out = append(out, c)
	}
	return out, nil
}
