package quiz

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/learnquest-backend/internal/platform/logger"
)

//go:embed bank.yaml
var embeddedBank []byte

// Topic is one entry of the fallback vocabulary.
type Topic struct {
	Name      string     `yaml:"name"`
	Keywords  []string   `yaml:"keywords"`
	Templates []Question `yaml:"templates"`
}

// Bank is the local fallback table. Every template is validated when the
// bank is built, so a question drawn from it always has a reachable answer.
type Bank struct {
	Topics  []Topic
	Default Topic
}

type bankFile struct {
	Default Topic   `yaml:"default"`
	Topics  []Topic `yaml:"topics"`
}

// NewBank validates topics and the default topic. Topics with no templates
// borrow the default templates.
func NewBank(topics []Topic, def Topic) (*Bank, error) {
	if strings.TrimSpace(def.Name) == "" {
		return nil, fmt.Errorf("default topic: name required")
	}
	if len(def.Templates) == 0 {
		return nil, fmt.Errorf("default topic: at least one template required")
	}
	if err := validateTemplates(def); err != nil {
		return nil, err
	}

	b := &Bank{Default: def, Topics: make([]Topic, 0, len(topics))}
	seen := map[string]bool{}
	for i, t := range topics {
		if strings.TrimSpace(t.Name) == "" {
			return nil, fmt.Errorf("topic %d: name required", i)
		}
		key := strings.ToLower(t.Name)
		if seen[key] {
			return nil, fmt.Errorf("topic %q: duplicate", t.Name)
		}
		seen[key] = true
		if len(t.Keywords) == 0 {
			return nil, fmt.Errorf("topic %q: at least one keyword required", t.Name)
		}
		for _, kw := range t.Keywords {
			if normalize(kw) == "" {
				return nil, fmt.Errorf("topic %q: blank keyword", t.Name)
			}
		}
		if len(t.Templates) == 0 {
			t.Templates = def.Templates
		}
		if err := validateTemplates(t); err != nil {
			return nil, err
		}
		b.Topics = append(b.Topics, t)
	}
	return b, nil
}

func validateTemplates(t Topic) error {
	for i, q := range t.Templates {
		if err := q.withTopic(t.Name).Validate(); err != nil {
			return fmt.Errorf("topic %q template %d: %w", t.Name, i, err)
		}
	}
	return nil
}

// ParseBank decodes a YAML bank document and validates it.
func ParseBank(data []byte) (*Bank, error) {
	var f bankFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode bank: %w", err)
	}
	return NewBank(f.Topics, f.Default)
}

// DefaultBank returns the bank compiled into the binary.
func DefaultBank() *Bank {
	b, err := ParseBank(embeddedBank)
	if err != nil {
		panic(fmt.Sprintf("embedded quiz bank: %v", err))
	}
	return b
}

// LoadBank reads the bank at path, or the embedded bank when path is empty.
// A missing or invalid file is logged and the embedded bank is used instead.
func LoadBank(log *logger.Logger, path string) *Bank {
	path = strings.TrimSpace(path)
	if path == "" {
		return DefaultBank()
	}
	data, err := os.ReadFile(path)
	if err == nil {
		var b *Bank
		if b, err = ParseBank(data); err == nil {
			log.Info("Loaded quiz bank", "path", path, "topics", len(b.Topics))
			return b
		}
	}
	log.Warn("Quiz bank override rejected, using embedded bank", "path", path, "error", err)
	return DefaultBank()
}
