// Package skills discovers skill definitions from a directory tree and
// exposes them as an in-memory registry. A skill is a directory containing a
// SKILL.md document: YAML frontmatter with name and description, followed by
// the full workflow body. The registry is rebuilt from disk on every load so
// freshly authored skills are visible without a restart.
package skills

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	meta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/parser"

	"github.com/jingkaihe/skillet/pkg/logger"
)

const skillFileName = "SKILL.md"

// Skill represents one discoverable capability
type Skill struct {
	Name         string
	Description  string
	Directory    string
	Instructions string // full SKILL.md body, loaded eagerly
}

// Registry is an ordered view of all skills discovered in one scan.
// Order is directory scan order and only stable within one process run.
type Registry struct {
	ordered []*Skill
	byName  map[string]*Skill
}

// Loader scans a skills root directory
type Loader struct {
	root string
}

// NewLoader creates a loader for the given skills root directory
func NewLoader(root string) *Loader {
	return &Loader{root: root}
}

// Root returns the skills root directory
func (l *Loader) Root() string {
	return l.root
}

// Load scans the skills root and builds a fresh registry. A missing root or a
// malformed skill document is never an error; offending directories are
// skipped with a warning so one bad skill cannot take down the registry.
func (l *Loader) Load(ctx context.Context) *Registry {
	log := logger.G(ctx)
	reg := &Registry{byName: make(map[string]*Skill)}

	entries, err := os.ReadDir(l.root)
	if err != nil {
		log.WithField("dir", l.root).WithError(err).Warn("skills directory not readable")
		return reg
	}

	for _, entry := range entries {
		dir := filepath.Join(l.root, entry.Name())
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			continue
		}

		skill, err := loadSkill(filepath.Join(dir, skillFileName))
		if err != nil {
			if !os.IsNotExist(errors.Cause(err)) {
				log.WithField("dir", dir).WithError(err).Warn("skipping malformed skill")
			}
			continue
		}
		skill.Directory = dir

		if _, exists := reg.byName[skill.Name]; exists {
			log.WithField("skill", skill.Name).Warn("duplicate skill name, last scanned wins")
			for i, s := range reg.ordered {
				if s.Name == skill.Name {
					reg.ordered = append(reg.ordered[:i], reg.ordered[i+1:]...)
					break
				}
			}
		}
		reg.ordered = append(reg.ordered, skill)
		reg.byName[skill.Name] = skill
	}

	return reg
}

func loadSkill(path string) (*Skill, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read skill file")
	}

	md := goldmark.New(goldmark.WithExtensions(meta.Meta))
	var buf bytes.Buffer
	pctx := parser.NewContext()
	if err := md.Convert(content, &buf, parser.WithContext(pctx)); err != nil {
		return nil, errors.Wrap(err, "failed to parse markdown")
	}

	metaData := meta.Get(pctx)
	if metaData == nil {
		return nil, errors.New("missing frontmatter")
	}

	name, _ := metaData["name"].(string)
	description, _ := metaData["description"].(string)
	if name == "" {
		return nil, errors.New("skill name is required in frontmatter")
	}
	if description == "" {
		return nil, errors.New("skill description is required in frontmatter")
	}

	return &Skill{
		Name:         name,
		Description:  description,
		Instructions: extractBody(string(content)),
	}, nil
}

// extractBody removes the YAML frontmatter block and returns the body.
// A document without a closing delimiter is returned untouched.
func extractBody(content string) string {
	if !strings.HasPrefix(content, "---") {
		return content
	}

	lines := strings.Split(content, "\n")
	end := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			end = i
			break
		}
	}
	if end == -1 {
		return content
	}
	return strings.TrimLeft(strings.Join(lines[end+1:], "\n"), "\n")
}

// Len returns the number of registered skills
func (r *Registry) Len() int {
	return len(r.ordered)
}

// Names returns all skill names in scan order
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.ordered))
	for _, s := range r.ordered {
		names = append(names, s.Name)
	}
	return names
}

// All returns all skills in scan order
func (r *Registry) All() []*Skill {
	return r.ordered
}

// Get returns the skill with the given name
func (r *Registry) Get(name string) (*Skill, bool) {
	s, ok := r.byName[name]
	return s, ok
}

// Instructions returns the full workflow body for a known skill name. The
// second return is false when the name is unknown; callers should fall back
// to CorrectionFor to build a self-correcting message.
func (r *Registry) Instructions(name string) (string, bool) {
	s, ok := r.byName[name]
	if !ok {
		return "", false
	}
	return s.Instructions, true
}

// CorrectionFor renders a "not found" message listing every known name so
// the decision model (or a human) can self-correct.
func (r *Registry) CorrectionFor(name string) string {
	known := r.Names()
	sort.Strings(known)
	return fmt.Sprintf("Skill '%s' not found. Available skills: %s", name, strings.Join(known, ", "))
}

// FormatForPrompt renders every skill's name and description as a compact
// block for injection into the decision model's system prompt.
func (r *Registry) FormatForPrompt() string {
	if len(r.ordered) == 0 {
		return "No skills available."
	}

	var sb strings.Builder
	sb.WriteString("## Available Skills\n")
	for _, s := range r.ordered {
		sb.WriteString(fmt.Sprintf("\n### Skill: %s\n", s.Name))
		sb.WriteString(fmt.Sprintf("**Description**: %s\n", s.Description))
	}
	return sb.String()
}

// FormatListing renders a numbered human-facing Markdown listing of every
// skill. The list-skills fast path and the list_skills tool both use this so
// their output stays equivalent.
func (r *Registry) FormatListing() string {
	if len(r.ordered) == 0 {
		return "No skills are currently loaded."
	}

	var sb strings.Builder
	sb.WriteString("## Available Skills\n")
	for i, s := range r.ordered {
		desc := s.Description
		if idx := strings.Index(desc, ". "); idx > 0 {
			desc = desc[:idx]
		}
		sb.WriteString(fmt.Sprintf("\n### %d. %s\n%s.\n", i+1, displayName(s.Name), strings.TrimSuffix(desc, ".")))
	}
	sb.WriteString("\n---\nDescribe what you need and the right skill will be used automatically.\n")
	return sb.String()
}

func displayName(slug string) string {
	words := strings.Split(strings.ReplaceAll(slug, "-", " "), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
