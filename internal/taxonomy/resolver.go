// Package taxonomy reconciles extracted skill names against the skills table,
// creating AI-sourced entries when nothing matches.
package taxonomy

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"skillsync/internal/extraction"
	"skillsync/internal/repository"

	"github.com/google/uuid"
)

// assessableLevel is the "working knowledge" floor on the extractor's 1-12
// scale: skills below it are too shallow to quiz on.
const assessableLevel = 3

type Resolver struct {
	skills repository.SkillRepository
	log    *log.Logger
}

func NewResolver(skills repository.SkillRepository, logger *log.Logger) *Resolver {
	if logger == nil {
		logger = log.Default()
	}
	return &Resolver{skills: skills, log: logger}
}

// Resolve links an extracted skill to a taxonomy row, creating one when no
// existing name matches. Matching is deliberately loose: equal ignoring case,
// or either name containing the other. Downstream weighting assumes this
// looseness; do not tighten it here.
func (r *Resolver) Resolve(ctx context.Context, skill extraction.Skill) (uuid.UUID, error) {
	name := strings.TrimSpace(skill.Name)
	if name == "" {
		return uuid.Nil, errors.New("empty skill name")
	}

	candidates, err := r.skills.FindCandidatesByName(ctx, name)
	if err != nil {
		return uuid.Nil, err
	}

	for _, c := range candidates {
		if NamesMatch(c.Name, name) {
			return c.ID, nil
		}
	}

	created, err := r.skills.CreateSkill(ctx, repository.SkillCreate{
		Name:         name,
		Description:  fmt.Sprintf("Extracted by AI. Level: %d/12", skill.Level),
		Source:       repository.SkillSourceExtractor,
		IsAssessable: skill.Level >= assessableLevel,
	})
	if err != nil {
		return uuid.Nil, err
	}

	r.log.Printf("taxonomy=resolve status=created skill=%q level=%d assessable=%v", name, skill.Level, created.IsAssessable)
	return created.ID, nil
}

// NamesMatch reports whether two skill names refer to the same taxonomy
// entry under the containment rule.
func NamesMatch(a, b string) bool {
	la := strings.ToLower(strings.TrimSpace(a))
	lb := strings.ToLower(strings.TrimSpace(b))
	if la == "" || lb == "" {
		return false
	}
	return la == lb || strings.Contains(la, lb) || strings.Contains(lb, la)
}
