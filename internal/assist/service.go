package assist

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/piyushdolas8/skillswap/internal/profile"
	"github.com/piyushdolas8/skillswap/shared/logger"
)

const (
	defaultTimeout  = 20 * time.Second
	maxRoadmapSteps = 8
)

// Service turns generator output into values the UI can show directly. Its
// methods never fail: any backend or parse problem yields a static default.
type Service struct {
	gen     Generator
	timeout time.Duration
}

// NewService returns a Service on gen. A nil gen always yields defaults.
func NewService(gen Generator) *Service {
	return &Service{gen: gen, timeout: defaultTimeout}
}

// MatchExplanation describes in a few sentences why a and b are a good pair.
func (s *Service) MatchExplanation(ctx context.Context, a, b profile.Profile) string {
	fallback := defaultExplanation(a, b)
	if s.gen == nil {
		return fallback
	}

	prompt := fmt.Sprintf(
		"Explain in two sentences why these two people should swap skills.\n"+
			"%s teaches %s and wants to learn %s.\n"+
			"%s teaches %s and wants to learn %s.",
		a.DisplayName, list(a.TeachSkills), list(a.LearnSkills),
		b.DisplayName, list(b.TeachSkills), list(b.LearnSkills),
	)
	out, err := s.generate(ctx, prompt, Options{MaxTokens: 200})
	if err != nil {
		logger.Warnf("assist: match explanation: %v", err)
		return fallback
	}
	out = strings.TrimSpace(StripFences(out))
	if out == "" {
		return fallback
	}
	return out
}

// Roadmap returns ordered learning steps for skill.
func (s *Service) Roadmap(ctx context.Context, skill string) []string {
	skill = strings.TrimSpace(skill)
	fallback := defaultRoadmap(skill)
	if s.gen == nil || skill == "" {
		return fallback
	}

	prompt := fmt.Sprintf(
		"Create a learning roadmap for %q with at most %d steps. "+
			`Respond with a JSON object of the form {"steps": ["..."]}.`,
		skill, maxRoadmapSteps,
	)
	out, err := s.generate(ctx, prompt, Options{JSON: true, MaxTokens: 500})
	if err != nil {
		logger.Warnf("assist: roadmap: %v", err)
		return fallback
	}
	steps, ok := parseSteps(StripFences(out))
	if !ok {
		logger.Debugf("assist: unparseable roadmap %q", out)
		return fallback
	}
	return steps
}

func (s *Service) generate(ctx context.Context, prompt string, opts Options) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.gen.GenerateText(ctx, prompt, opts)
}

// StripFences removes a surrounding markdown code fence, with or without a
// language tag.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = ""
	}
	s = strings.TrimSpace(s)
	return strings.TrimSpace(strings.TrimSuffix(s, "```"))
}

// parseSteps accepts {"steps": [...]} or a bare array of strings.
func parseSteps(raw string) ([]string, bool) {
	var wrapped struct {
		Steps []string `json:"steps"`
	}
	var steps []string
	if err := json.Unmarshal([]byte(raw), &wrapped); err == nil && len(wrapped.Steps) > 0 {
		steps = wrapped.Steps
	} else if err := json.Unmarshal([]byte(raw), &steps); err != nil {
		return nil, false
	}

	out := make([]string, 0, len(steps))
	for _, step := range steps {
		if step = strings.TrimSpace(step); step != "" {
			out = append(out, step)
		}
		if len(out) == maxRoadmapSteps {
			break
		}
	}
	return out, len(out) > 0
}

func defaultExplanation(a, b profile.Profile) string {
	aGives := overlap(a.TeachSkills, b.LearnSkills)
	bGives := overlap(b.TeachSkills, a.LearnSkills)
	switch {
	case len(aGives) > 0 && len(bGives) > 0:
		return fmt.Sprintf("%s can teach %s %s, and %s can teach %s %s in return.",
			a.DisplayName, b.DisplayName, list(aGives), b.DisplayName, a.DisplayName, list(bGives))
	case len(aGives) > 0:
		return fmt.Sprintf("%s can help %s learn %s.", a.DisplayName, b.DisplayName, list(aGives))
	case len(bGives) > 0:
		return fmt.Sprintf("%s can help %s learn %s.", b.DisplayName, a.DisplayName, list(bGives))
	default:
		return "You both bring different skills to the table. Start by sharing what you each want to learn."
	}
}

func defaultRoadmap(skill string) []string {
	if skill == "" {
		skill = "the skill"
	}
	return []string{
		"Learn the core concepts of " + skill,
		"Work through small guided exercises",
		"Build a small project using " + skill,
		"Review the project with your partner",
		"Pick an advanced topic to explore next",
	}
}

func overlap(have, want []string) []string {
	wanted := make(map[string]bool, len(want))
	for _, w := range want {
		wanted[strings.ToLower(w)] = true
	}
	var out []string
	for _, h := range have {
		if wanted[strings.ToLower(h)] {
			out = append(out, h)
		}
	}
	return out
}

func list(skills []string) string {
	if len(skills) == 0 {
		return "nothing listed"
	}
	return strings.Join(skills, ", ")
}
