package analysis

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/visiblelabs/brandscope/internal/domain"
)

// GenerateRequest describes the company a prompt set is generated for.
type GenerateRequest struct {
	EntityName  string   `json:"entityName"`
	Sector      string   `json:"sector"`
	Description string   `json:"description"`
	Products    string   `json:"products"`
	Competitors []string `json:"competitors"`
	Locale      string   `json:"locale"`
}

// PromptSource produces the probe questions for a run when the caller
// supplies none.
type PromptSource struct {
	generator domain.AnswerProvider // nil means template fallback only
	max       int
}

// NewPromptSource builds a source backed by the given provider. A nil
// provider is allowed; generation then falls back to the default
// templates.
func NewPromptSource(generator domain.AnswerProvider, max int) *PromptSource {
	if max <= 0 {
		max = 4
	}
	return &PromptSource{generator: generator, max: max}
}

// Wrap turns caller-supplied prompt texts into custom-category prompts,
// preserving order. IDs are positional so clients can correlate.
func Wrap(texts []string) []domain.Prompt {
	prompts := make([]domain.Prompt, 0, len(texts))
	for i, text := range texts {
		prompts = append(prompts, domain.Prompt{
			ID:       fmt.Sprintf("custom-%d", i),
			Text:     strings.TrimSpace(text),
			Category: domain.PromptCustom,
		})
	}
	return prompts
}

// Generate produces at most max generated prompts for the company. When no
// generator provider is available, or generation yields nothing usable,
// the four default templates are returned instead.
func (s *PromptSource) Generate(ctx context.Context, req GenerateRequest) ([]domain.Prompt, error) {
	texts, err := s.GenerateTexts(ctx, req)
	if err != nil {
		return nil, err
	}
	prompts := make([]domain.Prompt, 0, len(texts))
	for _, text := range texts {
		prompts = append(prompts, domain.Prompt{
			ID:       uuid.New().String(),
			Text:     text,
			Category: domain.PromptGenerated,
		})
	}
	return prompts, nil
}

// GenerateTexts returns the raw generated question list, newline-split and
// blank-filtered, capped at max.
func (s *PromptSource) GenerateTexts(ctx context.Context, req GenerateRequest) ([]string, error) {
	if s.generator == nil {
		return DefaultPrompts(req.Sector), nil
	}

	answer, err := s.generator.Answer(ctx, generationPrompt(req), domain.AnswerOptions{})
	if err != nil {
		return nil, fmt.Errorf("prompt generation failed: %w", err)
	}

	questions := splitQuestions(answer.Text, s.max)
	if len(questions) == 0 {
		return DefaultPrompts(req.Sector), nil
	}
	return questions, nil
}

// DefaultPrompts is the template fallback used when generation is
// unavailable: four generic probe questions parameterized by service type.
func DefaultPrompts(sector string) []string {
	serviceType := ServiceType(sector)
	return []string{
		fmt.Sprintf("What is the best %s in %d?", serviceType, time.Now().Year()),
		fmt.Sprintf("What are the top startups building %s solutions?", serviceType),
		fmt.Sprintf("Which %s is the most popular right now?", serviceType),
		fmt.Sprintf("Which %s would you recommend?", serviceType),
	}
}

// ServiceType maps an industry label onto the noun used in templated
// questions.
func ServiceType(sector string) string {
	switch strings.ToLower(strings.TrimSpace(sector)) {
	case "web scraping":
		return "web scraping tool"
	case "ai", "artificial intelligence":
		return "AI platform"
	case "deployment":
		return "deployment platform"
	case "e-commerce platform":
		return "e-commerce platform"
	case "developer tools":
		return "developer tool"
	case "marketplace":
		return "marketplace"
	case "":
		return "software product"
	default:
		return strings.ToLower(sector) + " product"
	}
}

// generationPrompt builds the instruction sent to the generator provider.
// Questions must reference the company generically so the providers under
// test are not led toward the brand name.
func generationPrompt(req GenerateRequest) string {
	var b strings.Builder
	if req.Locale == "fr" {
		b.WriteString("Génère 4 questions concrètes et naturelles en français, comme de vraies requêtes d'utilisateur, pour analyser la présence en ligne et la concurrence de l'entreprise suivante :\n\n")
		fmt.Fprintf(&b, "- Nom : %s\n- Secteur : %s\n- Description : %s\n- Produits/services principaux : %s\n- Concurrents : %s\n\n",
			req.EntityName, req.Sector, req.Description, req.Products, strings.Join(req.Competitors, ", "))
		b.WriteString("Ne mentionne jamais directement le nom de la marque, de l'entreprise ou des concurrents ; utilise des références génériques (« cette entreprise », « ce fournisseur », « leurs produits »). Ne rends que la liste des questions, une par ligne.")
		return b.String()
	}
	b.WriteString("Generate 4 concrete, natural questions in English, phrased like real user queries, for analyzing the online presence and competition of the following company:\n\n")
	fmt.Fprintf(&b, "- Name: %s\n- Sector: %s\n- Description: %s\n- Main products/services: %s\n- Competitors: %s\n\n",
		req.EntityName, req.Sector, req.Description, req.Products, strings.Join(req.Competitors, ", "))
	b.WriteString("Do NOT mention the company name, brand, or competitors directly; use generic references (\"this company\", \"this provider\", \"their products\"). Only output the list of questions, one per line.")
	return b.String()
}

var leadingMarkerRe = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)\]:])\s*`)

// splitQuestions newline-splits raw generator output, strips list markers,
// filters blank lines, and caps the result.
func splitQuestions(raw string, max int) []string {
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		line = leadingMarkerRe.ReplaceAllString(line, "")
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out = append(out, line)
		if len(out) == max {
			break
		}
	}
	return out
}
