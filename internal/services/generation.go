package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/studyforge/studyforge-backend/internal/pkg/apperr"
	"github.com/studyforge/studyforge-backend/internal/pkg/logger"
	"github.com/studyforge/studyforge-backend/internal/platform/llm"
	"github.com/studyforge/studyforge-backend/internal/types"
)

// maxPromptChars is the fixed character budget callers truncate source text
// to before submitting it to any generation operation.
const maxPromptChars = 48000

// TruncateForPrompt cuts text to the prompt character budget on a rune
// boundary.
func TruncateForPrompt(text string) string {
	runes := []rune(text)
	if len(runes) <= maxPromptChars {
		return text
	}
	return string(runes[:maxPromptChars])
}

type SummaryLength string

const (
	SummaryLengthShort  SummaryLength = "short"
	SummaryLengthMedium SummaryLength = "medium"
	SummaryLengthLong   SummaryLength = "long"
)

type SummaryResult struct {
	SummaryText string `json:"summary"`
	Title       string `json:"title"`
	Subject     string `json:"subject"`
}

type GeneratedFlashcard struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type GeneratedQuestion struct {
	Question           string             `json:"question"`
	Options            []string           `json:"options"`
	CorrectAnswerIndex int                `json:"correct_answer_index"`
	Explanation        string             `json:"explanation"`
	Type               types.QuestionType `json:"type"`
}

type GenerationService struct {
	log    *logger.Logger
	policy *ModelPolicy
}

func NewGenerationService(log *logger.Logger, policy *ModelPolicy) *GenerationService {
	return &GenerationService{
		log:    log.With("service", "GenerationService"),
		policy: policy,
	}
}

func summaryWordTarget(length SummaryLength) (int, string) {
	switch length {
	case SummaryLengthShort:
		return 150, "Write a tight overview hitting only the core ideas."
	case SummaryLengthLong:
		return 800, "Write a thorough walkthrough covering every major section, with the key supporting details and examples."
	default:
		return 400, "Write a balanced summary covering all major topics with their essential details."
	}
}

// GenerateSummary produces the summary text plus a title and subject
// inferred from the material.
func (g *GenerationService) GenerateSummary(ctx context.Context, sel ModelSelection, text string, length SummaryLength) (*SummaryResult, error) {
	words, style := summaryWordTarget(length)
	system := "You are a study assistant that writes accurate, well-structured summaries of course material. Respond with a JSON object containing exactly these keys: \"summary\", \"title\", \"subject\"."
	user := fmt.Sprintf("%s Target length: about %d words. Also infer a concise title and the academic subject of the material.\n\nMaterial:\n%s", style, words, text)

	out, err := g.policy.Invoke(ctx, sel, "summary", llm.Request{
		System:   system,
		User:     user,
		JSONMode: true,
	})
	if err != nil {
		return nil, err
	}

	var result SummaryResult
	if err := json.Unmarshal([]byte(stripCodeFence(out)), &result); err != nil {
		return nil, apperr.Parse(err, "summary output is not the expected object")
	}
	if strings.TrimSpace(result.SummaryText) == "" {
		return nil, apperr.Parse(fmt.Errorf("missing summary key"), "summary output is not the expected object")
	}
	return &result, nil
}

// GenerateFlashcards returns at most count ordered question/answer pairs.
// Output that cannot be parsed degrades to a single generic card; this
// stage never fails its caller on malformed model output.
func (g *GenerationService) GenerateFlashcards(ctx context.Context, sel ModelSelection, text string, count int) ([]GeneratedFlashcard, error) {
	if count <= 0 {
		count = 10
	}
	system := "You are a study assistant that writes flashcards. Respond with a JSON object of the form {\"flashcards\": [{\"question\": \"...\", \"answer\": \"...\"}]} and nothing else."
	user := fmt.Sprintf("Write %d flashcards covering the most important facts and concepts in this material. Questions must be answerable from the material alone.\n\nMaterial:\n%s", count, text)

	out, err := g.policy.Invoke(ctx, sel, "flashcards", llm.Request{
		System:   system,
		User:     user,
		JSONMode: true,
	})
	if err != nil {
		return nil, err
	}

	cards, parseErr := parseFlashcards(out)
	if parseErr != nil {
		g.log.Warn("Flashcard output unparseable, substituting fallback card", "error", parseErr)
		return []GeneratedFlashcard{{
			Question: "What is the main topic of this material?",
			Answer:   "Review the source material to identify its main topic.",
		}}, nil
	}
	if len(cards) > count {
		cards = cards[:count]
	}
	return cards, nil
}

// parseFlashcards accepts the two documented shapes: a bare array, or an
// object wrapping the array under "flashcards" (or "cards"). Anything else
// is a parse failure; no heuristic key discovery.
func parseFlashcards(out string) ([]GeneratedFlashcard, error) {
	raw := stripCodeFence(out)

	var bare []GeneratedFlashcard
	if err := json.Unmarshal([]byte(raw), &bare); err == nil {
		return validFlashcards(bare)
	}

	var wrapped struct {
		Flashcards []GeneratedFlashcard `json:"flashcards"`
		Cards      []GeneratedFlashcard `json:"cards"`
	}
	if err := json.Unmarshal([]byte(raw), &wrapped); err != nil {
		return nil, fmt.Errorf("flashcard output is neither an array nor a known wrapper: %w", err)
	}
	if len(wrapped.Flashcards) > 0 {
		return validFlashcards(wrapped.Flashcards)
	}
	if len(wrapped.Cards) > 0 {
		return validFlashcards(wrapped.Cards)
	}
	return nil, fmt.Errorf("flashcard output contains no cards")
}

func validFlashcards(cards []GeneratedFlashcard) ([]GeneratedFlashcard, error) {
	out := make([]GeneratedFlashcard, 0, len(cards))
	for _, c := range cards {
		if strings.TrimSpace(c.Question) == "" || strings.TrimSpace(c.Answer) == "" {
			continue
		}
		out = append(out, c)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("flashcard output contains no usable cards")
	}
	return out, nil
}

// GenerateQuestions produces count questions split as evenly as possible
// across the requested types: base count per type plus one extra for the
// first (count % len(types)) types in request order. Each type is generated
// independently and the results are concatenated in request order; the
// caller re-indexes the concatenation as the canonical question order.
func (g *GenerationService) GenerateQuestions(ctx context.Context, sel ModelSelection, text string, count int, questionTypes []types.QuestionType, difficulty string) ([]GeneratedQuestion, error) {
	if count <= 0 {
		return nil, apperr.Validation("question count must be positive")
	}
	if len(questionTypes) == 0 {
		questionTypes = []types.QuestionType{types.QuestionTypeMCQ}
	}
	for _, qt := range questionTypes {
		switch qt {
		case types.QuestionTypeMCQ, types.QuestionTypeShortAnswer, types.QuestionTypeShortEssay:
		default:
			return nil, apperr.Validation("unknown question type %q", qt)
		}
	}

	base := count / len(questionTypes)
	remainder := count % len(questionTypes)

	all := make([]GeneratedQuestion, 0, count)
	for i, qt := range questionTypes {
		n := base
		if i < remainder {
			n++
		}
		if n == 0 {
			continue
		}
		batch, err := g.generateQuestionBatch(ctx, sel, text, n, qt, difficulty)
		if err != nil {
			return nil, err
		}
		all = append(all, batch...)
	}
	return all, nil
}

func questionTypeInstruction(qt types.QuestionType) string {
	switch qt {
	case types.QuestionTypeMCQ:
		return "Each question is multiple choice with exactly 4 options; correct_answer_index is the 0-based index of the right option."
	case types.QuestionTypeShortAnswer:
		return "Each question expects a short factual answer. Put the canonical answer and up to 3 acceptable paraphrases in options, with correct_answer_index pointing at the canonical one."
	default:
		return "Each question expects a short essay answer. Put the canonical model answer in options[0] and set correct_answer_index to 0."
	}
}

func (g *GenerationService) generateQuestionBatch(ctx context.Context, sel ModelSelection, text string, n int, qt types.QuestionType, difficulty string) ([]GeneratedQuestion, error) {
	system := "You are a study assistant that writes exam questions. Respond with a JSON object of the form {\"questions\": [{\"question\": \"...\", \"options\": [\"...\"], \"correct_answer_index\": 0, \"explanation\": \"...\", \"type\": \"...\"}]} and nothing else."
	diff := strings.TrimSpace(difficulty)
	if diff == "" {
		diff = "medium"
	}
	user := fmt.Sprintf("Write %d questions of type %q at %s difficulty, answerable from the material alone. %s Include a one-sentence explanation per question.\n\nMaterial:\n%s",
		n, qt, diff, questionTypeInstruction(qt), text)

	out, err := g.policy.Invoke(ctx, sel, "questions", llm.Request{
		System:   system,
		User:     user,
		JSONMode: true,
	})
	if err != nil {
		return nil, err
	}

	var wrapped struct {
		Questions []GeneratedQuestion `json:"questions"`
	}
	if err := json.Unmarshal([]byte(stripCodeFence(out)), &wrapped); err != nil {
		return nil, apperr.Parse(err, "%s question output is not the expected object", qt)
	}
	if len(wrapped.Questions) == 0 {
		return nil, apperr.Parse(fmt.Errorf("no questions in output"), "%s question output is not the expected object", qt)
	}

	questions := wrapped.Questions
	if len(questions) > n {
		questions = questions[:n]
	}
	for i := range questions {
		questions[i].Type = qt
		if err := validateGeneratedQuestion(&questions[i]); err != nil {
			return nil, apperr.Parse(err, "%s question %d failed validation", qt, i)
		}
	}
	return questions, nil
}

func validateGeneratedQuestion(q *GeneratedQuestion) error {
	if strings.TrimSpace(q.Question) == "" {
		return fmt.Errorf("empty question text")
	}
	switch q.Type {
	case types.QuestionTypeMCQ:
		if len(q.Options) != 4 {
			return fmt.Errorf("mcq needs 4 options, got %d", len(q.Options))
		}
	default:
		if len(q.Options) == 0 {
			return fmt.Errorf("%s needs at least one canonical answer option", q.Type)
		}
	}
	if q.CorrectAnswerIndex < 0 || q.CorrectAnswerIndex >= len(q.Options) {
		return fmt.Errorf("correct_answer_index %d out of range", q.CorrectAnswerIndex)
	}
	return nil
}

// GenerateSolution answers an assignment from its labeled attachment texts
// and optional instructions. It never generates from an empty prompt.
func (g *GenerationService) GenerateSolution(ctx context.Context, sel ModelSelection, title, instructions string, blocks []ContentBlock) (string, error) {
	var material strings.Builder
	for _, block := range blocks {
		if strings.TrimSpace(block.Text) == "" {
			continue
		}
		material.WriteString(fmt.Sprintf("=== %s ===\n%s\n\n", block.Name, block.Text))
	}
	if material.Len() == 0 && strings.TrimSpace(instructions) == "" {
		return "", apperr.Validation("assignment has no extractable content and no instructions")
	}

	system := "You are a study assistant that writes complete, well-reasoned assignment solutions. Show your working and structure the answer with headings where it helps."
	var user strings.Builder
	user.WriteString("Assignment: " + title + "\n")
	if strings.TrimSpace(instructions) != "" {
		user.WriteString("Instructions: " + instructions + "\n")
	}
	if material.Len() > 0 {
		user.WriteString("\nAttached material:\n" + TruncateForPrompt(material.String()))
	}

	out, err := g.policy.Invoke(ctx, sel, "solution", llm.Request{
		System: system,
		User:   user.String(),
	})
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(out) == "" {
		return "", apperr.Parse(fmt.Errorf("empty solution"), "solution output is empty")
	}
	return out, nil
}

// stripCodeFence unwraps ```json ... ``` fencing some models emit even in
// JSON mode.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 {
		s = s[idx+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
