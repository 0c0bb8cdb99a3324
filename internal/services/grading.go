package services

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/studyforge/studyforge-backend/internal/pkg/logger"
	"github.com/studyforge/studyforge-backend/internal/platform/llm"
	"github.com/studyforge/studyforge-backend/internal/types"
)

// feedbackMissedCap bounds how many missed questions get restated in the
// feedback prompt.
const feedbackMissedCap = 25

// AnswerSubmission is one submitted answer. QuestionIndex addresses the
// question's position; Answer is a number for multiple choice and a string
// for the short types.
type AnswerSubmission struct {
	QuestionIndex int `json:"questionIndex"`
	Answer        any `json:"answer"`
}

// GradedQuestion records the outcome for one answered question.
type GradedQuestion struct {
	QuestionIndex int
	Question      *types.ExamQuestion
	Answer        any
	Correct       bool
}

type GradeResult struct {
	Score   int
	Total   int
	Correct int
	Graded  []GradedQuestion
}

type GradingService struct {
	log    *logger.Logger
	policy *ModelPolicy
}

func NewGradingService(log *logger.Logger, policy *ModelPolicy) *GradingService {
	return &GradingService{
		log:    log.With("service", "GradingService"),
		policy: policy,
	}
}

// Grade scores submitted answers against the exam's questions. Invalid
// submissions are dropped, never errors: out-of-range indexes, non-integer
// or negative numerics for multiple choice, blank strings for the short
// types. Only the first valid submission per question index is graded, so
// the correct count can never exceed the question count. Unanswered
// questions count as incorrect. The score is the rounded percentage of
// correct answers over total questions; an exam with zero questions
// scores 0.
func (g *GradingService) Grade(questions []*types.ExamQuestion, answers []AnswerSubmission) GradeResult {
	total := len(questions)
	result := GradeResult{Total: total}
	if total == 0 {
		return result
	}

	seen := make(map[int]bool, total)
	for _, sub := range answers {
		if sub.QuestionIndex < 0 || sub.QuestionIndex >= total {
			continue
		}
		if seen[sub.QuestionIndex] {
			continue
		}
		question := questions[sub.QuestionIndex]
		correct, ok := gradeOne(question, sub.Answer)
		if !ok {
			continue
		}
		seen[sub.QuestionIndex] = true
		result.Graded = append(result.Graded, GradedQuestion{
			QuestionIndex: sub.QuestionIndex,
			Question:      question,
			Answer:        sub.Answer,
			Correct:       correct,
		})
		if correct {
			result.Correct++
		}
	}

	result.Score = int(math.Round(100 * float64(result.Correct) / float64(total)))
	return result
}

// gradeOne returns (correct, valid). An invalid answer is dropped by the
// caller without affecting the correct count.
func gradeOne(q *types.ExamQuestion, answer any) (bool, bool) {
	switch q.Type {
	case types.QuestionTypeMCQ:
		idx, ok := answerAsIndex(answer)
		if !ok {
			return false, false
		}
		return idx == q.CorrectAnswerIndex, true
	case types.QuestionTypeShortAnswer, types.QuestionTypeShortEssay:
		text, ok := answer.(string)
		if !ok || strings.TrimSpace(text) == "" {
			return false, false
		}
		options := q.OptionList()
		if q.CorrectAnswerIndex < 0 || q.CorrectAnswerIndex >= len(options) {
			return false, true
		}
		expected := strings.ToLower(strings.TrimSpace(options[q.CorrectAnswerIndex]))
		return strings.ToLower(strings.TrimSpace(text)) == expected, true
	default:
		return false, true
	}
}

// answerAsIndex accepts the numeric shapes JSON decoding produces. Floats
// with a fractional part and negatives are invalid.
func answerAsIndex(answer any) (int, bool) {
	switch v := answer.(type) {
	case int:
		if v < 0 {
			return 0, false
		}
		return v, true
	case float64:
		if v < 0 || v != math.Trunc(v) {
			return 0, false
		}
		return int(v), true
	default:
		return 0, false
	}
}

// GenerateFeedback writes a short study recommendation from the graded
// attempt. Missed questions beyond the cap are summarized by count only.
func (g *GradingService) GenerateFeedback(ctx context.Context, sel ModelSelection, examTitle string, result GradeResult) (string, error) {
	var missed []GradedQuestion
	for _, gq := range result.Graded {
		if !gq.Correct {
			missed = append(missed, gq)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Exam: %s\nScore: %d%% (%d of %d correct)\n", examTitle, result.Score, result.Correct, result.Total)
	listed := missed
	if len(listed) > feedbackMissedCap {
		listed = listed[:feedbackMissedCap]
	}
	if len(listed) > 0 {
		b.WriteString("\nMissed questions:\n")
		for _, gq := range listed {
			fmt.Fprintf(&b, "- %s\n", gq.Question.Question)
		}
	}
	if extra := len(missed) - len(listed); extra > 0 {
		fmt.Fprintf(&b, "...and %d more missed questions.\n", extra)
	}

	out, err := g.policy.Invoke(ctx, sel, "feedback", llm.Request{
		System: "You are a study coach. Write 2-4 short paragraphs of encouraging, specific feedback on this exam attempt, naming the topics the student should revisit.",
		User:   b.String(),
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}
