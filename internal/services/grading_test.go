package services

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/studyforge/studyforge-backend/internal/types"
	"gorm.io/datatypes"
)

func mcqQuestion(t *testing.T, correctIdx int) *types.ExamQuestion {
	t.Helper()
	options, err := json.Marshal([]string{"A", "B", "C", "D"})
	if err != nil {
		t.Fatalf("marshal options: %v", err)
	}
	return &types.ExamQuestion{
		Question:           "pick one",
		Options:            datatypes.JSON(options),
		CorrectAnswerIndex: correctIdx,
		Type:               types.QuestionTypeMCQ,
	}
}

func shortQuestion(t *testing.T, qt types.QuestionType, answers []string, correctIdx int) *types.ExamQuestion {
	t.Helper()
	options, err := json.Marshal(answers)
	if err != nil {
		t.Fatalf("marshal options: %v", err)
	}
	return &types.ExamQuestion{
		Question:           "state it",
		Options:            datatypes.JSON(options),
		CorrectAnswerIndex: correctIdx,
		Type:               qt,
	}
}

func newGrader(t *testing.T) *GradingService {
	t.Helper()
	return NewGradingService(testLogger(t), nil)
}

func TestGradeAllCorrectButOne(t *testing.T) {
	g := newGrader(t)
	questions := []*types.ExamQuestion{
		mcqQuestion(t, 0),
		mcqQuestion(t, 1),
		mcqQuestion(t, 2),
		mcqQuestion(t, 3),
	}
	answers := []AnswerSubmission{
		{QuestionIndex: 0, Answer: float64(0)},
		{QuestionIndex: 1, Answer: float64(1)},
		{QuestionIndex: 2, Answer: float64(2)},
		{QuestionIndex: 3, Answer: float64(0)},
	}
	result := g.Grade(questions, answers)
	if result.Correct != 3 {
		t.Fatalf("expected 3 correct, got %d", result.Correct)
	}
	if result.Score != 75 {
		t.Fatalf("expected score 75, got %d", result.Score)
	}
}

func TestGradeFiveQuestionExam(t *testing.T) {
	g := newGrader(t)
	questions := []*types.ExamQuestion{
		mcqQuestion(t, 0),
		mcqQuestion(t, 1),
		mcqQuestion(t, 2),
		mcqQuestion(t, 3),
		mcqQuestion(t, 0),
	}
	answers := []AnswerSubmission{
		{QuestionIndex: 0, Answer: float64(0)},
		{QuestionIndex: 1, Answer: float64(1)},
		{QuestionIndex: 2, Answer: float64(2)},
		{QuestionIndex: 3, Answer: float64(1)},
		{QuestionIndex: 4, Answer: float64(2)},
	}
	result := g.Grade(questions, answers)
	if result.Correct != 3 || result.Score != 60 {
		t.Fatalf("expected 3 correct score 60, got %d correct score %d", result.Correct, result.Score)
	}
}

func TestGradeDuplicateSubmissionsCountOnce(t *testing.T) {
	g := newGrader(t)
	questions := []*types.ExamQuestion{
		mcqQuestion(t, 0),
		mcqQuestion(t, 1),
	}
	answers := []AnswerSubmission{
		{QuestionIndex: 0, Answer: float64(0)},
		{QuestionIndex: 0, Answer: float64(0)},
		{QuestionIndex: 0, Answer: float64(0)},
	}
	result := g.Grade(questions, answers)
	if result.Correct != 1 {
		t.Fatalf("expected duplicate answers to count once, got %d correct", result.Correct)
	}
	if result.Score > 100 {
		t.Fatalf("score exceeded 100: %d", result.Score)
	}
	if result.Score != 50 {
		t.Fatalf("expected score 50, got %d", result.Score)
	}
	if len(result.Graded) != 1 {
		t.Fatalf("expected 1 graded entry, got %d", len(result.Graded))
	}
}

func TestGradeFirstValidSubmissionWins(t *testing.T) {
	g := newGrader(t)
	questions := []*types.ExamQuestion{mcqQuestion(t, 2)}
	answers := []AnswerSubmission{
		{QuestionIndex: 0, Answer: "not a number"},
		{QuestionIndex: 0, Answer: float64(1)},
		{QuestionIndex: 0, Answer: float64(2)},
	}
	result := g.Grade(questions, answers)
	if result.Correct != 0 || result.Score != 0 {
		t.Fatalf("expected the first valid answer to stand, got %d correct score %d", result.Correct, result.Score)
	}
}

func TestGradeDropsInvalidAnswers(t *testing.T) {
	g := newGrader(t)
	questions := []*types.ExamQuestion{
		mcqQuestion(t, 1),
		mcqQuestion(t, 2),
		shortQuestion(t, types.QuestionTypeShortAnswer, []string{"mitochondria"}, 0),
	}
	answers := []AnswerSubmission{
		{QuestionIndex: 3, Answer: float64(1)},   // index == total, dropped
		{QuestionIndex: -1, Answer: float64(1)},  // negative index, dropped
		{QuestionIndex: 0, Answer: float64(1.5)}, // non-integer, dropped
		{QuestionIndex: 0, Answer: float64(-2)},  // negative option, dropped
		{QuestionIndex: 1, Answer: float64(2)},   // valid, correct
		{QuestionIndex: 2, Answer: "   "},        // blank, dropped
	}
	result := g.Grade(questions, answers)
	if len(result.Graded) != 1 {
		t.Fatalf("expected 1 graded answer, got %d", len(result.Graded))
	}
	if result.Correct != 1 {
		t.Fatalf("expected 1 correct, got %d", result.Correct)
	}
	// 1 of 3 rounds to 33.
	if result.Score != 33 {
		t.Fatalf("expected score 33, got %d", result.Score)
	}
}

func TestGradeShortAnswerNormalizes(t *testing.T) {
	g := newGrader(t)
	questions := []*types.ExamQuestion{
		shortQuestion(t, types.QuestionTypeShortAnswer, []string{"Mitochondria", "powerhouse"}, 0),
		shortQuestion(t, types.QuestionTypeShortEssay, []string{"Photosynthesis"}, 0),
	}
	answers := []AnswerSubmission{
		{QuestionIndex: 0, Answer: "  mitochondria  "},
		{QuestionIndex: 1, Answer: "PHOTOSYNTHESIS"},
	}
	result := g.Grade(questions, answers)
	if result.Correct != 2 {
		t.Fatalf("expected 2 correct, got %d", result.Correct)
	}
	if result.Score != 100 {
		t.Fatalf("expected score 100, got %d", result.Score)
	}
}

func TestGradeNumericAnswerToShortQuestionIncorrectNotDropped(t *testing.T) {
	g := newGrader(t)
	questions := []*types.ExamQuestion{
		shortQuestion(t, types.QuestionTypeShortAnswer, []string{"four"}, 0),
	}
	result := g.Grade(questions, []AnswerSubmission{{QuestionIndex: 0, Answer: float64(4)}})
	if len(result.Graded) != 0 {
		t.Fatalf("non-string answer to short question should be dropped, got %d graded", len(result.Graded))
	}
	if result.Score != 0 {
		t.Fatalf("expected score 0, got %d", result.Score)
	}
}

func TestGradeZeroQuestions(t *testing.T) {
	g := newGrader(t)
	result := g.Grade(nil, []AnswerSubmission{{QuestionIndex: 0, Answer: float64(0)}})
	if result.Score != 0 {
		t.Fatalf("expected score 0 for zero questions, got %d", result.Score)
	}
	if result.Total != 0 || result.Correct != 0 {
		t.Fatalf("unexpected totals: %+v", result)
	}
}

func TestGradeDeterministic(t *testing.T) {
	g := newGrader(t)
	questions := []*types.ExamQuestion{
		mcqQuestion(t, 0),
		mcqQuestion(t, 3),
		shortQuestion(t, types.QuestionTypeShortAnswer, []string{"osmosis"}, 0),
	}
	answers := []AnswerSubmission{
		{QuestionIndex: 0, Answer: float64(0)},
		{QuestionIndex: 1, Answer: float64(1)},
		{QuestionIndex: 2, Answer: "osmosis"},
	}
	first := g.Grade(questions, answers)
	second := g.Grade(questions, answers)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("grading not deterministic: %+v vs %+v", first, second)
	}
}
