package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"alfredoptarigan/ai-interviewer/internal/models"
)

func TestClassifyUtterance(t *testing.T) {
	tests := []struct {
		text string
		want UtteranceKind
	}{
		{"Great answer. What databases have you operated in production?", UtteranceMainQuestion},
		{"Can you elaborate on how you sharded it?", UtteranceFollowUp},
		{"Interesting. TELL ME MORE about the migration?", UtteranceFollowUp},
		{"Could you explain the retry logic?", UtteranceFollowUp},
		{"What do you mean by eventual consistency?", UtteranceFollowUp},
		{"Thanks, that is clear.", UtteranceStatement},
		{"Can you elaborate on that.", UtteranceStatement},
		{"", UtteranceStatement},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyUtterance(tt.text), tt.text)
	}
}

func TestInitialProgress(t *testing.T) {
	p := InitialProgress()
	assert.Equal(t, 1, p.MainQuestionsAsked)
	assert.Equal(t, 0, p.FollowUpQuestionsAsked)
	assert.Equal(t, models.QuestionTechnical, p.CurrentQuestionType)
	assert.Equal(t, models.PhaseStarted, p.InterviewPhase)
}

func TestUpdateProgress_MainQuestionAdvancesSlot(t *testing.T) {
	cfg := DefaultInterviewConfig()
	p := InitialProgress()
	p.FollowUpQuestionsAsked = 2

	p = UpdateProgress(p, cfg, "How did you structure your last project?")
	assert.Equal(t, 2, p.MainQuestionsAsked)
	assert.Equal(t, 0, p.FollowUpQuestionsAsked)
	assert.Equal(t, models.QuestionExperience, p.CurrentQuestionType)
	assert.Equal(t, models.PhaseInProgress, p.InterviewPhase)

	p = UpdateProgress(p, cfg, "What was the hardest bug you fixed?")
	assert.Equal(t, models.QuestionTechnicalChallenges, p.CurrentQuestionType)

	p = UpdateProgress(p, cfg, "How do you handle code review disagreements?")
	assert.Equal(t, models.QuestionTeamCollaboration, p.CurrentQuestionType)

	p = UpdateProgress(p, cfg, "Tell me about a time you missed a deadline?")
	assert.Equal(t, 5, p.MainQuestionsAsked)
	assert.Equal(t, models.QuestionBehavioral, p.CurrentQuestionType)
	assert.Equal(t, models.PhaseConcluding, p.InterviewPhase)
}

func TestUpdateProgress_FollowUpAndStatement(t *testing.T) {
	cfg := DefaultInterviewConfig()
	p := InitialProgress()

	p = UpdateProgress(p, cfg, "Can you elaborate on the caching layer?")
	assert.Equal(t, 1, p.MainQuestionsAsked)
	assert.Equal(t, 1, p.FollowUpQuestionsAsked)
	assert.Equal(t, models.PhaseStarted, p.InterviewPhase)

	p = UpdateProgress(p, cfg, "Understood, thanks for the detail.")
	assert.Equal(t, 1, p.MainQuestionsAsked)
	assert.Equal(t, 1, p.FollowUpQuestionsAsked)
}

func TestUpdateProgress_MainOverBudgetCountsAsFollowUp(t *testing.T) {
	cfg := models.InterviewConfig{MaxMainQuestions: 2, MaxFollowUpQuestions: 2, MaxTotalQuestions: 10}
	p := models.ProgressState{MainQuestionsAsked: 2, InterviewPhase: models.PhaseConcluding, CurrentQuestionType: models.QuestionExperience}

	p = UpdateProgress(p, cfg, "What else would you like to share?")
	assert.Equal(t, 2, p.MainQuestionsAsked)
	assert.Equal(t, 1, p.FollowUpQuestionsAsked)
	assert.Equal(t, models.QuestionExperience, p.CurrentQuestionType)
}

func TestUpdateProgress_ThankYouCompletesAfterBudget(t *testing.T) {
	cfg := models.InterviewConfig{MaxMainQuestions: 2, MaxFollowUpQuestions: 1, MaxTotalQuestions: 10}

	p := UpdateProgress(models.ProgressState{MainQuestionsAsked: 1, InterviewPhase: models.PhaseInProgress}, cfg, "Thank you, that helps.")
	assert.Equal(t, models.PhaseInProgress, p.InterviewPhase)

	p = UpdateProgress(models.ProgressState{MainQuestionsAsked: 2, InterviewPhase: models.PhaseConcluding}, cfg, "Thank you for your time.")
	assert.Equal(t, models.PhaseCompleted, p.InterviewPhase)
}

func TestUpdateProgress_Invariants(t *testing.T) {
	cfg := models.InterviewConfig{MaxMainQuestions: 4, MaxFollowUpQuestions: 1, MaxTotalQuestions: 20}
	replies := []string{
		"What is your strongest language?",
		"Can you elaborate?",
		"Could you explain that?",
		"Noted.",
		"How did you scale the service?",
		"What do you mean?",
		"Which team rituals worked for you?",
		"Anything else to add?",
		"Thank you.",
	}
	slotIndex := func(qt models.QuestionType) int {
		for i, s := range models.QuestionSlots {
			if s == qt {
				return i
			}
		}
		return -1
	}

	p := InitialProgress()
	for _, reply := range replies {
		next := UpdateProgress(p, cfg, reply)

		assert.GreaterOrEqual(t, next.MainQuestionsAsked, p.MainQuestionsAsked)
		assert.GreaterOrEqual(t, next.InterviewPhase.Rank(), p.InterviewPhase.Rank())
		assert.GreaterOrEqual(t, slotIndex(next.CurrentQuestionType), slotIndex(p.CurrentQuestionType))
		assert.LessOrEqual(t, slotIndex(next.CurrentQuestionType)-slotIndex(p.CurrentQuestionType), 1)

		p = next
	}
}

func TestAdvancePhaseNeverGoesBack(t *testing.T) {
	assert.Equal(t, models.PhaseConcluding, advancePhase(models.PhaseConcluding, models.PhaseInProgress))
	assert.Equal(t, models.PhaseCompleted, advancePhase(models.PhaseInProgress, models.PhaseCompleted))
}
