package services

import (
	"strings"

	"alfredoptarigan/ai-interviewer/internal/models"
)

// UtteranceKind is the protocol symbol an assistant reply is mapped to.
type UtteranceKind string

const (
	UtteranceMainQuestion UtteranceKind = "main_question"
	UtteranceFollowUp     UtteranceKind = "follow_up"
	UtteranceStatement    UtteranceKind = "statement"
)

var followUpPhrases = []string{
	"can you elaborate",
	"tell me more",
	"could you explain",
	"what do you mean",
}

// ClassifyUtterance maps free-form model output onto the interview protocol. It is a text
// heuristic and can misclassify, e.g. a rhetorical question inside an acknowledgement.
func ClassifyUtterance(text string) UtteranceKind {
	lower := strings.ToLower(text)
	if !strings.Contains(lower, "?") {
		return UtteranceStatement
	}
	for _, phrase := range followUpPhrases {
		if strings.Contains(lower, phrase) {
			return UtteranceFollowUp
		}
	}
	return UtteranceMainQuestion
}

// InitialProgress is the state right after the greeting, which already asks the first question.
func InitialProgress() models.ProgressState {
	return models.ProgressState{
		MainQuestionsAsked:     1,
		FollowUpQuestionsAsked: 0,
		CurrentQuestionType:    models.QuestionSlots[0],
		InterviewPhase:         models.PhaseStarted,
	}
}

// UpdateProgress returns the progress after the assistant said text. It is the only place
// counters change.
func UpdateProgress(progress models.ProgressState, cfg models.InterviewConfig, text string) models.ProgressState {
	next := progress
	kind := ClassifyUtterance(text)

	switch {
	case kind == UtteranceMainQuestion && next.MainQuestionsAsked < cfg.MaxMainQuestions:
		next.MainQuestionsAsked++
		next.FollowUpQuestionsAsked = 0
		next.CurrentQuestionType = questionTypeForSlot(next.MainQuestionsAsked - 1)
		next.InterviewPhase = advancePhase(next.InterviewPhase, models.PhaseInProgress)
		if next.MainQuestionsAsked >= cfg.MaxMainQuestions {
			next.InterviewPhase = advancePhase(next.InterviewPhase, models.PhaseConcluding)
		}
	case kind != UtteranceStatement && next.MainQuestionsAsked > 0:
		next.FollowUpQuestionsAsked++
	}

	if next.MainQuestionsAsked >= cfg.MaxMainQuestions && strings.Contains(strings.ToLower(text), "thank you") {
		next.InterviewPhase = advancePhase(next.InterviewPhase, models.PhaseCompleted)
	}

	return next
}

// questionTypeForSlot clamps to the last slot once the fixed order is exhausted.
func questionTypeForSlot(slot int) models.QuestionType {
	if slot < 0 {
		slot = 0
	}
	if slot >= len(models.QuestionSlots) {
		slot = len(models.QuestionSlots) - 1
	}
	return models.QuestionSlots[slot]
}

// advancePhase never moves a phase backwards.
func advancePhase(current, target models.InterviewPhase) models.InterviewPhase {
	if target.Rank() > current.Rank() {
		return target
	}
	return current
}
