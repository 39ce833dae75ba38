package services

import "alfredoptarigan/ai-interviewer/internal/models"

// EndReason names the first termination rule that matched.
type EndReason string

const (
	EndReasonNone             EndReason = ""
	EndReasonMainBudget       EndReason = "main_question_budget"
	EndReasonConcluding       EndReason = "phase_concluding"
	EndReasonFollowUpBudget   EndReason = "follow_up_budget"
	EndReasonTotalBudget      EndReason = "total_question_budget"
	EndReasonClosingStatement EndReason = "closing_statement"
	EndReasonManual           EndReason = "manual"
)

// ShouldEnd decides whether the next model turn must be the closing statement.
// The rules are a plain OR; their order only picks the reported reason.
func ShouldEnd(progress models.ProgressState, cfg models.InterviewConfig) (bool, EndReason) {
	switch {
	case progress.MainQuestionsAsked >= cfg.MaxMainQuestions:
		return true, EndReasonMainBudget
	case progress.InterviewPhase == models.PhaseConcluding:
		return true, EndReasonConcluding
	case progress.FollowUpQuestionsAsked >= cfg.MaxFollowUpQuestions:
		return true, EndReasonFollowUpBudget
	case progress.MainQuestionsAsked+progress.FollowUpQuestionsAsked >= cfg.MaxTotalQuestions:
		return true, EndReasonTotalBudget
	default:
		return false, EndReasonNone
	}
}
