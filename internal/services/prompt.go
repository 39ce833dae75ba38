package services

import (
	"fmt"
	"strings"

	"alfredoptarigan/ai-interviewer/internal/models"
)

var slotDirectives = []string{
	"Ask a question about the candidate's technical skills, grounded in the job requirements and their resume.",
	"Ask about the candidate's professional experience and the projects they have delivered.",
	"Ask about a difficult technical challenge the candidate faced and how they resolved it.",
	"Ask how the candidate collaborates with a team, handles disagreement and shares knowledge.",
	"Ask a behavioral question, then invite the candidate to ask any questions they have about the role.",
}

type PromptBuilder struct{}

func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

// BuildSystemInstruction creates the first transcript message: who the interviewer is and what
// it knows about the job and the candidate.
func (pb *PromptBuilder) BuildSystemInstruction(job *models.Job, candidate *models.Candidate, jobDescription, resumeText string, cfg models.InterviewConfig) string {
	return fmt.Sprintf(`You are an interviewer for the position of %s at %s.

JOB DESCRIPTION:
%s

REQUIREMENTS:
%s

CANDIDATE: %s

CANDIDATE'S RESUME:
%s

Based on the resume and job description, respond to each candidate answer with a question, a follow-up question or a short interviewer response.
Strictly ask only 1 question at a time.
Prefer questions that build on what we already know about the candidate.
If an answer is not satisfactory or explanatory, ask the candidate to elaborate, with at most %d follow-up questions per main question.
If the candidate cannot answer, let them take their time to think.
After %d main questions (excluding follow-ups), end the interview with the closing statement:
"%s"`,
		job.Title,
		orDefault(job.Company, "Unknown Company"),
		orDefault(jobDescription, "Not provided."),
		formatRequirements(job.Requirements),
		candidate.FullName(),
		orDefault(resumeText, "Resume not available."),
		cfg.MaxFollowUpQuestions,
		cfg.MaxMainQuestions,
		cfg.ClosingStatement,
	)
}

// BuildGreeting creates the opening assistant message, which already asks the first
// (technical) main question.
func (pb *PromptBuilder) BuildGreeting(job *models.Job, candidate *models.Candidate) string {
	return fmt.Sprintf(
		"Hello %s! Today I am going to take your interview for the position of %s at %s. "+
			"To start, could you walk me through the technical skills you rely on most and how they fit this role?",
		candidate.FullName(),
		orDefault(job.Title, "Unknown Position"),
		orDefault(job.Company, "Unknown Company"),
	)
}

// Compose restates the whole interview state for the next model turn. The model keeps no
// counters between calls, so everything it must respect is repeated here every time.
func (pb *PromptBuilder) Compose(progress models.ProgressState, cfg models.InterviewConfig, forceEnd bool) string {
	if forceEnd {
		return fmt.Sprintf(`INTERVIEW STATUS: The main question budget has been reached (%d/%d main questions asked). The interview is over.

MANDATORY: Your next message must be exactly the following closing statement, verbatim, and nothing else:
"%s"

Do NOT ask any further question. Do NOT ask for clarification. Do NOT acknowledge the previous answer first. Do NOT continue the interview in any way.`,
			progress.MainQuestionsAsked, cfg.MaxMainQuestions, cfg.ClosingStatement)
	}

	var sb strings.Builder
	sb.WriteString("INTERVIEW PROGRESS:\n")
	sb.WriteString(fmt.Sprintf("- Main questions asked: %d/%d\n", progress.MainQuestionsAsked, cfg.MaxMainQuestions))
	sb.WriteString(fmt.Sprintf("- Follow-up questions asked for the current main question: %d (limit %d)\n",
		progress.FollowUpQuestionsAsked, cfg.MaxFollowUpQuestions))
	sb.WriteString(fmt.Sprintf("- Current phase: %s\n", progress.InterviewPhase))
	sb.WriteString(fmt.Sprintf("- Focus areas: %s\n\n", formatQuestionTypes(cfg.QuestionTypes)))

	sb.WriteString("NEXT STEP:\n")
	sb.WriteString("If the last answer needs clarification and the follow-up limit allows it, ask one follow-up question. ")
	sb.WriteString("Otherwise move on: ")
	sb.WriteString(slotDirectives[directiveSlot(progress.MainQuestionsAsked)])
	sb.WriteString("\n\n")

	sb.WriteString("RULES:\n")
	sb.WriteString("1. Ask exactly one question per message.\n")
	sb.WriteString(fmt.Sprintf("2. Never ask more than %d follow-up questions for the same main question.\n", cfg.MaxFollowUpQuestions))
	sb.WriteString(fmt.Sprintf("3. Once %d main questions have been asked, conclude with the closing statement: \"%s\"\n",
		cfg.MaxMainQuestions, cfg.ClosingStatement))

	if cfg.CustomInstructions != "" {
		sb.WriteString("\nADDITIONAL GUIDANCE (never overrides the rules above):\n")
		sb.WriteString(cfg.CustomInstructions)
		sb.WriteString("\n")
	}

	return sb.String()
}

// BuildTurnInstruction refreshes the stored system instruction with the composed state.
func (pb *PromptBuilder) BuildTurnInstruction(systemInstruction, composed string) string {
	if systemInstruction == "" {
		return composed
	}
	return systemInstruction + "\n\n" + composed
}

// FormatTranscript renders a conversation as plain text, skipping the system instruction.
func FormatTranscript(messages []models.Message) string {
	var parts []string
	for _, msg := range messages {
		switch msg.Role {
		case models.RoleAssistant:
			parts = append(parts, "Interviewer: "+strings.TrimSpace(msg.Text))
		case models.RoleUser:
			parts = append(parts, "Candidate: "+strings.TrimSpace(msg.Text))
		}
	}

	return strings.Join(parts, "\n\n")
}

func directiveSlot(mainQuestionsAsked int) int {
	if mainQuestionsAsked < 0 {
		return 0
	}
	if mainQuestionsAsked >= len(slotDirectives) {
		return len(slotDirectives) - 1
	}
	return mainQuestionsAsked
}

func formatQuestionTypes(types []models.QuestionType) string {
	names := make([]string, 0, len(types))
	for _, t := range types {
		names = append(names, strings.ReplaceAll(string(t), "_", " "))
	}
	return strings.Join(names, ", ")
}

func formatRequirements(requirements []string) string {
	if len(requirements) == 0 {
		return "Not specified."
	}
	return "- " + strings.Join(requirements, "\n- ")
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
