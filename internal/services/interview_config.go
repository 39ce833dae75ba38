package services

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"alfredoptarigan/ai-interviewer/internal/models"
)

const (
	DefaultMaxMainQuestions     = 5
	DefaultMaxFollowUpQuestions = 2
	DefaultMaxTotalQuestions    = 15
	DefaultClosingStatement     = "Thank you for your time. Your interview is complete now. We have gathered sufficient information to assess your application. Our team will review your responses and contact you with next steps soon."

	maxClosingStatementLength   = 500
	maxCustomInstructionsLength = 1000
)

// InterviewConfigInput is the caller-supplied, partial configuration. Nil means unset.
type InterviewConfigInput struct {
	MaxMainQuestions     *int
	MaxFollowUpQuestions *int
	MaxTotalQuestions    *int
	ClosingStatement     *string
	QuestionTypes        []string
	CustomInstructions   *string
}

// DefaultInterviewConfig returns the configuration used when nothing is supplied.
func DefaultInterviewConfig() models.InterviewConfig {
	types := make([]models.QuestionType, len(models.QuestionSlots))
	copy(types, models.QuestionSlots)

	return models.InterviewConfig{
		MaxMainQuestions:     DefaultMaxMainQuestions,
		MaxFollowUpQuestions: DefaultMaxFollowUpQuestions,
		MaxTotalQuestions:    DefaultMaxTotalQuestions,
		ClosingStatement:     DefaultClosingStatement,
		QuestionTypes:        types,
		CustomInstructions:   "",
	}
}

// ResolveInterviewConfig merges input over the defaults and checks every bound. All violations
// are reported together.
func ResolveInterviewConfig(in InterviewConfigInput) (models.InterviewConfig, FieldErrors) {
	cfg := DefaultInterviewConfig()
	var errs FieldErrors

	checkRange := func(field string, value *int, lo, hi int, dst *int) {
		if value == nil {
			return
		}
		if *value < lo || *value > hi {
			errs.Add(field, fmt.Sprintf("must be between %d and %d", lo, hi))
			return
		}
		*dst = *value
	}

	checkRange("maxMainQuestions", in.MaxMainQuestions, 1, 20, &cfg.MaxMainQuestions)
	checkRange("maxFollowUpQuestions", in.MaxFollowUpQuestions, 0, 5, &cfg.MaxFollowUpQuestions)
	checkRange("maxTotalQuestions", in.MaxTotalQuestions, 1, 50, &cfg.MaxTotalQuestions)

	if in.ClosingStatement != nil {
		statement := *in.ClosingStatement
		switch {
		case strings.TrimSpace(statement) == "":
			errs.Add("closingStatement", "must not be empty")
		case utf8.RuneCountInString(statement) > maxClosingStatementLength:
			errs.Add("closingStatement", fmt.Sprintf("must be at most %d characters", maxClosingStatementLength))
		default:
			cfg.ClosingStatement = statement
		}
	}

	if in.QuestionTypes != nil {
		if types, ok := resolveQuestionTypes(in.QuestionTypes, &errs); ok {
			cfg.QuestionTypes = types
		}
	}

	if in.CustomInstructions != nil {
		if utf8.RuneCountInString(*in.CustomInstructions) > maxCustomInstructionsLength {
			errs.Add("customInstructions", fmt.Sprintf("must be at most %d characters", maxCustomInstructionsLength))
		} else {
			cfg.CustomInstructions = *in.CustomInstructions
		}
	}

	if len(errs) > 0 {
		return models.InterviewConfig{}, errs
	}
	return cfg, nil
}

func resolveQuestionTypes(raw []string, errs *FieldErrors) ([]models.QuestionType, bool) {
	if len(raw) == 0 {
		errs.Add("questionTypes", "must contain at least one question type")
		return nil, false
	}

	seen := make(map[models.QuestionType]bool, len(raw))
	types := make([]models.QuestionType, 0, len(raw))
	var unknown []string
	for _, value := range raw {
		qt := models.QuestionType(value)
		if !models.IsValidQuestionType(qt) {
			unknown = append(unknown, value)
			continue
		}
		if seen[qt] {
			continue
		}
		seen[qt] = true
		types = append(types, qt)
	}

	if len(unknown) > 0 {
		errs.Add("questionTypes", fmt.Sprintf("unknown question types: %s", strings.Join(unknown, ", ")))
		return nil, false
	}
	return types, true
}
