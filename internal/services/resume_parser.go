package services

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
)

const maxResumeLength = 6000

type ResumeParserService interface {
	ExtractText(filePath string) (string, error)
	ExtractResume(filePath string) (*ResumeContent, error)
}

type ResumeContent struct {
	Text      string
	PageCount int
	FilePath  string
}

type resumeParserService struct{}

func NewResumeParserService() ResumeParserService {
	return &resumeParserService{}
}

func (p *resumeParserService) ExtractText(filePath string) (string, error) {
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return "", fmt.Errorf("file does not exist: %s", filePath)
	}

	f, r, err := pdf.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	var textBuilder strings.Builder
	totalPage := r.NumPage()

	for pageIndex := 1; pageIndex <= totalPage; pageIndex++ {
		page := r.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			// Log error but continue with other pages
			continue
		}

		textBuilder.WriteString(text)
		textBuilder.WriteString("\n\n")
	}

	text := textBuilder.String()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("no text content found in PDF")
	}

	return text, nil
}

// ExtractResume returns the cleaned, length-capped resume text ready for the system prompt.
func (p *resumeParserService) ExtractResume(filePath string) (*ResumeContent, error) {
	f, r, err := pdf.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	pageCount := r.NumPage()
	f.Close()

	text, err := p.ExtractText(filePath)
	if err != nil {
		return nil, err
	}

	cleaned := CleanResumeText(text)
	if cleaned == "" {
		return nil, fmt.Errorf("no text content found in PDF")
	}

	return &ResumeContent{
		Text:      cleaned,
		PageCount: pageCount,
		FilePath:  filePath,
	}, nil
}

var (
	pageMarkerPattern    = regexp.MustCompile(`(?i)page \d+ of \d+`)
	bulletPattern        = regexp.MustCompile(`[•●◆■]`)
	resumeArtifactRegexp = regexp.MustCompile(`(?i)\b(confidential|private|resume|curriculum vitae)\b`)
	whitespacePattern    = regexp.MustCompile(`\s+`)
)

// CleanResumeText normalizes PDF output for the language model and caps its length.
func CleanResumeText(text string) string {
	text = bulletPattern.ReplaceAllString(text, "-")
	text = pageMarkerPattern.ReplaceAllString(text, "")
	text = resumeArtifactRegexp.ReplaceAllString(text, "")
	text = whitespacePattern.ReplaceAllString(text, " ")
	text = strings.TrimSpace(text)

	return truncateRunes(text, maxResumeLength)
}

func truncateRunes(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
