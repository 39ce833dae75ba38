package services

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const maxJobDescriptionLength = 3000

var jobDescriptionHeadings = regexp.MustCompile(`(?i)\b(job description|responsibilities|requirements)\b:?`)

// HTMLToText extracts the visible text of an HTML fragment. Block elements are separated by
// newlines so paragraphs and list items do not run together.
func HTMLToText(html string) (string, error) {
	if strings.TrimSpace(html) == "" {
		return "", nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse html: %w", err)
	}

	doc.Find("script, style").Remove()
	doc.Find("p, div, li, br, h1, h2, h3, h4, h5, h6, tr").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})

	var lines []string
	for _, line := range strings.Split(doc.Text(), "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n"), nil
}

// CleanJobDescription turns a stored (possibly HTML) job description into prompt text.
func CleanJobDescription(description string) string {
	text, err := HTMLToText(description)
	if err != nil {
		text = description
	}

	text = jobDescriptionHeadings.ReplaceAllString(text, "")

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}

	return truncateRunes(strings.Join(lines, "\n"), maxJobDescriptionLength)
}
