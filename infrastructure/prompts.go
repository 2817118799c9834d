// infrastructure/prompts.go
package infrastructure

import (
	"fmt"
	"strings"

	"github.com/vitovidale/video-notes-service/domain"
)

const (
	systemPrompt = "You are a helpful assistant that creates structured notes from YouTube video transcripts."
	temperature  = 0.7

	freeTranscriptChars = 3000
)

// Prompt is one rendered completion request.
type Prompt struct {
	System    string
	User      string
	MaxTokens int64
}

// BuildPrompt renders the tier-specific template. Tiers other than free and pro get the most
// detailed template.
func BuildPrompt(req domain.SummaryRequest) Prompt {
	header := videoHeader(req.Title, req.Channel)
	switch domain.NormalizePlanTier(string(req.Tier)) {
	case domain.PlanFree:
		return Prompt{
			System:    systemPrompt,
			MaxTokens: 200,
			User: fmt.Sprintf(`Create a concise summary of this YouTube video.
%s
Write a short overview paragraph followed by 3-5 bullet points with the most important ideas.
Use markdown.

Transcript:
%s`, header, truncateChars(req.Transcript, freeTranscriptChars)),
		}
	case domain.PlanPro:
		return Prompt{
			System:    systemPrompt,
			MaxTokens: 800,
			User: fmt.Sprintf(`Create comprehensive structured notes for this YouTube video.
%s
Format the notes in markdown with these sections:
## Main Topic
## Key Points
## Important Details and Examples
## Actionable Takeaways

Transcript:
%s`, header, req.Transcript),
		}
	default:
		return Prompt{
			System:    systemPrompt,
			MaxTokens: 1200,
			User: fmt.Sprintf(`Create in-depth structured study notes for this YouTube video.
%s
Format the notes in markdown with these sections:
## Overview
## Key Concepts (explain each one)
## Detailed Notes (follow the structure of the video, with sub-headings)
## Examples, Data and Quotes
## Actionable Takeaways
## Questions for Further Thought

Transcript:
%s`, header, req.Transcript),
		}
	}
}

func videoHeader(title, channel string) string {
	var b strings.Builder
	if title != "" {
		b.WriteString("Title: " + title + "\n")
	}
	if channel != "" {
		b.WriteString("Channel: " + channel + "\n")
	}
	return b.String()
}

func truncateChars(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
