// Package brief turns a contributor table into a recruiting brief by asking a
// Gemini model to summarize the contributors in sourcing-friendly prose. The
// table is sent in JSON chunks over a single chat session so large histories
// stay under the prompt size limits.
package brief

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"

	"github.com/arames/git-recruiting/internal/config"
	"github.com/arames/git-recruiting/pkg/gitcontributors"
)

// #nosec G101 -- This is the name of an environment variable, not a credential itself.
const apiKeyEnvVar = "VERTEX_AI_API_KEY"

// #nosec G101 -- This is the name of an environment variable, not a credential itself.
const credentialsFileEnvVar = "GOOGLE_APPLICATION_CREDENTIALS"

const initialPrompt = `
act as a technical recruiter sourcing engineers from open-source activity.
After this prompt you will receive one or more json lists of objects, each
describing a contributor to a git repository: name, email, commit count and
the dates of their first and last commits.
Read every list, then write a short sourcing brief: who the key contributors
are, who looks currently active versus dormant, and who would be worth
reaching out to first. Keep a professional tone and avoid jargon.
Please write the brief in markdown format.
Only return the brief without any other text or explanation
`

// entry is the JSON shape sent to the model for each contributor.
type entry struct {
	Name        string `json:"name"`
	Email       string `json:"email,omitempty"`
	Commits     int    `json:"commits"`
	FirstCommit string `json:"first_commit"`
	LastCommit  string `json:"last_commit"`
}

// Generate produces a recruiting brief for the given contributor table and
// returns it as markdown. Authentication falls back from the configured
// credentials file to GOOGLE_APPLICATION_CREDENTIALS to VERTEX_AI_API_KEY.
func Generate(ctx context.Context, contributors []gitcontributors.Contributor, cfg config.BriefConfig, logger *logrus.Logger) (string, error) {
	if len(contributors) == 0 {
		return "# Recruiting Brief\n\nNo contributors found in the selected history.\n", nil
	}

	clientOpts, err := authOptions(cfg)
	if err != nil {
		return "", err
	}

	client, err := genai.NewClient(ctx, clientOpts...)
	if err != nil {
		return "", fmt.Errorf("failed to initialize Gemini AI client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(cfg.GeminiModel)
	logger.WithField("model", cfg.GeminiModel).Debug("Initialized Gemini model")

	cs := model.StartChat()
	if _, err := cs.SendMessage(ctx, genai.Text(initialPrompt)); err != nil {
		return "", fmt.Errorf("failed to send initial prompt to Gemini: %w", err)
	}

	entries := make([]entry, 0, len(contributors))
	for _, c := range contributors {
		entries = append(entries, entry{
			Name:        c.Name,
			Email:       c.Email,
			Commits:     c.Commits,
			FirstCommit: c.FirstCommit.Format(time.DateOnly),
			LastCommit:  c.LastCommit.Format(time.DateOnly),
		})
	}

	totalChunks := int(math.Ceil(float64(len(entries)) / float64(cfg.ChunkSize)))
	var finalResp *genai.GenerateContentResponse
	for i := 0; i < len(entries); i += cfg.ChunkSize {
		end := i + cfg.ChunkSize
		if end > len(entries) {
			end = len(entries)
		}
		chunk := entries[i:end]

		chunkJSON, err := json.MarshalIndent(chunk, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to marshal contributor chunk %d/%d to JSON: %w", (i/cfg.ChunkSize)+1, totalChunks, err)
		}

		logger.WithFields(logrus.Fields{
			"chunk":        (i / cfg.ChunkSize) + 1,
			"total":        totalChunks,
			"contributors": len(chunk),
		}).Debug("Sending contributor chunk to Gemini")

		resp, err := cs.SendMessage(ctx, genai.Text(chunkJSON))
		if err != nil {
			return "", fmt.Errorf("failed to send chunk %d/%d to Gemini: %w", (i/cfg.ChunkSize)+1, totalChunks, err)
		}
		finalResp = resp
	}

	content := extractTextFromResponse(finalResp)
	if content == "" {
		return "", fmt.Errorf("Gemini returned a response with no extractable text")
	}
	return content, nil
}

// authOptions builds the Gemini client options from the configured
// credentials file, the standard Google credentials env var, or an API key.
func authOptions(cfg config.BriefConfig) ([]option.ClientOption, error) {
	if cfg.CredentialsFile != "" {
		return []option.ClientOption{option.WithCredentialsFile(cfg.CredentialsFile)}, nil
	}
	if credentialsPath := os.Getenv(credentialsFileEnvVar); credentialsPath != "" {
		return []option.ClientOption{option.WithCredentialsFile(credentialsPath)}, nil
	}
	if apiKey := os.Getenv(apiKeyEnvVar); apiKey != "" {
		return []option.ClientOption{option.WithAPIKey(apiKey)}, nil
	}
	return nil, fmt.Errorf("no authentication method available: neither credentials file specified in config/environment nor %s env var set", apiKeyEnvVar)
}

// DefaultOutputPath returns the brief filename for today's date.
func DefaultOutputPath() string {
	return fmt.Sprintf("recruiting_brief_%s.md", time.Now().Format("20060102"))
}

// extractTextFromResponse safely extracts the text content from the Gemini response.
func extractTextFromResponse(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}

	var builder strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if textPart, ok := part.(genai.Text); ok {
					builder.WriteString(string(textPart))
				}
			}
		}
	}
	return builder.String()
}
