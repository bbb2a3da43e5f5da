package groq

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"storyboard-server/modules/common/model"
	"storyboard-server/modules/common/retry"
	"storyboard-server/modules/provider"
)

const apiURL = "https://api.groq.com/openai/v1/chat/completions"

// Service - alternate text provider over Groq's OpenAI-compatible chat API
type Service struct {
	apiKey     string
	model      string
	httpClient *http.Client
}

func NewService(apiKey, chatModel string) *Service {
	return &Service{
		apiKey: apiKey,
		model:  chatModel,
		httpClient: &http.Client{
			Timeout: 90 * time.Second,
		},
	}
}

func (s *Service) Name() string { return "groq" }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// ValidateKey - one tiny completion with the candidate key
func (s *Service) ValidateKey(ctx context.Context, apiKey string) (model.ProviderModels, error) {
	probe := &Service{apiKey: apiKey, model: s.model, httpClient: s.httpClient}
	if _, err := probe.complete(ctx, "Reply with the word ok.", "ok", false); err != nil {
		return model.ProviderModels{}, fmt.Errorf("Groq key validation failed: %w", err)
	}
	return model.ProviderModels{
		TextModels: []string{"llama-3.3-70b-versatile", "llama-3.1-8b-instant"},
	}, nil
}

// GenerateBlueprint - same contract as the Gemini adapter, Groq backend
func (s *Service) GenerateBlueprint(ctx context.Context, idea string, style model.VisualStyle) (model.Blueprint, error) {
	log.Printf("🎬 [Groq] Generating blueprint for idea (%d chars, style: %s)", len(idea), style)

	raw, err := s.complete(ctx, systemPrompt, provider.BlueprintPrompt(idea, style), true)
	if err != nil {
		return model.Blueprint{}, err
	}

	var resp provider.BlueprintResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return model.Blueprint{}, fmt.Errorf("failed to parse blueprint response: %w", err)
	}
	return resp.ToBlueprint(), nil
}

func (s *Service) GenerateScenes(ctx context.Context, idea string, style model.VisualStyle, bp model.Blueprint, sceneCount int) ([]model.SceneSeed, error) {
	log.Printf("🎬 [Groq] Generating %d scenes", sceneCount)

	raw, err := s.complete(ctx, systemPrompt, provider.ScenesPrompt(idea, style, bp, sceneCount), false)
	if err != nil {
		return nil, err
	}

	var seeds []model.SceneSeed
	if err := json.Unmarshal([]byte(raw), &seeds); err != nil {
		return nil, fmt.Errorf("failed to parse scenes response: %w", err)
	}
	return seeds, nil
}

func (s *Service) SuggestShotTypes(ctx context.Context, sc model.Scene) ([]string, error) {
	raw, err := s.complete(ctx, systemPrompt, provider.ShotTypesPrompt(sc), false)
	if err != nil {
		return nil, err
	}

	var shots []string
	if err := json.Unmarshal([]byte(raw), &shots); err != nil {
		return nil, fmt.Errorf("failed to parse shot suggestions: %w", err)
	}
	return shots, nil
}

const systemPrompt = "You are a storyboard development assistant. You always respond with valid JSON and nothing else."

// complete - one chat completion with transient-error retry. jsonObject turns
// on the API-level JSON mode, which Groq only supports for object responses.
func (s *Service) complete(ctx context.Context, system, user string, jsonObject bool) (string, error) {
	payload := chatRequest{
		Model: s.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: 0.7,
	}
	if jsonObject {
		payload.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode chat request: %w", err)
	}

	var content string
	err = retry.Do(ctx, retry.DefaultAttempts, retry.DefaultBase, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("failed to create chat request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("Groq API call failed: %w", err)
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read Groq response: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("Groq API returned status %d: %s", resp.StatusCode, string(respBody))
		}

		var parsed chatResponse
		if err := json.Unmarshal(respBody, &parsed); err != nil {
			return fmt.Errorf("failed to parse Groq response: %w", err)
		}
		if parsed.Error != nil {
			return fmt.Errorf("Groq API error (%s): %s", parsed.Error.Type, parsed.Error.Message)
		}
		if len(parsed.Choices) == 0 {
			return fmt.Errorf("no choices in Groq response")
		}

		content = cleanJSON(parsed.Choices[0].Message.Content)
		return nil
	})
	if err != nil {
		return "", err
	}
	return content, nil
}

// cleanJSON strips markdown code fences some models wrap around JSON output
func cleanJSON(raw string) string {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	return strings.TrimSpace(cleaned)
}
