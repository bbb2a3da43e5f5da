package veo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"storyboard-server/modules/common/model"
	"storyboard-server/modules/provider"
)

const (
	generateURL = "https://api.kie.ai/api/v1/veo/generate"
	statusURL   = "https://api.kie.ai/api/v1/veo/record-info"
)

// Service - preferred video provider: create a Veo task, then poll at a fixed
// interval until the clip is ready or the attempt budget runs out
type Service struct {
	apiKey       string
	model        string
	pollInterval time.Duration
	maxChecks    int
	httpClient   *http.Client
}

func NewService(apiKey, videoModel string, pollInterval time.Duration, maxChecks int) *Service {
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	if maxChecks <= 0 {
		maxChecks = 60
	}
	return &Service{
		apiKey:       apiKey,
		model:        videoModel,
		pollInterval: pollInterval,
		maxChecks:    maxChecks,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

func (s *Service) Name() string { return "veo" }

type generateRequest struct {
	Model     string   `json:"model"`
	Prompt    string   `json:"prompt"`
	ImageURLs []string `json:"imageUrls,omitempty"`
	Duration  int      `json:"duration,omitempty"`
}

type generateResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		TaskID string `json:"taskId"`
	} `json:"data"`
}

type statusResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		TaskID       string `json:"taskId"`
		SuccessFlag  int    `json:"successFlag"` // 0 running, 1 success, 2/3 failed
		ErrorMessage string `json:"errorMessage"`
		Response     struct {
			ResultURLs []string `json:"resultUrls"`
		} `json:"response"`
	} `json:"data"`
}

// ValidateKey - probe the status endpoint with the candidate key; auth errors
// surface as non-200 / non-zero codes
func (s *Service) ValidateKey(ctx context.Context, apiKey string) (model.ProviderModels, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, statusURL+"?taskId=validation-probe", nil)
	if err != nil {
		return model.ProviderModels{}, err
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return model.ProviderModels{}, fmt.Errorf("Veo key validation failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		body, _ := io.ReadAll(resp.Body)
		return model.ProviderModels{}, fmt.Errorf("Veo API returned status %d: %s", resp.StatusCode, string(body))
	}

	return model.ProviderModels{
		VideoModels: []string{"veo3", "veo3-fast"},
	}, nil
}

// GenerateVideo - create the task, then poll until success, failure or the
// check budget is exhausted. The start frame must already be reachable by
// URL; data-URL images are passed through as-is.
func (s *Service) GenerateVideo(ctx context.Context, req provider.VideoRequest, onProgress func(message string)) (string, error) {
	if onProgress == nil {
		onProgress = func(string) {}
	}

	videoModel := s.model
	if req.Model != "" {
		videoModel = req.Model
	}

	imageURL := req.Image.StoredURL
	if imageURL == "" {
		imageURL = "data:" + req.Image.MimeType + ";base64," + req.Image.Data
	}

	prompt := req.Prompt
	if req.NegativePrompt != "" {
		prompt += "\n\nAvoid: " + req.NegativePrompt
	}

	log.Printf("🎥 [Veo] Creating video task (model: %s, duration: %ds)", videoModel, req.DurationSecs)
	onProgress("Submitting video request...")

	taskID, err := s.createTask(ctx, generateRequest{
		Model:     videoModel,
		Prompt:    prompt,
		ImageURLs: []string{imageURL},
		Duration:  req.DurationSecs,
	})
	if err != nil {
		return "", err
	}

	log.Printf("⏳ [Veo] Task created: %s, polling every %v", taskID, s.pollInterval)
	return s.waitForCompletion(ctx, taskID, onProgress)
}

func (s *Service) createTask(ctx context.Context, payload generateRequest) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal Veo request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, generateURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create Veo request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("Veo API call failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read Veo response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("Veo API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed generateResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse Veo response: %w", err)
	}
	if parsed.Code != 200 {
		return "", fmt.Errorf("Veo task creation failed (code %d): %s", parsed.Code, parsed.Msg)
	}
	if parsed.Data.TaskID == "" {
		return "", fmt.Errorf("no task ID in Veo response")
	}
	return parsed.Data.TaskID, nil
}

// waitForCompletion polls the task until it resolves. Exhausting the check
// budget returns a timeout error so the failure classifies as Timeout.
func (s *Service) waitForCompletion(ctx context.Context, taskID string, onProgress func(string)) (string, error) {
	for check := 1; check <= s.maxChecks; check++ {
		select {
		case <-time.After(s.pollInterval):
		case <-ctx.Done():
			return "", ctx.Err()
		}

		status, err := s.checkTask(ctx, taskID)
		if err != nil {
			log.Printf("⚠️  [Veo] Status check %d/%d failed: %v", check, s.maxChecks, err)
			continue
		}

		switch status.Data.SuccessFlag {
		case 1:
			if len(status.Data.Response.ResultURLs) == 0 {
				return "", fmt.Errorf("Veo task %s succeeded but returned no video URL", taskID)
			}
			log.Printf("✅ [Veo] Video ready: %s", status.Data.Response.ResultURLs[0])
			return status.Data.Response.ResultURLs[0], nil
		case 2, 3:
			return "", fmt.Errorf("Veo task %s failed: %s", taskID, status.Data.ErrorMessage)
		default:
			onProgress(fmt.Sprintf("Rendering video... (check %d/%d)", check, s.maxChecks))
		}
	}
	return "", fmt.Errorf("Veo task %s timed out after %d checks", taskID, s.maxChecks)
}

func (s *Service) checkTask(ctx context.Context, taskID string) (*statusResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, statusURL+"?taskId="+taskID, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("Veo status call failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read Veo status response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Veo status returned %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed statusResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse Veo status response: %w", err)
	}
	if parsed.Code != 200 {
		return nil, fmt.Errorf("Veo status failed (code %d): %s", parsed.Code, parsed.Msg)
	}
	return &parsed, nil
}
