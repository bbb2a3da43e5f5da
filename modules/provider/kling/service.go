package kling

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"storyboard-server/modules/common/model"
	"storyboard-server/modules/provider"
)

const baseURL = "https://api-singapore.klingai.com/v1/videos/image2video"

// Service - alternate video provider over the Kling image2video API with
// HMAC-signed JWT auth
type Service struct {
	accessKey    string
	secretKey    string
	model        string
	pollInterval time.Duration
	maxChecks    int
	httpClient   *http.Client
}

func NewService(accessKey, secretKey, videoModel string, pollInterval time.Duration, maxChecks int) *Service {
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	if maxChecks <= 0 {
		maxChecks = 60
	}
	return &Service{
		accessKey:    accessKey,
		secretKey:    secretKey,
		model:        videoModel,
		pollInterval: pollInterval,
		maxChecks:    maxChecks,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

func (s *Service) Name() string { return "kling" }

// generateJWT - short-lived HS256 token signed with the secret key
func (s *Service) generateJWT() string {
	header := map[string]string{
		"alg": "HS256",
		"typ": "JWT",
	}
	headerBytes, _ := json.Marshal(header)
	headerEncoded := base64.RawURLEncoding.EncodeToString(headerBytes)

	now := time.Now().Unix()
	payload := map[string]interface{}{
		"iss": s.accessKey,
		"exp": now + 1800,
		"nbf": now - 5,
	}
	payloadBytes, _ := json.Marshal(payload)
	payloadEncoded := base64.RawURLEncoding.EncodeToString(payloadBytes)

	signatureInput := headerEncoded + "." + payloadEncoded
	h := hmac.New(sha256.New, []byte(s.secretKey))
	h.Write([]byte(signatureInput))
	signature := base64.RawURLEncoding.EncodeToString(h.Sum(nil))

	return signatureInput + "." + signature
}

type createTaskRequest struct {
	ModelName string `json:"model_name"`
	Image     string `json:"image"`
	Prompt    string `json:"prompt"`
	Negative  string `json:"negative_prompt,omitempty"`
	Duration  string `json:"duration"`
}

type createTaskResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		TaskID string `json:"task_id"`
	} `json:"data"`
}

type taskStatusResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		TaskID        string `json:"task_id"`
		TaskStatus    string `json:"task_status"` // submitted, processing, succeed, failed
		TaskStatusMsg string `json:"task_status_msg"`
		TaskResult    struct {
			Videos []struct {
				URL      string `json:"url"`
				Duration string `json:"duration"`
			} `json:"videos"`
		} `json:"task_result"`
	} `json:"data"`
}

// ValidateKey - ignored key parameter; Kling auth is a key pair, so the
// stored pair is probed by listing the (possibly empty) task endpoint
func (s *Service) ValidateKey(ctx context.Context, _ string) (model.ProviderModels, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"?pageSize=1", nil)
	if err != nil {
		return model.ProviderModels{}, err
	}
	req.Header.Set("Authorization", "Bearer "+s.generateJWT())

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return model.ProviderModels{}, fmt.Errorf("Kling key validation failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return model.ProviderModels{}, fmt.Errorf("Kling API returned status %d: %s", resp.StatusCode, string(body))
	}

	return model.ProviderModels{
		VideoModels: []string{"kling-v1-6", "kling-v2-master"},
	}, nil
}

// GenerateVideo - create an image2video task, then poll until resolution.
// Kling only renders 5s or 10s clips, so the requested duration is snapped.
func (s *Service) GenerateVideo(ctx context.Context, req provider.VideoRequest, onProgress func(message string)) (string, error) {
	if onProgress == nil {
		onProgress = func(string) {}
	}

	videoModel := s.model
	if req.Model != "" {
		videoModel = req.Model
	}

	duration := "5"
	if req.DurationSecs > 5 {
		duration = "10"
	}

	prompt := req.Prompt

	log.Printf("🎥 [Kling] Creating image2video task (model: %s, duration: %ss)", videoModel, duration)
	onProgress("Submitting video request...")

	taskID, err := s.createTask(ctx, createTaskRequest{
		ModelName: videoModel,
		Image:     req.Image.Data,
		Prompt:    prompt,
		Negative:  req.NegativePrompt,
		Duration:  duration,
	})
	if err != nil {
		return "", err
	}

	log.Printf("⏳ [Kling] Task created: %s, polling every %v", taskID, s.pollInterval)
	return s.waitForCompletion(ctx, taskID, onProgress)
}

func (s *Service) createTask(ctx context.Context, payload createTaskRequest) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal Kling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create Kling request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.generateJWT())

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("Kling API call failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read Kling response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("Kling API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed createTaskResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse Kling response: %w", err)
	}
	if parsed.Code != 0 {
		return "", fmt.Errorf("Kling task creation failed (code %d): %s", parsed.Code, parsed.Message)
	}
	return parsed.Data.TaskID, nil
}

// waitForCompletion - fixed-interval polling with a check budget; exhausting
// it is reported as a timeout
func (s *Service) waitForCompletion(ctx context.Context, taskID string, onProgress func(string)) (string, error) {
	for check := 1; check <= s.maxChecks; check++ {
		select {
		case <-time.After(s.pollInterval):
		case <-ctx.Done():
			return "", ctx.Err()
		}

		status, err := s.checkTask(ctx, taskID)
		if err != nil {
			log.Printf("⚠️  [Kling] Status check %d/%d failed: %v", check, s.maxChecks, err)
			continue
		}

		switch status.Data.TaskStatus {
		case "succeed":
			if len(status.Data.TaskResult.Videos) == 0 {
				return "", fmt.Errorf("Kling task %s succeeded but returned no video URL", taskID)
			}
			log.Printf("✅ [Kling] Video ready: %s", status.Data.TaskResult.Videos[0].URL)
			return status.Data.TaskResult.Videos[0].URL, nil
		case "failed":
			return "", fmt.Errorf("Kling task %s failed: %s", taskID, status.Data.TaskStatusMsg)
		default:
			onProgress(fmt.Sprintf("Rendering video... (check %d/%d)", check, s.maxChecks))
		}
	}
	return "", fmt.Errorf("Kling task %s timed out after %d checks", taskID, s.maxChecks)
}

func (s *Service) checkTask(ctx context.Context, taskID string) (*taskStatusResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/"+taskID, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+s.generateJWT())

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("Kling status call failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read Kling status response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Kling status returned %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed taskStatusResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse Kling status response: %w", err)
	}
	if parsed.Code != 0 {
		return nil, fmt.Errorf("Kling status failed (code %d): %s", parsed.Code, parsed.Message)
	}
	return &parsed, nil
}
