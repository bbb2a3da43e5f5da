package runware

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"storyboard-server/modules/common/model"
	"storyboard-server/modules/common/retry"
	"storyboard-server/modules/provider"
)

const apiURL = "https://api.runware.ai/v1"

// Service - alternate image provider over the Runware task API
type Service struct {
	apiKey     string
	model      string
	httpClient *http.Client
}

func NewService(apiKey, imageModel string) *Service {
	return &Service{
		apiKey: apiKey,
		model:  imageModel,
		httpClient: &http.Client{
			Timeout: 180 * time.Second,
		},
	}
}

func (s *Service) Name() string { return "runware" }

// taskRequest - one element of the task array Runware expects
type taskRequest struct {
	TaskType        string   `json:"taskType"`
	TaskUUID        string   `json:"taskUUID"`
	PositivePrompt  string   `json:"positivePrompt,omitempty"`
	NegativePrompt  string   `json:"negativePrompt,omitempty"`
	Model           string   `json:"model,omitempty"`
	Width           int      `json:"width,omitempty"`
	Height          int      `json:"height,omitempty"`
	NumberResults   int      `json:"numberResults,omitempty"`
	OutputFormat    string   `json:"outputFormat,omitempty"`
	Seed            int64    `json:"seed,omitempty"`
	ReferenceImages []string `json:"referenceImages,omitempty"`
	SeedImage       string   `json:"seedImage,omitempty"`
	Strength        float64  `json:"strength,omitempty"`
}

type taskResponse struct {
	Data []struct {
		TaskUUID string `json:"taskUUID"`
		ImageURL string `json:"imageURL"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// ValidateKey - run an authentication task with the candidate key
func (s *Service) ValidateKey(ctx context.Context, apiKey string) (model.ProviderModels, error) {
	task := taskRequest{
		TaskType: "authentication",
		TaskUUID: uuid.NewString(),
	}
	probe := &Service{apiKey: apiKey, model: s.model, httpClient: s.httpClient}
	if _, err := probe.post(ctx, []taskRequest{task}); err != nil {
		return model.ProviderModels{}, fmt.Errorf("Runware key validation failed: %w", err)
	}
	return model.ProviderModels{
		ImageModels: []string{"bytedance:seedream@4", "bytedance:seedream-3.0", "runware:101@1"},
	}, nil
}

// GenerateImage - one imageInference task; reference images ride along as
// data URLs
func (s *Service) GenerateImage(ctx context.Context, req provider.ImageRequest) (model.UploadedImage, error) {
	width, height := dimensions(req.AspectRatio)

	task := taskRequest{
		TaskType:       "imageInference",
		TaskUUID:       uuid.NewString(),
		PositivePrompt: req.Prompt,
		NegativePrompt: req.NegativePrompt,
		Model:          s.modelFor(req),
		Width:          width,
		Height:         height,
		NumberResults:  1,
		OutputFormat:   "PNG",
		Seed:           req.Seed,
	}
	for _, ref := range req.References {
		task.ReferenceImages = append(task.ReferenceImages, dataURL(ref.MimeType, ref.Data))
	}
	if len(task.ReferenceImages) > 0 {
		log.Printf("📷 [Runware] Adding %d reference images", len(task.ReferenceImages))
	}

	return s.runImageTask(ctx, task)
}

// EditImage - image-to-image anchored on the scene's current frame
func (s *Service) EditImage(ctx context.Context, req provider.ImageRequest) (model.UploadedImage, error) {
	if req.BaseImage == nil {
		return model.UploadedImage{}, fmt.Errorf("edit requires a base image")
	}
	width, height := dimensions(req.AspectRatio)

	strength := req.SeedStrength
	if strength == 0 {
		strength = 0.6
	}

	task := taskRequest{
		TaskType:       "imageInference",
		TaskUUID:       uuid.NewString(),
		PositivePrompt: req.Prompt,
		NegativePrompt: req.NegativePrompt,
		Model:          s.modelFor(req),
		Width:          width,
		Height:         height,
		NumberResults:  1,
		OutputFormat:   "PNG",
		Seed:           req.Seed,
		SeedImage:      dataURL(req.BaseImage.MimeType, req.BaseImage.Data),
		Strength:       strength,
	}
	return s.runImageTask(ctx, task)
}

func (s *Service) modelFor(req provider.ImageRequest) string {
	if req.Model != "" {
		return req.Model
	}
	return s.model
}

func (s *Service) runImageTask(ctx context.Context, task taskRequest) (model.UploadedImage, error) {
	log.Printf("🎨 [Runware] Generating image - model: %s, size: %dx%d", task.Model, task.Width, task.Height)

	var resp taskResponse
	err := retry.Do(ctx, retry.DefaultAttempts, retry.DefaultBase, func(ctx context.Context) error {
		var callErr error
		resp, callErr = s.post(ctx, []taskRequest{task})
		return callErr
	})
	if err != nil {
		return model.UploadedImage{}, err
	}

	if len(resp.Data) == 0 || resp.Data[0].ImageURL == "" {
		return model.UploadedImage{}, fmt.Errorf("no image generated from Runware")
	}

	imageData, err := s.download(ctx, resp.Data[0].ImageURL)
	if err != nil {
		return model.UploadedImage{}, fmt.Errorf("failed to download generated image: %w", err)
	}

	log.Printf("✅ [Runware] Image generated successfully (%d bytes)", len(imageData))
	return model.UploadedImage{
		Data:     base64.StdEncoding.EncodeToString(imageData),
		MimeType: "image/png",
		Size:     len(imageData),
	}, nil
}

func (s *Service) post(ctx context.Context, tasks []taskRequest) (taskResponse, error) {
	body, err := json.Marshal(tasks)
	if err != nil {
		return taskResponse{}, fmt.Errorf("failed to marshal Runware request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(body))
	if err != nil {
		return taskResponse{}, fmt.Errorf("failed to create Runware request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return taskResponse{}, fmt.Errorf("Runware API error: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return taskResponse{}, fmt.Errorf("failed to read Runware response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return taskResponse{}, fmt.Errorf("Runware API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed taskResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return taskResponse{}, fmt.Errorf("failed to parse Runware response: %w", err)
	}
	if len(parsed.Errors) > 0 {
		return taskResponse{}, fmt.Errorf("Runware task error: %s", parsed.Errors[0].Message)
	}
	return parsed, nil
}

func (s *Service) download(ctx context.Context, imageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func dataURL(mimeType, base64Data string) string {
	if mimeType == "" {
		mimeType = "image/png"
	}
	return "data:" + mimeType + ";base64," + base64Data
}

// dimensions - output resolution per aspect ratio, 2048 baseline
func dimensions(aspectRatio string) (int, int) {
	switch aspectRatio {
	case "16:9", "":
		return 2048, 1152
	case "9:16":
		return 1152, 2048
	case "4:3":
		return 2048, 1536
	case "3:4":
		return 1536, 2048
	default:
		return 2048, 2048
	}
}
