package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"google.golang.org/genai"

	"storyboard-server/modules/common/model"
	"storyboard-server/modules/common/retry"
	"storyboard-server/modules/provider"
)

// Service - Gemini text + image adapter over google.golang.org/genai
type Service struct {
	client     *genai.Client
	textModel  string
	imageModel string
}

// NewService - adapter bound to one API key
func NewService(ctx context.Context, apiKey, textModel, imageModel string) (*Service, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Genai client: %w", err)
	}
	return &Service{
		client:     client,
		textModel:  textModel,
		imageModel: imageModel,
	}, nil
}

func (s *Service) Name() string { return "gemini" }

// ValidateKey - issue a minimal generation with a throwaway client for the
// given key; a clean response proves the key works
func (s *Service) ValidateKey(ctx context.Context, apiKey string) (model.ProviderModels, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return model.ProviderModels{}, fmt.Errorf("failed to create Genai client: %w", err)
	}

	_, err = client.Models.GenerateContent(ctx, s.textModel,
		[]*genai.Content{{Parts: []*genai.Part{genai.NewPartFromText("ping")}}}, nil)
	if err != nil {
		return model.ProviderModels{}, fmt.Errorf("Gemini key validation failed: %w", err)
	}

	return model.ProviderModels{
		TextModels:  []string{"gemini-2.5-flash", "gemini-2.5-pro"},
		ImageModels: []string{"gemini-2.5-flash-image"},
	}, nil
}

// GenerateBlueprint - characters, locations and outline for an idea as JSON
func (s *Service) GenerateBlueprint(ctx context.Context, idea string, style model.VisualStyle) (model.Blueprint, error) {
	log.Printf("🎬 [Gemini] Generating blueprint for idea (%d chars, style: %s)", len(idea), style)

	raw, err := s.generateJSON(ctx, provider.BlueprintPrompt(idea, style))
	if err != nil {
		return model.Blueprint{}, err
	}

	var resp provider.BlueprintResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return model.Blueprint{}, fmt.Errorf("failed to parse blueprint response: %w", err)
	}
	return resp.ToBlueprint(), nil
}

// GenerateScenes - scene seeds expanding an accepted blueprint
func (s *Service) GenerateScenes(ctx context.Context, idea string, style model.VisualStyle, bp model.Blueprint, sceneCount int) ([]model.SceneSeed, error) {
	log.Printf("🎬 [Gemini] Generating %d scenes", sceneCount)

	raw, err := s.generateJSON(ctx, provider.ScenesPrompt(idea, style, bp, sceneCount))
	if err != nil {
		return nil, err
	}

	var seeds []model.SceneSeed
	if err := json.Unmarshal([]byte(raw), &seeds); err != nil {
		return nil, fmt.Errorf("failed to parse scenes response: %w", err)
	}
	return seeds, nil
}

// SuggestShotTypes - three alternative shot framings for a scene
func (s *Service) SuggestShotTypes(ctx context.Context, sc model.Scene) ([]string, error) {
	raw, err := s.generateJSON(ctx, provider.ShotTypesPrompt(sc))
	if err != nil {
		return nil, err
	}

	var shots []string
	if err := json.Unmarshal([]byte(raw), &shots); err != nil {
		return nil, fmt.Errorf("failed to parse shot suggestions: %w", err)
	}
	return shots, nil
}

// generateJSON - one JSON-mode text call with transient-error retry and
// markdown fence cleanup
func (s *Service) generateJSON(ctx context.Context, prompt string) (string, error) {
	var result *genai.GenerateContentResponse

	err := retry.Do(ctx, retry.DefaultAttempts, retry.DefaultBase, func(ctx context.Context) error {
		var callErr error
		result, callErr = s.client.Models.GenerateContent(
			ctx,
			s.textModel,
			[]*genai.Content{{Parts: []*genai.Part{genai.NewPartFromText(prompt)}}},
			&genai.GenerateContentConfig{
				ResponseMIMEType: "application/json",
			},
		)
		if callErr != nil {
			return fmt.Errorf("Gemini API call failed: %w", callErr)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return "", fmt.Errorf("no candidates in response")
	}
	for _, part := range result.Candidates[0].Content.Parts {
		if part.Text != "" {
			return cleanJSON(part.Text), nil
		}
	}
	return "", fmt.Errorf("no text data in response")
}

// GenerateImage - fresh still from prompt plus reference images
func (s *Service) GenerateImage(ctx context.Context, req provider.ImageRequest) (model.UploadedImage, error) {
	parts, err := imageParts(req, nil)
	if err != nil {
		return model.UploadedImage{}, err
	}
	return s.callImageModel(ctx, req, parts)
}

// EditImage - regeneration anchored on the scene's current image
func (s *Service) EditImage(ctx context.Context, req provider.ImageRequest) (model.UploadedImage, error) {
	if req.BaseImage == nil {
		return model.UploadedImage{}, fmt.Errorf("edit requires a base image")
	}
	parts, err := imageParts(req, req.BaseImage)
	if err != nil {
		return model.UploadedImage{}, err
	}
	return s.callImageModel(ctx, req, parts)
}

// imageParts - base image first, then references in order, then the prompt
func imageParts(req provider.ImageRequest, base *model.UploadedImage) ([]*genai.Part, error) {
	var parts []*genai.Part

	if base != nil {
		data, err := base64.StdEncoding.DecodeString(base.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode base image: %w", err)
		}
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{MIMEType: mimeOrPNG(base.MimeType), Data: data},
		})
	}

	for _, ref := range req.References {
		data, err := base64.StdEncoding.DecodeString(ref.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode reference image %q: %w", ref.Name, err)
		}
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{MIMEType: mimeOrPNG(ref.MimeType), Data: data},
		})
	}

	prompt := req.Prompt
	if req.NegativePrompt != "" {
		prompt += "\n\nAvoid: " + req.NegativePrompt
	}
	parts = append(parts, genai.NewPartFromText(prompt))
	return parts, nil
}

func (s *Service) callImageModel(ctx context.Context, req provider.ImageRequest, parts []*genai.Part) (model.UploadedImage, error) {
	imageModel := s.imageModel
	if req.Model != "" {
		imageModel = req.Model
	}
	aspectRatio := req.AspectRatio
	if aspectRatio == "" {
		aspectRatio = "16:9"
	}

	log.Printf("🎨 [Gemini] Calling image model %s (%d parts, aspect-ratio: %s)", imageModel, len(parts), aspectRatio)

	var result *genai.GenerateContentResponse
	err := retry.Do(ctx, retry.DefaultAttempts, retry.DefaultBase, func(ctx context.Context) error {
		var callErr error
		result, callErr = s.client.Models.GenerateContent(
			ctx,
			imageModel,
			[]*genai.Content{{Parts: parts}},
			&genai.GenerateContentConfig{
				ImageConfig: &genai.ImageConfig{AspectRatio: aspectRatio},
			},
		)
		if callErr != nil {
			return fmt.Errorf("Gemini API call failed: %w", callErr)
		}
		return nil
	})
	if err != nil {
		return model.UploadedImage{}, err
	}

	if len(result.Candidates) == 0 {
		return model.UploadedImage{}, fmt.Errorf("no candidates in response")
	}
	for _, candidate := range result.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				log.Printf("✅ [Gemini] Received image: %d bytes", len(part.InlineData.Data))
				return model.UploadedImage{
					Data:     base64.StdEncoding.EncodeToString(part.InlineData.Data),
					MimeType: mimeOrPNG(part.InlineData.MIMEType),
					Size:     len(part.InlineData.Data),
				}, nil
			}
		}
	}
	return model.UploadedImage{}, fmt.Errorf("no image data in response")
}

func mimeOrPNG(mime string) string {
	if mime == "" {
		return "image/png"
	}
	return mime
}

// cleanJSON strips markdown code fences some models wrap around JSON output
func cleanJSON(raw string) string {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	return strings.TrimSpace(cleaned)
}
