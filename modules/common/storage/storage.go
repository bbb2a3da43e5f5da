package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/supabase-community/supabase-go"

	"storyboard-server/modules/common/config"
	"storyboard-server/modules/common/utils"
)

// AssetKind - what a stored asset is used as
type AssetKind string

const (
	AssetSceneImage     AssetKind = "scene_image"
	AssetReferenceImage AssetKind = "reference_image"
	AssetSketch         AssetKind = "sketch"
)

// Client persists generated images: WebP in Supabase storage plus a row in
// storyboard_assets linking the file to the entity it belongs to. A nil
// supabase client turns every call into a logged no-op so the server runs
// without persistence configured.
type Client struct {
	supabase *supabase.Client
	bucket   string
}

// NewClient - storage client, nil-backed when Supabase is not configured
func NewClient() *Client {
	cfg := config.GetConfig()
	if cfg.SupabaseURL == "" || cfg.SupabaseServiceKey == "" {
		log.Println("⚠️  Supabase not configured, asset persistence disabled")
		return &Client{bucket: cfg.SupabaseStorageBucket}
	}

	sb, err := supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseServiceKey, &supabase.ClientOptions{})
	if err != nil {
		log.Printf("❌ Failed to create Supabase client: %v", err)
		return &Client{bucket: cfg.SupabaseStorageBucket}
	}
	return &Client{supabase: sb, bucket: cfg.SupabaseStorageBucket}
}

// Enabled - whether persistence is actually wired
func (c *Client) Enabled() bool {
	return c.supabase != nil
}

// AssetRecord - row shape for the storyboard_assets table
type AssetRecord struct {
	AssetID   string `json:"asset_id"`
	EntityID  string `json:"entity_id"`
	Kind      string `json:"kind"`
	FilePath  string `json:"file_path"`
	FileSize  int64  `json:"file_size"`
	MimeType  string `json:"mime_type"`
	CreatedAt string `json:"created_at"`
}

// UploadImage converts the image to WebP, uploads it under the entity's
// folder and inserts an asset record. Returns the public URL of the stored
// file, or "" when persistence is disabled.
func (c *Client) UploadImage(ctx context.Context, entityID string, kind AssetKind, imageData []byte) (string, error) {
	if !c.Enabled() {
		return "", nil
	}
	cfg := config.GetConfig()

	webpData, err := utils.ConvertToWebP(imageData, 90.0)
	if err != nil {
		return "", fmt.Errorf("failed to convert image to WebP: %w", err)
	}

	assetID := uuid.NewString()
	filePath := fmt.Sprintf("%s/%s/%s.webp", kind, entityID, assetID)

	log.Printf("📤 Uploading WebP image to storage: %s", filePath)

	uploadURL := fmt.Sprintf("%s/storage/v1/object/%s/%s", cfg.SupabaseURL, c.bucket, filePath)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, bytes.NewReader(webpData))
	if err != nil {
		return "", fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+cfg.SupabaseServiceKey)
	req.Header.Set("Content-Type", "image/webp")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("upload failed with status %d: %s", resp.StatusCode, string(body))
	}

	record := AssetRecord{
		AssetID:   assetID,
		EntityID:  entityID,
		Kind:      string(kind),
		FilePath:  filePath,
		FileSize:  int64(len(webpData)),
		MimeType:  "image/webp",
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if _, _, err := c.supabase.From("storyboard_assets").Insert(record, false, "", "", "").Execute(); err != nil {
		// The file is uploaded; a missing record is recoverable, not fatal.
		log.Printf("⚠️  Failed to insert asset record %s: %v", assetID, err)
	}

	publicURL := fmt.Sprintf("%s/storage/v1/object/public/%s/%s", cfg.SupabaseURL, c.bucket, filePath)
	log.Printf("✅ WebP image uploaded successfully: %s (%d bytes)", filePath, len(webpData))
	return publicURL, nil
}

// Download - fetch a stored or external asset over HTTP
func (c *Client) Download(ctx context.Context, url string) ([]byte, error) {
	log.Printf("📥 Downloading asset from: %s", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create download request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download asset: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("download failed with status %d: %s", resp.StatusCode, string(body))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read asset data: %w", err)
	}
	log.Printf("✅ Asset downloaded successfully: %d bytes", len(data))
	return data, nil
}

// AssetsFor - stored asset records for one entity
func (c *Client) AssetsFor(ctx context.Context, entityID string) ([]AssetRecord, error) {
	if !c.Enabled() {
		return nil, nil
	}

	data, _, err := c.supabase.From("storyboard_assets").
		Select("*", "exact", false).
		Eq("entity_id", entityID).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to query storyboard_assets: %w", err)
	}

	var records []AssetRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse asset records: %w", err)
	}
	return records, nil
}
