package storage

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg" // JPEG 디코더 등록
	_ "image/png"  // PNG 디코더 등록
	"io"
	"log"
	"net/http"
	"time"

	"github.com/kolesa-team/go-webp/encoder"
	"github.com/kolesa-team/go-webp/webp"
	"github.com/supabase-community/supabase-go"

	"aigen-server/modules/common/config"
)

// Client - Supabase 아카이브 클라이언트
// SUPABASE_URL이 비어 있으면 생성되지 않으며 아카이브는 전체 비활성
type Client struct {
	supabase   *supabase.Client
	httpClient *http.Client
}

// NewClient - 아카이브 클라이언트 생성. 설정이 없으면 (nil, nil)
func NewClient(cfg *config.Config) (*Client, error) {
	if !cfg.ArchiveEnabled() {
		log.Println("⚠️  Archive disabled (SUPABASE_URL not set)")
		return nil, nil
	}

	supabaseClient, err := supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseServiceKey, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to create Supabase client: %w", err)
	}

	log.Println("✅ Supabase archive client initialized")
	return &Client{
		supabase:   supabaseClient,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}, nil
}

// Archive - 생성 결과를 WebP로 변환해 Storage에 올리고 기록을 남김
func (c *Client) Archive(ctx context.Context, sessionID string, data []byte, mimeType string) error {
	webpData, err := convertToWebP(data, 90.0)
	if err != nil {
		return fmt.Errorf("failed to convert result to WebP: %w", err)
	}

	fileName := fmt.Sprintf("result_%d.webp", time.Now().UnixNano()/int64(time.Millisecond))
	filePath := fmt.Sprintf("aigen-results/session-%s/%s", sessionID, fileName)

	if err := c.upload(ctx, filePath, webpData); err != nil {
		return err
	}

	// 아카이브 레코드 생성
	record := map[string]interface{}{
		"session_id": sessionID,
		"file_path":  filePath,
		"file_size":  len(webpData),
		"mime_type":  "image/webp",
	}
	if _, _, err := c.supabase.From("aigen_archive").Insert(record, false, "", "", "").Execute(); err != nil {
		return fmt.Errorf("failed to insert archive record: %w", err)
	}

	log.Printf("✅ Result archived: %s (%d bytes)", filePath, len(webpData))
	return nil
}

// upload - Supabase Storage API에 직접 업로드
func (c *Client) upload(ctx context.Context, filePath string, webpData []byte) error {
	cfg := config.GetConfig()
	uploadURL := fmt.Sprintf("%s/storage/v1/object/aigen/%s", cfg.SupabaseURL, filePath)

	req, err := http.NewRequestWithContext(ctx, "POST", uploadURL, bytes.NewReader(webpData))
	if err != nil {
		return fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+cfg.SupabaseServiceKey)
	req.Header.Set("Content-Type", "image/webp")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to upload image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("upload failed with status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// convertToWebP - 이미지 바이트를 lossy WebP로 변환
func convertToWebP(data []byte, quality float32) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	options, err := encoder.NewLossyEncoderOptions(encoder.PresetDefault, quality)
	if err != nil {
		return nil, fmt.Errorf("failed to create encoder options: %w", err)
	}

	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, options); err != nil {
		return nil, fmt.Errorf("failed to encode WebP: %w", err)
	}
	return buf.Bytes(), nil
}
