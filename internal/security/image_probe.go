package security

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// ImageProbe は画像URLに実際にアクセスし、画像が取得可能かを確認する。
// 本番ではNewSafeClientのクライアントを渡す。
type ImageProbe struct {
	client *http.Client
}

// NewImageProbe はImageProbeを生成する。
func NewImageProbe(client *http.Client) *ImageProbe {
	return &ImageProbe{client: client}
}

// Probe は画像URLにHEADリクエストを送り、2xxかつContent-Typeがimage/*であることを確認する。
func (p *ImageProbe) Probe(ctx context.Context, imageURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, imageURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build image request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("image is unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("image returned status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(strings.ToLower(ct), "image/") {
		return fmt.Errorf("unexpected content type %q", ct)
	}
	return nil
}
