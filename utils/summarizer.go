package utils

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shelfquest/api/config"
)

// ErrSummarizerDisabled is returned when no summarizer service is configured.
var ErrSummarizerDisabled = errors.New("summarizer not configured")

var summarizerClient = &http.Client{Timeout: 20 * time.Second}

type summarizeRequest struct {
	Text      string `json:"text"`
	MaxLength int    `json:"max_length,omitempty"`
}

type summarizeResponse struct {
	Summary string `json:"summary"`
}

const summaryCacheTTL = 24 * time.Hour

func summaryCacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return "summary:" + hex.EncodeToString(sum[:])
}

// SummarizeText asks the AI service for a one-paragraph summary of the text.
// Summaries are cached in Redis keyed by content hash since re-summarizing
// unchanged notes is wasted model spend.
func SummarizeText(ctx context.Context, text string) (string, error) {
	cfg := config.Get()
	if cfg.SummarizerURL == "" {
		return "", ErrSummarizerDisabled
	}

	key := summaryCacheKey(text)
	if b, ok := CacheGetBytes(key); ok {
		return string(b), nil
	}

	body, err := json.Marshal(summarizeRequest{Text: text})
	if err != nil {
		return "", err
	}

	timeout := time.Duration(cfg.SummarizerTimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.SummarizerURL+"/summarize-note", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "ShelfQuest/1.0 (compatible; ShelfQuestAPI/1.0)")

	resp, err := summarizerClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("summarizer returned status %d", resp.StatusCode)
	}

	var out summarizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if out.Summary == "" {
		return "", errors.New("summarizer returned empty summary")
	}

	CacheSetBytes(key, []byte(out.Summary), summaryCacheTTL)
	return out.Summary, nil
}
