package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	DefaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"
	DefaultOpenRouterModel   = "openai/gpt-3.5-turbo"
	DefaultAppName           = "AI Chatbot"
)

type OpenRouterProvider struct {
	BaseURL string
	APIKey  string
	Model   string
	SiteURL string
	AppName string
	Client  *http.Client
}

type openRouterMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openRouterChatReq struct {
	Model    string          `json:"model"`
	Messages []openRouterMsg `json:"messages"`
}

// Reply fields are pointers so that a choice without a message, or a message
// without string content, can be told apart from an empty reply.
type openRouterReply struct {
	Role    string  `json:"role"`
	Content *string `json:"content"`
}

type openRouterChoice struct {
	Message *openRouterReply `json:"message"`
}

type openRouterChatResp struct {
	Choices []*openRouterChoice `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewOpenRouterProvider builds a provider for the OpenRouter chat completions
// endpoint. The key is not validated here; a bad or missing key shows up as a
// failed completion on first use.
func NewOpenRouterProvider(baseURL, apiKey, model, siteURL, appName string) *OpenRouterProvider {
	if baseURL == "" {
		baseURL = DefaultOpenRouterBaseURL
	}
	if model == "" {
		model = DefaultOpenRouterModel
	}
	if appName == "" {
		appName = DefaultAppName
	}
	return &OpenRouterProvider{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Model:   model,
		SiteURL: siteURL,
		AppName: appName,
		// no timeout: a send ends only when the upstream answers or fails
		Client: &http.Client{},
	}
}

func toOpenRouterMsgs(messages []Message) []openRouterMsg {
	out := make([]openRouterMsg, 0, len(messages))
	for _, m := range messages {
		out = append(out, openRouterMsg{Role: WireRole(m.Role), Content: m.Content})
	}
	return out
}

func (p *OpenRouterProvider) Chat(ctx context.Context, messages []Message) (string, error) {
	if p.Client == nil {
		return "", failed("openrouter", errors.New("http client is nil"))
	}

	b, err := json.Marshal(openRouterChatReq{
		Model:    p.Model,
		Messages: toOpenRouterMsgs(messages),
	})
	if err != nil {
		return "", failed("openrouter", err)
	}

	url := fmt.Sprintf("%s/chat/completions", strings.TrimRight(p.BaseURL, "/"))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return "", failed("openrouter", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.APIKey)
	if p.SiteURL != "" {
		req.Header.Set("HTTP-Referer", p.SiteURL)
	}
	if p.AppName != "" {
		req.Header.Set("X-Title", p.AppName)
	}

	resp, err := p.Client.Do(req)
	if err != nil {
		return "", failed("openrouter", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return "", failed("openrouter", fmt.Errorf("status %d: %s", resp.StatusCode, msg))
	}

	var decoded openRouterChatResp
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", failed("openrouter", fmt.Errorf("decode response: %w", err))
	}
	if decoded.Error != nil && decoded.Error.Message != "" {
		return "", failed("openrouter", errors.New(decoded.Error.Message))
	}
	if len(decoded.Choices) == 0 {
		return "", failed("openrouter", errors.New("empty choices"))
	}
	first := decoded.Choices[0]
	if first == nil || first.Message == nil || first.Message.Content == nil {
		return "", failed("openrouter", errors.New("malformed choice"))
	}
	return *first.Message.Content, nil
}
