package answer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/docsummarizer/go-services/internal/chat"
	"github.com/docsummarizer/go-services/internal/document"
	genai "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// generator is satisfied by *genai.GenerativeModel.
type generator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

type Gemini struct {
	client  *genai.Client
	model   generator
	timeout time.Duration
}

func NewGemini(ctx context.Context, apiKey, model string, timeout time.Duration) (*Gemini, error) {
	if apiKey == "" {
		return nil, errors.New("missing gemini api key")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini init: %w", err)
	}
	m := client.GenerativeModel(model)
	m.SystemInstruction = genai.NewUserContent(genai.Text(
		"You help users understand documents they uploaded. Answer concisely. " +
			"If the question cannot be answered from the document, say so."))
	return &Gemini{client: client, model: m, timeout: timeout}, nil
}

func (g *Gemini) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}

func (g *Gemini) Respond(ctx context.Context, doc *document.Document, question string) (chat.Message, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt(doc, question)))
	if err != nil {
		return chat.Message{}, fmt.Errorf("gemini generate: %w", err)
	}
	text := responseText(resp)
	if text == "" {
		return chat.Message{}, errors.New("gemini: empty response")
	}
	return chat.Message{Text: text, Sender: chat.SenderAssistant, Timestamp: time.Now().UTC()}, nil
}

func prompt(doc *document.Document, question string) string {
	var b strings.Builder
	if doc != nil {
		fmt.Fprintf(&b, "Document: %q (%s, %d bytes)\n", doc.Name, doc.MimeType, doc.SizeBytes)
		if doc.URL != "" {
			fmt.Fprintf(&b, "Location: %s\n", doc.URL)
		}
	}
	fmt.Fprintf(&b, "Question: %s", strings.TrimSpace(question))
	return b.String()
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var parts []string
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			parts = append(parts, string(t))
		}
	}
	return strings.TrimSpace(strings.Join(parts, ""))
}
