package ingestion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"finetica/internal/metrics"
	"finetica/internal/models"
	"finetica/pkg/config"

	"github.com/Role1776/gigago"
	"go.uber.org/zap"
)

var ErrExtractorDisabled = errors.New("field extraction is disabled")

// FieldExtractor turns a document's text into raw values keyed by the family's schema.
type FieldExtractor interface {
	Extract(ctx context.Context, docType models.DocumentType, text string) (models.Fields, error)
}

// NoopExtractor leaves every upload for manual attention.
type NoopExtractor struct{}

func (NoopExtractor) Extract(ctx context.Context, docType models.DocumentType, text string) (models.Fields, error) {
	return nil, ErrExtractorDisabled
}

const systemInstruction = `You extract structured data from accounting documents (invoices, contracts, bank statements).
Answer with a single JSON object and nothing else. Use only the keys you are given.
Amounts are plain numbers with a dot as decimal separator and no currency symbol.
Dates are YYYY-MM-DD. Booleans are true or false. Use null when a value is not present in the text.
Never invent values.`

// maxPromptText keeps long statements inside the model's context window.
const maxPromptText = 12000

type GigaChatExtractor struct {
	client *gigago.Client
	model  *gigago.GenerativeModel
	logger *zap.Logger
}

func NewGigaChatExtractor(ctx context.Context, cfg *config.GigaChatConfig, logger *zap.Logger) (*GigaChatExtractor, error) {
	opts := []gigago.Option{
		gigago.WithCustomScope(cfg.Scope),
	}
	if cfg.InsecureSkipVerify {
		opts = append(opts, gigago.WithCustomInsecureSkipVerify(true))
		logger.Warn("GigaChat TLS certificate verification is disabled")
	}

	client, err := gigago.NewClient(ctx, cfg.APIKey, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GigaChat client: %w", err)
	}

	modelName := cfg.Model
	if modelName == "" {
		modelName = "GigaChat"
	}
	model := client.GenerativeModel(modelName)
	model.SystemInstruction = systemInstruction
	model.Temperature = 0.1

	logger.Info("GigaChat extractor ready", zap.String("model", modelName))

	return &GigaChatExtractor{
		client: client,
		model:  model,
		logger: logger,
	}, nil
}

func (e *GigaChatExtractor) Extract(ctx context.Context, docType models.DocumentType, text string) (models.Fields, error) {
	start := time.Now()
	defer func() {
		metrics.CaptureDependency("gigachat", time.Since(start))
	}()

	messages := []gigago.Message{
		{Role: gigago.RoleUser, Content: buildPrompt(docType, text)},
	}

	resp, err := e.model.Generate(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("failed to generate response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("no response from LLM")
	}

	fields, err := parseFieldsJSON(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}

	e.logger.Info("Fields extracted",
		zap.String("family", string(docType)),
		zap.Int("fields", len(fields)),
	)
	return fields, nil
}

func (e *GigaChatExtractor) Close() error {
	return e.client.Close()
}

func buildPrompt(docType models.DocumentType, text string) string {
	text = truncateText(text, maxPromptText)

	var keys strings.Builder
	for _, spec := range models.Schema(docType) {
		fmt.Fprintf(&keys, "- %s (%s): %s\n", spec.Key, spec.Kind, spec.Label)
	}

	return fmt.Sprintf(`Document family: %s

Extract these keys:
%s
Document text:
%s`, docType, keys.String(), text)
}

// truncateText cuts s to at most limit bytes without splitting a rune.
func truncateText(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// parseFieldsJSON takes the first JSON object out of a model answer, tolerating
// markdown fences and surrounding prose.
func parseFieldsJSON(content string) (models.Fields, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end == -1 || end < start {
		return nil, fmt.Errorf("invalid response format: %s", content)
	}

	dec := json.NewDecoder(strings.NewReader(content[start : end+1]))
	dec.UseNumber()

	var fields models.Fields
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w", err)
	}
	return fields, nil
}
