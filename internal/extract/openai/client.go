package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"examextractor/internal/entity"
	"examextractor/internal/extract"
)

// PerformExtraction implements extract.QuestionExtractor over the vision
// chat/completions endpoint: each page image goes in as a data URL, the
// response is constrained to JSON and validated against the extraction
// schema before anything is returned.
func (c *Client) PerformExtraction(ctx context.Context, req extract.Request) (extract.Result, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.log.Info("extract.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"pages", len(req.Pages),
		"filename_hint", req.FilenameHint,
		"prompt_version", c.cfg.PromptVersion,
	)

	if len(req.Pages) == 0 {
		return extract.Result{}, &extract.ClassifiedError{
			Kind:    extract.KindUnknown,
			Message: "no page images supplied",
		}
	}

	schema := extract.BuildExtractionJSONSchema()
	content := []map[string]any{
		{"type": "text", "text": buildUserPrompt(req)},
	}
	for _, p := range req.Pages {
		content = append(content, map[string]any{
			"type": "image_url",
			"image_url": map[string]any{
				"url": fmt.Sprintf("data:%s;base64,%s", p.MimeType, base64.StdEncoding.EncodeToString(p.Data)),
			},
		})
	}

	body := map[string]any{
		"model":           c.cfg.Model,
		"temperature":     c.cfg.Temperature,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "system", "content": buildSystemPrompt(req)},
			{"role": "user", "content": content},
			{"role": "system", "content": "JSON Schema:\n" + mustJSON(schema)},
		},
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	raw, err := c.post(ctx, endpoint, body)
	if err != nil {
		c.log.Error("extract.http_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return extract.Result{}, err
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		c.log.Error("extract.decode_error",
			"req_id", rid, "error", err, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return extract.Result{}, &extract.ClassifiedError{
			Kind: extract.KindUnknown, Message: "decode provider response", Cause: err,
		}
	}
	if len(cc.Choices) == 0 {
		return extract.Result{}, &extract.ClassifiedError{
			Kind: extract.KindUnknown, Message: "no choices in provider response",
		}
	}

	payload := []byte(strings.TrimSpace(cc.Choices[0].Message.Content))
	if err := extract.ValidateJSONAgainstSchema(schema, payload); err != nil {
		c.log.Error("extract.schema_validation_failed",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return extract.Result{}, &extract.ClassifiedError{
			Kind: extract.KindUnknown, Message: "schema validation failed", Cause: err,
		}
	}

	var parsed struct {
		Questions []struct {
			entity.Question
			Confidence *float64 `json:"confidence,omitempty"`
		} `json:"questions"`
	}
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return extract.Result{}, &extract.ClassifiedError{
			Kind: extract.KindUnknown, Message: "unmarshal questions", Cause: err,
		}
	}

	out := extract.Result{
		PerQuestionConfidence: map[string]float64{},
		ModelName:             c.cfg.Model,
	}
	for _, q := range parsed.Questions {
		out.Questions = append(out.Questions, q.Question)
		if q.Confidence != nil {
			out.PerQuestionConfidence[q.ID] = *q.Confidence
		}
	}

	c.log.Info("extract.ok",
		"req_id", rid,
		"questions", len(out.Questions),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

func (c *Client) post(ctx context.Context, url string, body map[string]any) ([]byte, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &extract.ClassifiedError{
			Kind: extract.KindServiceUnavailable, Message: "provider unreachable", Cause: err,
		}
	}
	defer func(Body io.ReadCloser) {
		err := Body.Close()
		if err != nil {
			c.log.Warn("response body close error", "error", err)
		}
	}(resp.Body)

	buf := new(bytes.Buffer)
	_, _ = buf.ReadFrom(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, extract.Classify(resp.StatusCode,
			fmt.Sprintf("provider status %d: %s", resp.StatusCode, buf.String()),
			parseRetryAfter(resp.Header.Get("Retry-After")))
	}
	return buf.Bytes(), nil
}

func parseRetryAfter(h string) time.Duration {
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(h); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return 0
}

func buildSystemPrompt(req extract.Request) string {
	parts := []string{
		"You are an exam-paper parser. Return ONLY JSON that matches the JSON Schema provided.",
		"Extract every question from the scanned pages, including sub-questions.",
		"Keep the full original wording in 'full_text'; never paraphrase.",
		"Use 'main_question_number' and 'sub_question_label' for numbering (e.g. '3' and '(b)').",
		"Set 'marks' only when it is printed on the paper.",
		"Give each question a short stable 'id' unique within this paper.",
		"Report 'confidence' in [0,1] for each question when you are unsure about legibility.",
		"Never output null. If a field is not present, omit it.",
	}
	if req.SubjectHint != "" {
		parts = append(parts, "The paper's subject is: "+req.SubjectHint+".")
	}
	return strings.Join(parts, " ")
}

func buildUserPrompt(req extract.Request) string {
	var b strings.Builder
	b.WriteString("Filename: ")
	b.WriteString(req.FilenameHint)
	b.WriteString(fmt.Sprintf("\nPages attached: %d", len(req.Pages)))
	b.WriteString("\n\nExtract all questions. Return ONLY JSON matching the schema.")
	return b.String()
}

func mustJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
