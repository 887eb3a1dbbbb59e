package controller

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/glyphkey/kbcompanion/internal/bridge"
	"github.com/glyphkey/kbcompanion/internal/models"
)

const areaPrompts = "prompts"

// Prompts is the saved prompts screen. Prompts live in the keyboard process.
type Prompts struct {
	recordDeps
}

// List returns the prompts known to the keyboard.
func (p *Prompts) List(ctx context.Context) ([]models.Prompt, error) {
	res, err := p.invoke(ctx, bridge.PromptsChannel, bridge.MethodGetPrompts, nil)
	if err != nil {
		return nil, p.bridgeError("list prompts", err)
	}
	prompts := []models.Prompt{}
	if err := decodeResult(res, &prompts); err != nil {
		return nil, models.ErrBridge("list prompts: malformed keyboard reply")
	}
	return prompts, nil
}

// Save creates a prompt. Empty titles or texts are rejected before any call
// is made. Keyboards without savePrompt get the older addPrompt.
func (p *Prompts) Save(ctx context.Context, title, text string) (models.Prompt, error) {
	title, text = strings.TrimSpace(title), strings.TrimSpace(text)
	if title == "" {
		return models.Prompt{}, models.ErrInvalidField("title", "title is required")
	}
	if text == "" {
		return models.Prompt{}, models.ErrInvalidField("prompt", "prompt text is required")
	}

	prompt := models.Prompt{
		ID:        uuid.NewString(),
		Title:     title,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}
	if err := p.withFallback(ctx, bridge.MethodSavePrompt, bridge.MethodAddPrompt, argsOf(prompt)); err != nil {
		return models.Prompt{}, p.bridgeError("save prompt", err)
	}
	p.published(areaPrompts)
	return prompt, nil
}

// Delete removes a prompt by ID, falling back to removePrompt.
func (p *Prompts) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return models.ErrInvalidField("id", "prompt id is required")
	}
	if err := p.withFallback(ctx, bridge.MethodDeletePrompt, bridge.MethodRemovePrompt, map[string]any{"id": id}); err != nil {
		return p.bridgeError("delete prompt", err)
	}
	p.published(areaPrompts)
	return nil
}

func (p *Prompts) withFallback(ctx context.Context, method, legacy string, args map[string]any) error {
	_, err := p.invoke(ctx, bridge.PromptsChannel, method, args)
	if errors.Is(err, bridge.ErrNotImplemented) {
		p.log.Debug("controller: falling back to legacy prompt method", "method", method, "legacy", legacy)
		_, err = p.invoke(ctx, bridge.PromptsChannel, legacy, args)
	}
	return err
}
