// Package stimulus produces and verifies the supporting material a
// question can carry: SVG diagrams, data tables, reading passages, and
// rendered images. Model-supplied stimuli are verified before
// acceptance; missing ones are synthesized from the question itself.
package stimulus

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonathan/exam-compiler/internal/llm"
	"github.com/jonathan/exam-compiler/internal/prompts"
	"github.com/jonathan/exam-compiler/internal/types"
)

// Kinds recognized by the resolver.
const (
	KindSVG     = "svg"
	KindTable   = "table"
	KindPassage = "passage"
	KindImage   = "image"
)

// Resolver materializes question stimuli through an inference client.
type Resolver struct {
	client llm.Client
}

// NewResolver creates a Resolver.
func NewResolver(client llm.Client) *Resolver {
	return &Resolver{client: client}
}

// Resolve ensures the candidate carries a verified stimulus of the given
// kind. A stimulus the model already attached is verified in place; a
// missing or failing one is regenerated once from the question stem.
func (r *Resolver) Resolve(ctx context.Context, c *types.QuestionCandidate, p *types.UnitPayload, kind string) error {
	switch kind {
	case KindSVG, KindTable, KindPassage:
		return r.resolveText(ctx, c, p, kind)
	case KindImage:
		return r.resolveImage(ctx, c, p)
	default:
		return fmt.Errorf("unknown stimulus kind %q", kind)
	}
}

func (r *Resolver) resolveText(ctx context.Context, c *types.QuestionCandidate, p *types.UnitPayload, kind string) error {
	if c.Stimulus != nil && c.Stimulus.Kind == kind {
		if err := verify(kind, c.Stimulus.Content); err == nil {
			return nil
		}
	}

	description := describeWanted(c, kind)
	template, err := prompts.Get("stimulus.json", kind)
	if err != nil {
		return err
	}
	prompt := prompts.Format(template, map[string]string{
		"CourseName":      p.CourseName,
		"QuestionStem":    c.Stem(),
		"Description":     description,
		"MaxTextElements": fmt.Sprintf("%d", maxSVGTextElements),
		"MinWords":        fmt.Sprintf("%d", passageMinWords),
		"MaxWords":        fmt.Sprintf("%d", passageMaxWords),
	})

	raw, err := r.client.GenerateContent(ctx, prompt, llm.TierStandard)
	if err != nil {
		return err
	}
	content := strings.TrimSpace(llm.CleanJSONBlock(raw))

	if err := verify(kind, content); err != nil {
		return err
	}

	c.Stimulus = &types.Stimulus{
		Kind:    kind,
		Content: content,
		AltText: altText(c, description),
	}
	return nil
}

func (r *Resolver) resolveImage(ctx context.Context, c *types.QuestionCandidate, p *types.UnitPayload) error {
	// For images the model supplies a description, not the artifact.
	description := describeWanted(c, KindImage)

	template, err := prompts.Get("stimulus.json", KindImage)
	if err != nil {
		return err
	}
	prompt := prompts.Format(template, map[string]string{
		"CourseName":   p.CourseName,
		"QuestionStem": c.Stem(),
		"Description":  description,
	})

	dataURI, err := generateImage(ctx, r.client, prompt)
	if err != nil {
		return err
	}

	c.Stimulus = &types.Stimulus{
		Kind:    KindImage,
		Content: dataURI,
		AltText: altText(c, description),
	}
	return nil
}

// Verify checks a stimulus artifact of a known textual kind.
func Verify(kind, content string) error {
	return verify(kind, content)
}

func verify(kind, content string) error {
	switch kind {
	case KindSVG:
		return VerifySVG(content)
	case KindTable:
		_, err := RenderTableHTML(content)
		return err
	case KindPassage:
		return VerifyPassage(content)
	default:
		return fmt.Errorf("unknown stimulus kind %q", kind)
	}
}

// describeWanted picks the generation description: a model-supplied
// stimulus body doubles as the description when present, otherwise the
// question stem stands in.
func describeWanted(c *types.QuestionCandidate, kind string) string {
	if c.Stimulus != nil && strings.TrimSpace(c.Stimulus.Content) != "" {
		if kind == KindImage || c.Stimulus.Kind != kind {
			return c.Stimulus.Content
		}
	}
	return c.Stem()
}

func altText(c *types.QuestionCandidate, description string) string {
	if c.Stimulus != nil && c.Stimulus.AltText != "" {
		return c.Stimulus.AltText
	}
	const limit = 160
	if len(description) > limit {
		return description[:limit]
	}
	return description
}
