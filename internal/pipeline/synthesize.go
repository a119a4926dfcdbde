package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"hypewatch/internal/model"
	"hypewatch/internal/synthesis"
)

// Synthesize aggregates the period's claims into topic syntheses and a hype
// assessment, persists the run, and returns it. A run with zero claims is
// still recorded: "nothing happened" is a result. withDigest additionally
// asks the gateway for the markdown digest; a digest failure degrades to a
// run without one.
func (p *Pipeline) Synthesize(ctx context.Context, periodDays int, withDigest bool) (*model.SynthesisRun, error) {
	release, err := p.ops.Begin(OpSynthesize)
	if err != nil {
		return nil, err
	}
	defer release()
	return p.synthesize(ctx, periodDays, withDigest)
}

// synthesize is the cycle body; the caller holds the synthesize slot.
func (p *Pipeline) synthesize(ctx context.Context, periodDays int, withDigest bool) (*model.SynthesisRun, error) {
	if periodDays <= 0 {
		periodDays = 7
	}

	claims, err := p.store.RecentClaims(ctx, periodDays)
	if err != nil {
		return nil, fmt.Errorf("recent claims: %w", err)
	}

	groups := synthesis.GroupByTopic(claims)
	topics := p.engine.SynthesizeAll(ctx, groups)
	assessment := p.engine.AssessHype(ctx, topics)

	run := model.SynthesisRun{
		RunID:       uuid.NewString(),
		PeriodDays:  periodDays,
		ClaimCount:  len(claims),
		Topics:      topics,
		Assessment:  assessment,
		GeneratedAt: time.Now().UTC(),
	}

	if withDigest {
		digest, err := p.gw.GenerateDigest(ctx, run)
		if err != nil {
			p.logger.Warn("digest generation failed, saving run without one", zap.Error(err))
		} else {
			run.Digest = digest
		}
	}

	if err := p.store.SaveSynthesisRun(ctx, run); err != nil {
		return nil, err
	}

	p.logger.Info("synthesis run saved",
		zap.String("run_id", run.RunID),
		zap.Int("claims", run.ClaimCount),
		zap.Int("topics", len(run.Topics)),
		zap.Bool("digest", run.Digest != ""))
	return &run, nil
}
