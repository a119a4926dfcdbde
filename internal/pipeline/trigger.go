package pipeline

import (
	"context"

	"go.uber.org/zap"
)

// The Trigger variants reserve the operation slot before returning and run
// the cycle detached. A concurrent caller sees ErrAlreadyRunning immediately,
// which the HTTP trigger endpoints surface as a conflict.

// TriggerFetchAll starts a detached fetch cycle over all active sources.
func (p *Pipeline) TriggerFetchAll() error {
	release, err := p.ops.Begin(OpFetch)
	if err != nil {
		return err
	}
	go func() {
		defer release()
		if _, err := p.fetchAll(context.Background()); err != nil {
			p.logger.Warn("triggered fetch failed", zap.Error(err))
		}
	}()
	return nil
}

// TriggerProcess starts a detached analysis cycle.
func (p *Pipeline) TriggerProcess() error {
	release, err := p.ops.Begin(OpProcess)
	if err != nil {
		return err
	}
	go func() {
		defer release()
		if _, err := p.process(context.Background()); err != nil {
			p.logger.Warn("triggered process failed", zap.Error(err))
		}
	}()
	return nil
}

// TriggerSynthesize starts a detached synthesis run.
func (p *Pipeline) TriggerSynthesize(periodDays int, withDigest bool) error {
	release, err := p.ops.Begin(OpSynthesize)
	if err != nil {
		return err
	}
	go func() {
		defer release()
		if _, err := p.synthesize(context.Background(), periodDays, withDigest); err != nil {
			p.logger.Warn("triggered synthesis failed", zap.Error(err))
		}
	}()
	return nil
}
