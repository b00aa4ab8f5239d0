package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/wellspring/ai"
	"github.com/poiesic/wellspring/bridge"
	"github.com/poiesic/wellspring/core"
	"github.com/poiesic/wellspring/resonance"
)

// analysisProcessor analyzes the text, substituting the fallback analysis
// when the analyzer fails or returns an invalid result.
type analysisProcessor struct {
	analyzer ai.Analyzer
	timeout  time.Duration
	logger   *slog.Logger
}

var _ processor = (*analysisProcessor)(nil)

func (ap *analysisProcessor) state() JobState {
	return StateAnalyzing
}

func (ap *analysisProcessor) process(ctx context.Context, w *work) error {
	text := w.text
	result, err := detached(ctx, ap.timeout, func(ctx context.Context) (*core.AnalysisResult, error) {
		return ap.analyzer.Analyze(ctx, text)
	})
	if err == nil {
		err = core.ValidateAnalysis(result)
	}
	if err != nil {
		ap.logger.Warn("analysis failed, using fallback", "job", w.job.Id, "error", err)
		w.recovered(ErrAnalysisFailure, err)
		w.analysis = core.FallbackAnalysis()
		return nil
	}
	w.analysis = result
	return nil
}

// resonanceProcessor searches the owner's library for related documents.
type resonanceProcessor struct {
	detector *resonance.Detector
	timeout  time.Duration
	logger   *slog.Logger
}

var _ processor = (*resonanceProcessor)(nil)

func (rp *resonanceProcessor) state() JobState {
	return StateResonanceSearch
}

func (rp *resonanceProcessor) process(ctx context.Context, w *work) error {
	var found []core.DocumentResonance
	err := bounded(ctx, rp.timeout, func(ctx context.Context) error {
		var err error
		found, err = rp.detector.FindResonances(ctx, w.candidate(), w.docID)
		return err
	})
	if err != nil {
		rp.logger.Warn("resonance search failed", "job", w.job.Id, "error", err)
		w.recovered(ErrResonanceSearchFailure, err)
		found = nil
	}
	if found == nil {
		found = []core.DocumentResonance{}
	}
	w.resonances = found
	return nil
}

// bridgeProcessor matches the document against the concept bridge table.
type bridgeProcessor struct {
	mapper *bridge.Mapper
	logger *slog.Logger
}

var _ processor = (*bridgeProcessor)(nil)

func (bp *bridgeProcessor) state() JobState {
	return StateConceptBridging
}

func (bp *bridgeProcessor) process(_ context.Context, w *work) (err error) {
	defer func() {
		if r := recover(); r != nil {
			cause := fmt.Errorf("bridge detection panicked: %v", r)
			bp.logger.Warn("bridge mapping failed", "job", w.job.Id, "error", cause)
			w.recovered(ErrBridgeMappingFailure, cause)
			w.bridges = []core.ConceptBridge{}
			err = nil
		}
	}()

	w.bridges = bp.mapper.DetectBridges(w.analysis, w.text, w.docID, w.job.Attribution.SharedContributor())
	if w.bridges == nil {
		w.bridges = []core.ConceptBridge{}
	}
	return nil
}
