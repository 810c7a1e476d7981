// Package signal picks the Pass 3 refinement term from the raw caption.
package signal

import (
	"context"
	"strings"

	"go.uber.org/zap"

	domsignal "github.com/kailas-cloud/jewelmatch/internal/domain/signal"
	"github.com/kailas-cloud/jewelmatch/internal/logger"
)

// Input is what the extractor knows about the request.
type Input struct {
	Caption    string
	Categories []string
	// Excluded terms are never returned (the terms Pass 2 tried).
	Excluded domsignal.Set
	// Used terms are every search term spent so far; they are reported to the
	// keyword suggester together with Excluded and the stop-word list.
	Used domsignal.Set
}

// Service runs the signal priority chain: color, inscription, secondary
// category, then the keyword suggester.
type Service struct {
	detector  *domsignal.Detector
	suggester KeywordSuggester
}

// New creates a signal service. suggester can be nil, which disables the AI fallback.
func New(detector *domsignal.Detector, suggester KeywordSuggester) *Service {
	return &Service{detector: detector, suggester: suggester}
}

// Extract returns the first signal not in in.Excluded, or domsignal.None.
// A failing suggester is logged and treated as no signal.
func (s *Service) Extract(ctx context.Context, in Input) domsignal.Signal {
	log := logger.FromContext(ctx)

	if color := s.detector.Color(in.Caption, in.Excluded); color != "" {
		return domsignal.Signal{Term: color, Source: domsignal.SourceColor}
	}

	if term := s.detector.Inscription(in.Caption); term != "" {
		if !in.Excluded.Has(term) {
			return domsignal.Signal{Term: term, Source: domsignal.SourceInscription}
		}
		log.Debug("inscription already used", zap.String("term", term))
	}

	if cat := s.detector.SecondaryCategory(in.Categories, in.Excluded); cat != "" {
		return domsignal.Signal{Term: cat, Source: domsignal.SourceSecondaryCategory}
	}

	if s.suggester == nil {
		return domsignal.None
	}

	exclude := in.Excluded.Union(in.Used)
	exclude.Add(s.detector.Rules().StopWords...)

	kw, err := s.suggester.SuggestKeyword(ctx, in.Caption, exclude.Sorted())
	if err != nil {
		log.Warn("keyword suggestion failed", zap.Error(err))
		return domsignal.None
	}

	kw = strings.ToLower(strings.TrimSpace(kw))
	switch {
	case kw == "":
		return domsignal.None
	case exclude.Has(kw), s.detector.Rules().IsGenericFallbackWord(kw):
		log.Debug("keyword suggestion rejected", zap.String("keyword", kw))
		return domsignal.None
	}
	return domsignal.Signal{Term: kw, Source: domsignal.SourceAIFallback}
}
