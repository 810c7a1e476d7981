// Package match runs the image-to-catalog pipeline: caption, structured query,
// broad catalog fetch and the in-memory refinement cascade.
package match

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/jewelmatch/internal/domain"
	"github.com/kailas-cloud/jewelmatch/internal/domain/cascade"
	"github.com/kailas-cloud/jewelmatch/internal/domain/catalog"
	"github.com/kailas-cloud/jewelmatch/internal/domain/jewelry"
	"github.com/kailas-cloud/jewelmatch/internal/domain/query"
	"github.com/kailas-cloud/jewelmatch/internal/domain/rules"
	domsignal "github.com/kailas-cloud/jewelmatch/internal/domain/signal"
	"github.com/kailas-cloud/jewelmatch/internal/logger"
	"github.com/kailas-cloud/jewelmatch/internal/metrics"
	"github.com/kailas-cloud/jewelmatch/internal/usecase/signal"
)

const sourceColor = "color"

// Outcome is a completed match together with the intermediate artifacts.
type Outcome struct {
	Result  cascade.Result
	Caption string
	Query   jewelry.Query
	Passes  []cascade.Pass
}

// Service coordinates the match pipeline.
type Service struct {
	captioner Captioner
	extractor QueryExtractor
	catalog   CatalogSearcher
	signals   SignalExtractor
	detector  *domsignal.Detector
	rules     rules.Set
	limit     int
}

// New creates a match service. A non-positive limit selects cascade.DefaultLimit.
func New(
	captioner Captioner,
	extractor QueryExtractor,
	searcher CatalogSearcher,
	signals SignalExtractor,
	detector *domsignal.Detector,
	limit int,
) *Service {
	if limit <= 0 {
		limit = cascade.DefaultLimit
	}
	return &Service{
		captioner: captioner,
		extractor: extractor,
		catalog:   searcher,
		signals:   signals,
		detector:  detector,
		rules:     detector.Rules(),
		limit:     limit,
	}
}

// Find captions the image and runs the pipeline on the caption.
func (s *Service) Find(ctx context.Context, imageURL string) (Outcome, error) {
	caption, err := s.captioner.Caption(ctx, imageURL)
	if err != nil {
		if errors.Is(err, domain.ErrCaptionFailure) {
			return Outcome{}, err
		}
		return Outcome{}, fmt.Errorf("%w: %w", domain.ErrCaptionFailure, err)
	}
	caption = strings.TrimSpace(caption)
	if caption == "" {
		return Outcome{}, fmt.Errorf("%w: empty caption", domain.ErrCaptionFailure)
	}

	logger.FromContext(ctx).Info("caption generated", zap.String("caption", caption))
	return s.FindForCaption(ctx, caption)
}

// FindForCaption runs the pipeline from an existing caption.
func (s *Service) FindForCaption(ctx context.Context, caption string) (Outcome, error) {
	q, err := s.extractor.Extract(ctx, caption)
	if err != nil {
		if errors.Is(err, domain.ErrExtractionFailure) {
			return Outcome{Caption: caption}, err
		}
		return Outcome{Caption: caption}, fmt.Errorf("%w: %w", domain.ErrExtractionFailure, err)
	}

	logger.FromContext(ctx).Info("structured query extracted", zap.Stringer("query", q))

	res, passes, err := s.Run(ctx, caption, q)
	if err != nil {
		return Outcome{Caption: caption, Query: q}, err
	}
	return Outcome{Result: res, Caption: caption, Query: q, Passes: passes}, nil
}

// Run executes the cascade for a structured query and its caption.
func (s *Service) Run(ctx context.Context, caption string, q jewelry.Query) (cascade.Result, []cascade.Pass, error) {
	log := logger.FromContext(ctx)
	norm := query.Normalize(q, s.rules)

	log.Debug("query normalized",
		zap.Any("search_types", norm.SearchTypes),
		zap.String("title_term", norm.TitleTerm),
		zap.Strings("style_terms", norm.StyleTerms),
		zap.String("discriminating_term", norm.DiscriminatingTerm),
		zap.String("discriminating_source", string(norm.DiscriminatingSource)),
	)

	var p1, p2, p3 cascade.Pass
	var pass2Tried domsignal.Set

	for stage := cascade.Pass1Broad; stage != cascade.Combine; stage = stage.Next() {
		var p cascade.Pass
		switch stage {
		case cascade.Pass1Broad:
			var err error
			p1, err = s.broad(ctx, norm)
			if err != nil {
				return cascade.Result{}, nil, err
			}
			p = p1
		case cascade.Pass2Tighten:
			p2, pass2Tried = s.tighten(caption, norm, p1.Items)
			p = p2
		case cascade.Pass3Refine:
			p3 = s.refine(ctx, caption, q, norm, p2, pass2Tried)
			p = p3
		}
		observe(ctx, p)

		if stage == cascade.Pass1Broad && len(p1.Items) == 0 {
			p2, p3 = cascade.Skip(cascade.Pass2Tighten, nil), cascade.Skip(cascade.Pass3Refine, nil)
			break
		}
	}

	sel := cascade.Backfill(s.limit, p1, p2, p3)
	res := cascade.Assemble(sel)
	metrics.MatchSourcePassTotal.WithLabelValues(string(res.SourcePass)).Inc()

	log.Info("cascade complete",
		zap.String("source_pass", string(res.SourcePass)),
		zap.Int("total_found", res.TotalFound),
		zap.Int("total_found_by_primary_source", res.TotalFoundByPrimarySource),
	)
	return res, []cascade.Pass{p1, p2, p3}, nil
}

// broad fetches every search type and merges the results. A failing type does
// not stop the others; the fetch only fails when nothing usable came back.
func (s *Service) broad(ctx context.Context, norm query.Normalized) (cascade.Pass, error) {
	log := logger.FromContext(ctx)

	var (
		all      []catalog.Item
		firstErr error
	)
	for _, t := range norm.SearchTypes {
		criteria := catalog.Criteria{
			Title: norm.TitleTerm,
			Style: norm.StyleTerms,
			Type:  string(t),
		}
		items, err := s.catalog.Search(ctx, criteria)
		all = append(all, items...)
		if err != nil {
			log.Warn("catalog search failed",
				zap.String("type", string(t)),
				zap.Int("partial_items", len(items)),
				zap.Error(err),
			)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		log.Debug("catalog search done", zap.String("type", string(t)), zap.Int("items", len(items)))
	}

	if len(all) == 0 && firstErr != nil {
		return cascade.Pass{}, fmt.Errorf("%w: %w", domain.ErrSearchUnavailable, firstErr)
	}
	return cascade.Broad(all), nil
}

// tighten runs Pass 2. A non-standard caption color beats the normalized
// design term; if the color filter empties the set the design term is tried.
// It returns every term attempted so Pass 3 does not repeat them.
func (s *Service) tighten(caption string, norm query.Normalized, input []catalog.Item) (cascade.Pass, domsignal.Set) {
	tried := domsignal.NewSet()

	if color := s.detector.Color(caption, domsignal.NewSet(norm.TitleTerm)); color != "" {
		tried.Add(color)
		p := cascade.Tighten(cascade.Pass2Tighten, sourceColor, input, color)
		if p.Outcome == cascade.Adopted || norm.DiscriminatingTerm == "" {
			return p, tried
		}
	}

	if norm.DiscriminatingTerm == "" {
		return cascade.Skip(cascade.Pass2Tighten, input), tried
	}
	tried.Add(norm.DiscriminatingTerm)
	return cascade.Tighten(cascade.Pass2Tighten, string(norm.DiscriminatingSource), input, norm.DiscriminatingTerm), tried
}

// refine runs Pass 3 on the output of Pass 2, which already falls back to
// Pass 1's items when Pass 2 did not adopt a filter.
func (s *Service) refine(
	ctx context.Context, caption string, q jewelry.Query, norm query.Normalized,
	p2 cascade.Pass, pass2Tried domsignal.Set,
) cascade.Pass {
	input := p2.Items

	used := domsignal.NewSet(string(q.Type()), q.Material(), q.Design(), norm.TitleTerm)
	used.Add(q.Categories()...)
	for _, t := range norm.SearchTypes {
		used.Add(string(t))
	}

	sig := s.signals.Extract(ctx, signal.Input{
		Caption:    caption,
		Categories: q.Categories(),
		Excluded:   pass2Tried,
		Used:       used,
	})
	if sig.IsNone() || pass2Tried.Has(sig.Term) {
		return cascade.Skip(cascade.Pass3Refine, input)
	}

	terms := []string{sig.Term}
	if sig.Source == domsignal.SourceInscription {
		if core := domsignal.CoreInscription(sig.Term); core != "" {
			terms = append(terms, core)
		}
	}
	return cascade.Tighten(cascade.Pass3Refine, string(sig.Source), input, terms...)
}

func observe(ctx context.Context, p cascade.Pass) {
	metrics.CascadePassTotal.WithLabelValues(p.Stage.String(), string(p.Outcome)).Inc()
	logger.FromContext(ctx).Info("cascade pass",
		zap.Stringer("pass", p.Stage),
		zap.String("term", p.Term),
		zap.String("source", p.Source),
		zap.Int("candidates", p.Candidates),
		zap.String("outcome", string(p.Outcome)),
		zap.Int("items", len(p.Items)),
	)
}
