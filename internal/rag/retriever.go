// Package rag holds the retrieval and answer-synthesis half of the
// pipeline: query expansion, multi-query vector search, confidence
// scoring and grounded generation.
package rag

import (
	"context"
	"errors"
	"sort"

	"github.com/hajime-dev/devicekb/internal/ai"
	"github.com/hajime-dev/devicekb/internal/config"
	"github.com/hajime-dev/devicekb/internal/model"
	"github.com/hajime-dev/devicekb/internal/vectorstore"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

var errAllSearchesFailed = errors.New("every retrieval search failed")

type Retriever struct {
	invoker  *ai.Invoker
	embedder ai.IEmbedder
	store    vectorstore.IStore
	cfg      config.RetrievalConfig
}

func NewRetriever(invoker *ai.Invoker, embedder ai.IEmbedder, store vectorstore.IStore, cfg config.RetrievalConfig) *Retriever {
	return &Retriever{invoker: invoker, embedder: embedder, store: store, cfg: cfg}
}

// Retrieve expands the query, searches the namespace once per variation
// and returns the merged, tiered evidence list. Results below the
// acceptable tier never leave this function.
func (r *Retriever) Retrieve(ctx context.Context, query string, namespace string, finalCount int) ([]model.RetrievalResult, error) {
	return r.RetrieveWithVariations(ctx, r.expandQuery(ctx, query, nil), namespace, finalCount)
}

// RetrieveForConversation is Retrieve with earlier user turns informing the
// query expansion, so follow-up questions keep their referent.
func (r *Retriever) RetrieveForConversation(ctx context.Context, query string, priorTurns []string, namespace string, finalCount int) ([]model.RetrievalResult, error) {
	return r.RetrieveWithVariations(ctx, r.expandQuery(ctx, query, priorTurns), namespace, finalCount)
}

// RetrieveWithVariations runs the merge pipeline over caller-supplied
// variations. The template filler uses this with its generated per-field
// questions instead of paying a second expansion call.
func (r *Retriever) RetrieveWithVariations(ctx context.Context, variations []string, namespace string, finalCount int) ([]model.RetrievalResult, error) {
	if finalCount <= 0 {
		finalCount = r.cfg.FinalCount
	}
	best := map[string]vectorstore.Match{}
	searched := 0
	for _, variation := range variations {
		vec, err := r.embedder.Embed(ctx, variation, ai.TaskTypeQuery)
		if err != nil {
			logutil.GetLogger(ctx).Warn("failed to embed query variation", zap.String("variation", variation), zap.Error(err))
			continue
		}
		matches, err := r.store.Query(ctx, namespace, vec, r.cfg.PerQueryTopK)
		if err != nil {
			logutil.GetLogger(ctx).Warn("vector search failed for variation", zap.String("variation", variation), zap.Error(err))
			continue
		}
		searched++
		for _, m := range matches {
			// Dedupe by chunk id, keeping the best similarity any
			// variation observed.
			if prev, ok := best[m.Chunk.ID]; !ok || m.Similarity > prev.Similarity {
				best[m.Chunk.ID] = m
			}
		}
	}
	if searched == 0 && len(variations) > 0 {
		return nil, errAllSearchesFailed
	}

	results := make([]model.RetrievalResult, 0, len(best))
	for _, m := range best {
		composite := r.cfg.SimilarityWeight*m.Similarity +
			r.cfg.QualityWeight*m.Chunk.QualityScore +
			r.cfg.ImportanceWeight*m.Chunk.ImportanceScore
		tier := r.tierFor(composite)
		if tier == model.TierRejected {
			continue
		}
		results = append(results, model.RetrievalResult{
			Chunk:           *m.Chunk,
			Filename:        m.Filename,
			SimilarityScore: m.Similarity,
			CompositeScore:  composite,
			Tier:            tier,
		})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].CompositeScore != results[j].CompositeScore {
			return results[i].CompositeScore > results[j].CompositeScore
		}
		return results[i].Chunk.ID < results[j].Chunk.ID
	})
	if len(results) > finalCount {
		results = results[:finalCount]
	}
	return results, nil
}

func (r *Retriever) tierFor(score float64) model.ConfidenceTier {
	switch {
	case score >= r.cfg.TierCritical:
		return model.TierCritical
	case score >= r.cfg.TierHigh:
		return model.TierHigh
	case score >= r.cfg.TierAcceptable:
		return model.TierAcceptable
	default:
		return model.TierRejected
	}
}
