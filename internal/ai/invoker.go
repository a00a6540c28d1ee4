package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// Item is one independent prompt inside a batched call.
type Item struct {
	Key    string
	Prompt string
}

// ItemResult carries the answer for one item, in the same position the
// item held in the input slice.
type ItemResult struct {
	Key  string
	Text string
	Err  error
}

const itemMarkerPrefix = "### ITEM "

var itemMarkerRe = regexp.MustCompile(`(?m)^###\s*ITEM\s+(\d+)\s*$`)

// Invoker batches independent prompts into combined calls against the
// completion service. All calls pass through the shared Governor and the
// retry policy; raw batch responses are cached so that repeating an
// identical batch costs no external call.
type Invoker struct {
	generator   IGenerator
	governor    *Governor
	retry       *RetryPolicy
	batchSize   int
	callTimeout time.Duration
	cache       *lru.Cache[string, string]
}

func NewInvoker(generator IGenerator, governor *Governor, retry *RetryPolicy, batchSize int, cacheSize int, callTimeout time.Duration) (*Invoker, error) {
	if generator == nil {
		return nil, fmt.Errorf("generator is required")
	}
	if batchSize < 1 {
		batchSize = 1
	}
	if cacheSize < 1 {
		cacheSize = 1
	}
	cache, err := lru.New[string, string](cacheSize)
	if err != nil {
		return nil, err
	}
	return &Invoker{
		generator:   generator,
		governor:    governor,
		retry:       retry,
		batchSize:   batchSize,
		callTimeout: callTimeout,
		cache:       cache,
	}, nil
}

// Generate issues a single uncached prompt through the governor and retry
// policy. Components with one-off prompts share the same limits as batched
// callers.
func (iv *Invoker) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	return iv.call(ctx, prompt, opts)
}

// InvokeBatch answers every item and returns results in input order. Item
// failures are reported per position; one bad item never fails its
// batchmates.
func (iv *Invoker) InvokeBatch(ctx context.Context, items []Item, opts GenerateOptions) []ItemResult {
	results := make([]ItemResult, len(items))
	for i, it := range items {
		results[i].Key = it.Key
	}
	for start := 0; start < len(items); start += iv.batchSize {
		end := start + iv.batchSize
		if end > len(items) {
			end = len(items)
		}
		iv.invokeChunk(ctx, items[start:end], opts, results[start:end])
	}
	return results
}

func (iv *Invoker) invokeChunk(ctx context.Context, items []Item, opts GenerateOptions, out []ItemResult) {
	if len(items) == 0 {
		return
	}
	if len(items) == 1 {
		text, err := iv.cachedCall(ctx, items[0].Prompt, opts)
		out[0].Text = text
		out[0].Err = err
		return
	}
	resp, err := iv.cachedCall(ctx, iv.buildBatchPrompt(items), opts)
	if err != nil {
		for i := range out {
			out[i].Err = err
		}
		return
	}
	parts, perr := parseBatchResponse(resp, len(items))
	if perr == nil {
		for i := range out {
			out[i].Text = parts[i]
		}
		return
	}
	// Marker count mismatch: split the chunk and retry each half so one
	// misbehaving item cannot poison the rest.
	logutil.GetLogger(ctx).Warn("batch response did not match item markers, splitting",
		zap.Int("items", len(items)), zap.Error(perr))
	mid := len(items) / 2
	iv.invokeChunk(ctx, items[:mid], opts, out[:mid])
	iv.invokeChunk(ctx, items[mid:], opts, out[mid:])
}

func (iv *Invoker) buildBatchPrompt(items []Item) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Answer the following %d independent items.\n", len(items))
	sb.WriteString("Begin the answer to each item with a line containing exactly \"")
	sb.WriteString(itemMarkerPrefix)
	sb.WriteString("k\" where k is the item number. Do not merge, reorder or skip items.\n")
	for i, it := range items {
		fmt.Fprintf(&sb, "\n%s%d\n%s\n", itemMarkerPrefix, i+1, it.Prompt)
	}
	return sb.String()
}

// parseBatchResponse splits a combined response back into n answers. It
// requires exactly the markers 1..n, each exactly once.
func parseBatchResponse(resp string, n int) ([]string, error) {
	locs := itemMarkerRe.FindAllStringSubmatchIndex(resp, -1)
	if len(locs) != n {
		return nil, fmt.Errorf("expected %d item markers, found %d", n, len(locs))
	}
	parts := make([]string, n)
	seen := make([]bool, n)
	for i, loc := range locs {
		num, err := strconv.Atoi(resp[loc[2]:loc[3]])
		if err != nil || num < 1 || num > n {
			return nil, fmt.Errorf("unexpected item marker %q", resp[loc[0]:loc[1]])
		}
		if seen[num-1] {
			return nil, fmt.Errorf("duplicate item marker %d", num)
		}
		seen[num-1] = true
		contentStart := loc[1]
		contentEnd := len(resp)
		if i+1 < len(locs) {
			contentEnd = locs[i+1][0]
		}
		parts[num-1] = strings.TrimSpace(resp[contentStart:contentEnd])
	}
	return parts, nil
}

func (iv *Invoker) cachedCall(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	key := cacheKey(prompt, opts)
	if cached, ok := iv.cache.Get(key); ok {
		return cached, nil
	}
	resp, err := iv.call(ctx, prompt, opts)
	if err != nil {
		return "", err
	}
	iv.cache.Add(key, resp)
	return resp, nil
}

func (iv *Invoker) call(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	var resp string
	fn := func(ctx context.Context) error {
		if iv.governor != nil {
			release, err := iv.governor.Acquire(ctx)
			if err != nil {
				return err
			}
			defer release()
		}
		if iv.callTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, iv.callTimeout)
			defer cancel()
		}
		res, err := iv.generator.Generate(ctx, prompt, opts)
		if err != nil {
			return err
		}
		resp = res
		return nil
	}
	if iv.retry == nil {
		if err := fn(ctx); err != nil {
			return "", err
		}
		return resp, nil
	}
	if err := iv.retry.Do(ctx, fn); err != nil {
		return "", err
	}
	return resp, nil
}

func cacheKey(prompt string, opts GenerateOptions) string {
	h := sha256.New()
	fmt.Fprintf(h, "t=%.4f|m=%d|", opts.Temperature, opts.MaxTokens)
	h.Write([]byte(prompt))
	return hex.EncodeToString(h.Sum(nil))
}
