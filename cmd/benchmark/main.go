package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"lexai/config"
	"lexai/internal/adapter/embedding"
	"lexai/internal/adapter/retriever"
	"lexai/internal/adapter/store"
	"lexai/internal/usecase"
)

func main() {
	dir := flag.String("dir", ".", "Directory holding lexai.yaml and the corpus")
	query := flag.String("q", "", "Query to test")
	topK := flag.Int("k", 5, "Number of results")
	runs := flag.Int("n", 20, "Timed retrieval runs")
	flag.Parse()

	if *query == "" {
		fmt.Println("Usage: go run ./cmd/benchmark -dir . -q \"query\"")
		fmt.Println("\nReports:")
		fmt.Println("  1. Index build (cached vs newly embedded passages)")
		fmt.Println("  2. Hybrid ranking with cosine, boost and fused score")
		fmt.Println("  3. Retrieval latency over repeated runs")
		os.Exit(1)
	}

	cfg, err := config.LoadFromDir(*dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	r, build, err := buildRetriever(ctx, cfg, *dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Retriever not available: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("HYBRID RETRIEVAL BENCHMARK")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Passages: %d (cached %d, embedded %d, skipped %d)\n",
		build.Passages, build.Cached, build.Embedded, build.Skipped)
	fmt.Printf("Model: %s (%s)\n", cfg.Embedding.Model, cfg.Embedding.Provider)
	fmt.Printf("Build time: %s\n", build.Duration.Round(time.Millisecond))
	fmt.Println()

	fmt.Printf("Query: \"%s\" (rights query: %v)\n", *query, retriever.IsRightsQuery(*query))
	fmt.Println(strings.Repeat("-", 70))

	results, err := r.RetrieveScored(ctx, *query, *topK)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search error: %v\n", err)
		os.Exit(1)
	}
	if len(results) == 0 {
		fmt.Println("No results. Is the corpus empty?")
		os.Exit(1)
	}

	fmt.Printf("Top %d hybrid matches:\n\n", len(results))

	totalCosine := 0.0
	for i, c := range results {
		preview := []rune(strings.ReplaceAll(c.Passage.Content, "\n", " "))
		if len(preview) > 150 {
			preview = append(preview[:150], []rune("...")...)
		}
		totalCosine += c.Cosine

		rating := "LOW"
		if c.Cosine > 0.7 {
			rating = "HIGH"
		} else if c.Cosine > 0.5 {
			rating = "GOOD"
		} else if c.Cosine > 0.3 {
			rating = "OK"
		}

		source := "dense+sparse"
		switch {
		case c.DenseDistance == nil:
			source = "sparse only"
		case c.SparseScore == nil:
			source = "dense only"
		}

		fmt.Printf("%d. [%s %.3f] passage %d, chapter %s, boost %+.1f, fused %.3f (%s)\n",
			i+1, rating, c.Cosine, c.Passage.ID, c.Passage.Metadata.Chapter, c.Boost, c.FusedScore, source)
		fmt.Printf("   %s\n\n", string(preview))
	}

	latencies := make([]time.Duration, 0, *runs)
	for i := 0; i < *runs; i++ {
		start := time.Now()
		if _, err := r.RetrieveScored(ctx, *query, *topK); err != nil {
			fmt.Fprintf(os.Stderr, "Search error: %v\n", err)
			os.Exit(1)
		}
		latencies = append(latencies, time.Since(start))
	}

	avgCosine := totalCosine / float64(len(results))
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("QUALITY METRICS:\n")
	fmt.Printf("  Average cosine: %.3f\n", avgCosine)
	fmt.Printf("  Top-1 fused:    %.3f\n", results[0].FusedScore)
	if len(latencies) > 0 {
		fmt.Printf("  Latency p50:    %s\n", percentile(latencies, 0.50))
		fmt.Printf("  Latency p95:    %s\n", percentile(latencies, 0.95))
	}

	if avgCosine > 0.5 {
		fmt.Println("  Status: GOOD - dense similarity is strong")
	} else if avgCosine > 0.3 {
		fmt.Println("  Status: OK - results are somewhat related")
	} else {
		fmt.Println("  Status: POOR - ranking leans on BM25 and the boost")
	}
}

func buildRetriever(ctx context.Context, cfg *config.Config, dir string) (*retriever.HybridRetriever, *usecase.BuildResult, error) {
	embedder, err := embedding.FromConfig(cfg.Embedding, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("embedder init failed: %w", err)
	}

	opts := []usecase.IndexOption{
		usecase.WithBM25Params(retriever.BM25Params{K1: cfg.Retrieve.K1, B: cfg.Retrieve.B, Epsilon: cfg.Retrieve.Epsilon}),
		usecase.WithBatching(cfg.Embedding.BatchSize, cfg.Embedding.Workers),
		usecase.WithHybridOptions(retriever.WithBoostWeight(cfg.Retrieve.BoostWeight)),
	}

	cachePath := config.ResolvePath(dir, cfg.Embedding.CachePath)
	if _, err := os.Stat(cachePath); err == nil {
		cache, err := store.NewBoltEmbeddingCache(cachePath)
		if err != nil {
			return nil, nil, err
		}
		defer cache.Close()
		if _, err := cache.Prepare(cfg); err != nil {
			return nil, nil, err
		}
		opts = append(opts, usecase.WithEmbeddingCache(cache))
	}

	r, build, err := usecase.NewIndexUseCase(config.ResolvePath(dir, cfg.Corpus.Path), embedder, opts...).Build(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	if build.LoadErr != nil {
		return nil, nil, build.LoadErr
	}
	return r, build, nil
}

func percentile(samples []time.Duration, p float64) time.Duration {
	sorted := append([]time.Duration(nil), samples...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	idx := int(float64(len(sorted)-1) * p)
	return sorted[idx].Round(time.Microsecond)
}
