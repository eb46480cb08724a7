package repository_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/nugget-pipeline/internal/models"
	"github.com/nugget-pipeline/internal/repository"
)

// fillQueue enqueues n ideas and retires all but the last one in key order
func fillQueue(b *testing.B, repos *repository.Repositories, n int) {
	b.Helper()
	ctx := context.Background()
	for i := 0; i < n; i++ {
		s, err := repos.Idea.Enqueue(ctx, &models.IdeaSeed{
			Title: fmt.Sprintf("Idea %05d", i),
			Topic: "benchmark",
			Tags:  []string{"testing"},
		})
		if err != nil {
			b.Fatalf("Enqueue failed: %v", err)
		}
		if i < n-1 {
			if _, err := repos.Idea.SetStatus(ctx, s, models.IdeaStatusSkipped, nil); err != nil {
				b.Fatalf("SetStatus failed: %v", err)
			}
		}
	}
}

// BenchmarkNextPending measures the linear scan with the only pending idea last
func BenchmarkNextPending(b *testing.B) {
	for _, order := range []repository.QueueOrder{repository.OrderKey, repository.OrderCreated} {
		b.Run(string(order), func(b *testing.B) {
			repos, _, _ := setup(order)
			fillQueue(b, repos, 1000)

			b.ResetTimer()
			b.ReportAllocs()

			for i := 0; i < b.N; i++ {
				idea, err := repos.Idea.NextPending(context.Background())
				if err != nil || idea == nil {
					b.Fatalf("NextPending: %v %v", idea, err)
				}
			}

			b.ReportMetric(float64(1000*b.N)/b.Elapsed().Seconds(), "records/sec")
		})
	}
}

// BenchmarkTransitionStatus measures one compare-and-swap round trip
func BenchmarkTransitionStatus(b *testing.B) {
	repos, _, _ := setup(repository.OrderKey)
	ctx := context.Background()
	s, err := repos.Idea.Enqueue(ctx, &models.IdeaSeed{Title: "Flip Flop", Topic: "benchmark", Tags: []string{"testing"}})
	if err != nil {
		b.Fatalf("Enqueue failed: %v", err)
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if _, err := repos.Idea.TransitionStatus(ctx, s, models.IdeaStatusInProgress, nil, models.IdeaStatusPending); err != nil {
			b.Fatal(err)
		}
		if _, err := repos.Idea.TransitionStatus(ctx, s, models.IdeaStatusPending, nil, models.IdeaStatusInProgress); err != nil {
			b.Fatal(err)
		}
	}
}
