package services

import (
	"context"
	"testing"
)

func TestTFIDFSimilarityIdenticalTexts(t *testing.T) {
	t.Parallel()
	s := NewTFIDFSimilarity()
	got, err := s.Similarity(context.Background(), "rate limit exceeded on ingest", "rate limit exceeded on ingest")
	if err != nil {
		t.Fatalf("similarity: %v", err)
	}
	if got < 0.999 {
		t.Fatalf("identical texts: got=%v want~1", got)
	}
}

func TestTFIDFSimilarityDisjointTexts(t *testing.T) {
	t.Parallel()
	s := NewTFIDFSimilarity()
	got, err := s.Similarity(context.Background(), "alpha beta gamma", "delta epsilon zeta")
	if err != nil {
		t.Fatalf("similarity: %v", err)
	}
	if got != 0 {
		t.Fatalf("disjoint texts: got=%v want=0", got)
	}
}

func TestTFIDFSimilarityEmptyText(t *testing.T) {
	t.Parallel()
	s := NewTFIDFSimilarity()
	got, err := s.Similarity(context.Background(), "", "anything at all")
	if err != nil {
		t.Fatalf("similarity: %v", err)
	}
	if got != 0 {
		t.Fatalf("empty side: got=%v want=0", got)
	}
}

func TestTFIDFSimilaritySymmetric(t *testing.T) {
	t.Parallel()
	s := NewTFIDFSimilarity()
	ab, _ := s.Similarity(context.Background(), "payment gateway retries", "gateway timeout on payment")
	ba, _ := s.Similarity(context.Background(), "gateway timeout on payment", "payment gateway retries")
	if ab != ba {
		t.Fatalf("asymmetric: ab=%v ba=%v", ab, ba)
	}
	if ab <= 0 || ab >= 1 {
		t.Fatalf("partial overlap must land strictly between 0 and 1: %v", ab)
	}
}

func TestTFIDFSimilarityDampensRepeats(t *testing.T) {
	t.Parallel()
	s := NewTFIDFSimilarity()
	// A single token repeated many times must not dominate the score.
	spam, _ := s.Similarity(context.Background(), "deploy deploy deploy deploy deploy", "deploy notes for the release")
	normal, _ := s.Similarity(context.Background(), "deploy", "deploy notes for the release")
	if spam > normal+0.2 {
		t.Fatalf("repeat dampening too weak: spam=%v normal=%v", spam, normal)
	}
}
