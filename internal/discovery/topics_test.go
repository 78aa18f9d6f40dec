package discovery

import (
	"math"
	"testing"
)

func TestExtractTopicsRanksByFrequency(t *testing.T) {
	t.Parallel()
	texts := []string{
		"payment gateway timeout",
		"payment retries and gateway logs",
		"payment dashboard",
	}
	got := ExtractTopics(texts, 2)
	if len(got) != 2 || got[0] != "payment" || got[1] != "gateway" {
		t.Fatalf("got=%v want=[payment gateway]", got)
	}
}

func TestExtractTopicsDropsStopwordsAndShortTokens(t *testing.T) {
	t.Parallel()
	got := ExtractTopics([]string{"this is the fix for the api bug"}, 5)
	for _, topic := range got {
		if topic == "this" || topic == "the" {
			t.Fatalf("stopword leaked: %v", got)
		}
		if len(topic) < minTopicTokenLen {
			t.Fatalf("short token leaked: %v", got)
		}
	}
}

func TestExtractTopicsDeterministicTieBreak(t *testing.T) {
	t.Parallel()
	a := ExtractTopics([]string{"zebra apple zebra apple"}, 2)
	b := ExtractTopics([]string{"apple zebra apple zebra"}, 2)
	if len(a) != 2 || a[0] != b[0] || a[1] != b[1] {
		t.Fatalf("tie-break not deterministic: a=%v b=%v", a, b)
	}
	if a[0] != "apple" {
		t.Fatalf("ties break alphabetically: got=%v", a)
	}
}

func TestExtractTopicsEmptyInput(t *testing.T) {
	t.Parallel()
	got := ExtractTopics(nil, 5)
	if len(got) != 0 {
		t.Fatalf("got=%v want empty", got)
	}
}

func TestCoherenceScoreSmallGroups(t *testing.T) {
	t.Parallel()
	if got := CoherenceScore(0, 0, 0); got != 1.0 {
		t.Fatalf("empty group: got=%v want=1.0", got)
	}
	if got := CoherenceScore(1, 0, 0); got != 1.0 {
		t.Fatalf("single member: got=%v want=1.0", got)
	}
}

func TestCoherenceScoreBlend(t *testing.T) {
	t.Parallel()
	// 4 members, 2 of 6 possible edges, average confidence 0.6.
	want := 0.7*(2.0/6.0) + 0.3*0.6
	if got := CoherenceScore(4, 2, 0.6); math.Abs(got-want) > 1e-9 {
		t.Fatalf("got=%v want=%v", got, want)
	}
}

func TestCoherenceScoreBounded(t *testing.T) {
	t.Parallel()
	// Full clique with perfect confidence clamps at 1.0.
	if got := CoherenceScore(3, 3, 1.0); got != 1.0 {
		t.Fatalf("got=%v want=1.0", got)
	}
	if got := CoherenceScore(10, 0, 0); got != 0 {
		t.Fatalf("disconnected group: got=%v want=0", got)
	}
}
