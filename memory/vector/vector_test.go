package vector

import "testing"

func TestCosineSimilarity(t *testing.T) {
	t.Run("identical vectors score 1", func(t *testing.T) {
		if got := CosineSimilarity([]float64{1, 2, 3}, []float64{1, 2, 3}); got < 0.999999 {
			t.Errorf("expected ~1.0, got %v", got)
		}
	})

	t.Run("orthogonal vectors score 0", func(t *testing.T) {
		if got := CosineSimilarity([]float64{1, 0}, []float64{0, 1}); got != 0 {
			t.Errorf("expected 0, got %v", got)
		}
	})

	t.Run("mismatched lengths score 0", func(t *testing.T) {
		if got := CosineSimilarity([]float64{1, 2}, []float64{1}); got != 0 {
			t.Errorf("expected 0, got %v", got)
		}
	})

	t.Run("zero vector scores 0", func(t *testing.T) {
		if got := CosineSimilarity([]float64{0, 0}, []float64{1, 1}); got != 0 {
			t.Errorf("expected 0, got %v", got)
		}
	})
}

func TestMatchesWhere(t *testing.T) {
	meta := map[string]interface{}{"agent_id": "a1", "outcome": "success"}

	if !MatchesWhere(meta, nil) {
		t.Error("expected nil where to match everything")
	}
	if !MatchesWhere(meta, map[string]interface{}{"agent_id": "a1"}) {
		t.Error("expected matching filter to pass")
	}
	if MatchesWhere(meta, map[string]interface{}{"agent_id": "a2"}) {
		t.Error("expected non-matching filter to fail")
	}
	if MatchesWhere(meta, map[string]interface{}{"missing_key": "x"}) {
		t.Error("expected missing key to fail the filter")
	}
}
