package trace

import (
	"strings"
	"testing"
	"time"
)

func TestRecorder_NodeLifecycle(t *testing.T) {
	r := New("run-1", "graph-1", DefaultConfig())
	now := time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)

	t.Run("start node assigns ascending visit numbers", func(t *testing.T) {
		v1 := r.StartNode("plan", 0, map[string]interface{}{"goal": "x"}, now)
		v2 := r.StartNode("plan", 0, nil, now.Add(time.Second))
		if v1 != 1 || v2 != 2 {
			t.Errorf("expected visit numbers 1, 2, got %d, %d", v1, v2)
		}
	})

	t.Run("complete node matches by attempt", func(t *testing.T) {
		r2 := New("run-2", "graph-1", DefaultConfig())
		r2.StartNode("act", 0, nil, now)
		r2.StartNode("act", 1, nil, now)
		r2.CompleteNode("act", 1, map[string]interface{}{"result": "ok"}, true, "", "", 10, 50, "pass", now)

		tr := r2.GetTrace()
		if len(tr.Nodes) != 2 {
			t.Fatalf("expected 2 node records, got %d", len(tr.Nodes))
		}
		if tr.Nodes[0].Success {
			t.Error("expected attempt 0 to remain unset (never completed)")
		}
		if !tr.Nodes[1].Success || tr.Nodes[1].TokensUsed != 10 {
			t.Errorf("expected attempt 1 to be completed with tokens=10, got %+v", tr.Nodes[1])
		}
	})
}

func TestRecorder_GetTraceIsDeepCopy(t *testing.T) {
	r := New("run-1", "graph-1", DefaultConfig())
	now := time.Now().UTC()
	r.StartNode("plan", 0, map[string]interface{}{"goal": "x"}, now)

	snap := r.GetTrace()
	snap.Nodes[0].NodeID = "mutated"

	fresh := r.GetTrace()
	if fresh.Nodes[0].NodeID != "plan" {
		t.Errorf("expected mutating a snapshot not to affect the recorder, got %q", fresh.Nodes[0].NodeID)
	}
}

func TestRecorder_InputTruncation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxInputOutputSize = 5
	r := New("run-1", "graph-1", cfg)
	now := time.Now().UTC()

	r.StartNode("plan", 0, map[string]interface{}{"goal": strings.Repeat("x", 50)}, now)
	tr := r.GetTrace()
	if !tr.Nodes[0].InputsTruncated {
		t.Error("expected long input to be flagged as truncated")
	}
	if len(tr.Nodes[0].Inputs["goal"].(string)) != 5 {
		t.Errorf("expected truncated value of length 5, got %d", len(tr.Nodes[0].Inputs["goal"].(string)))
	}
}

func TestRecorder_IncludeValuesFalseStripsValues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.IncludeValues = false
	r := New("run-1", "graph-1", cfg)
	now := time.Now().UTC()

	r.StartNode("plan", 0, map[string]interface{}{"goal": "secret"}, now)
	tr := r.GetTrace()
	if tr.Nodes[0].Inputs != nil {
		t.Error("expected include_values=false to omit captured inputs entirely")
	}
}

func TestRecorder_EdgesAndMutationsToggle(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CaptureEdges = false
	cfg.CaptureMutations = false
	r := New("run-1", "graph-1", cfg)
	now := time.Now().UTC()

	r.RecordEdgeTraversal("a", "b", "always", true, false, "", now)
	r.RecordGraphMutation("add_node", "node c", now)

	tr := r.GetTrace()
	if len(tr.Edges) != 0 || len(tr.Mutations) != 0 {
		t.Error("expected disabled capture toggles to suppress recording")
	}
}

func TestRecorder_EndRunAggregates(t *testing.T) {
	r := New("run-1", "graph-1", DefaultConfig())
	start := time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)
	r.StartRun(start)

	r.StartNode("plan", 0, nil, start)
	r.CompleteNode("plan", 0, nil, true, "", "", 12, 20, "pass", start.Add(time.Second))

	r.StartNode("act", 0, nil, start.Add(2*time.Second))
	r.RecordRetry("act", 0, "timeout", time.Second, start.Add(3*time.Second))
	r.CompleteNode("act", 0, nil, false, "boom", "", 8, 30, "fail", start.Add(4*time.Second))

	end := start.Add(5 * time.Second)
	r.EndRun(end, "failed")

	tr := r.GetTrace()
	if tr.Summary.TotalTokens != 20 {
		t.Errorf("expected total tokens 20, got %d", tr.Summary.TotalTokens)
	}
	if len(tr.Summary.NodePath) != 2 || tr.Summary.NodePath[0] != "plan" || tr.Summary.NodePath[1] != "act" {
		t.Errorf("expected node path [plan act], got %v", tr.Summary.NodePath)
	}
	if len(tr.Summary.FailedNodes) != 1 || tr.Summary.FailedNodes[0] != "act" {
		t.Errorf("expected failed nodes [act], got %v", tr.Summary.FailedNodes)
	}
	if len(tr.Summary.RetriedNodes) != 1 || tr.Summary.RetriedNodes[0] != "act" {
		t.Errorf("expected retried nodes [act], got %v", tr.Summary.RetriedNodes)
	}
	if tr.Summary.DurationMS != 5000 {
		t.Errorf("expected duration 5000ms, got %d", tr.Summary.DurationMS)
	}
}

func TestRecorder_VisitCount(t *testing.T) {
	r := New("run-1", "graph-1", DefaultConfig())
	now := time.Now().UTC()
	if r.VisitCount("plan") != 0 {
		t.Error("expected zero visits before any StartNode call")
	}
	r.StartNode("plan", 0, nil, now)
	r.StartNode("plan", 1, nil, now)
	if r.VisitCount("plan") != 2 {
		t.Errorf("expected 2 visits, got %d", r.VisitCount("plan"))
	}
}
