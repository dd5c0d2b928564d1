package extraction

import (
	"context"
	"errors"
	"testing"

	"skillsync/internal/config"
)

func newTestExtractor(run func(ctx context.Context, inputFile string) ([]byte, error)) *Extractor {
	e := New(config.ExtractorConfig{ModelID: "test-model"}, nil)
	e.run = run
	return e
}

func TestExtractFiltersDiagnosticNoise(t *testing.T) {
	out := []byte(`INFO loading model weights
Loading checkpoint shards
[00:01<00:00, 4.2it/s]
WARNING deprecated flag
{"skills": [{"skill": "Python", "level": 9, "confidence": 0.92}], "processing_time": 1200, "model_used": "test-model"}
TIP consider a GPU
`)
	e := newTestExtractor(func(context.Context, string) ([]byte, error) { return out, nil })

	res, err := e.Extract(context.Background(), "job description text")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(res.Skills) != 1 {
		t.Fatalf("expected 1 skill, got %d", len(res.Skills))
	}
	s := res.Skills[0]
	if s.Name != "Python" || s.Level != 9 || s.Confidence != 0.92 {
		t.Fatalf("unexpected skill: %+v", s)
	}
	if res.ModelUsed != "test-model" {
		t.Fatalf("unexpected model: %s", res.ModelUsed)
	}
}

func TestExtractNoPayload(t *testing.T) {
	out := []byte("INFO nothing useful here\nLoading model\n")
	e := newTestExtractor(func(context.Context, string) ([]byte, error) { return out, nil })

	_, err := e.Extract(context.Background(), "text")
	if !errors.Is(err, ErrNoPayload) {
		t.Fatalf("expected ErrNoPayload, got %v", err)
	}
}

func TestExtractEmptySkillsIsSuccess(t *testing.T) {
	out := []byte(`{"skills": [], "processing_time": 10, "model_used": "test-model"}`)
	e := newTestExtractor(func(context.Context, string) ([]byte, error) { return out, nil })

	res, err := e.Extract(context.Background(), "text")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if res.Skills == nil || len(res.Skills) != 0 {
		t.Fatalf("expected empty skills slice, got %#v", res.Skills)
	}
}

func TestExtractRejectsEmptyInput(t *testing.T) {
	e := newTestExtractor(func(context.Context, string) ([]byte, error) {
		t.Fatal("subprocess should not run for empty input")
		return nil, nil
	})
	if _, err := e.Extract(context.Background(), "   "); err == nil {
		t.Fatal("expected error for empty input")
	}
}

func TestExtractBatchKeepsIndexAlignment(t *testing.T) {
	calls := 0
	e := newTestExtractor(func(context.Context, string) ([]byte, error) {
		calls++
		if calls == 2 {
			return []byte("garbage"), nil
		}
		return []byte(`{"skills": [{"skill": "SQL", "level": 5, "confidence": 0.7}]}`), nil
	})

	results := e.ExtractBatch(context.Background(), []string{"a", "b", "c"})
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if len(results[0].Skills) != 1 || len(results[2].Skills) != 1 {
		t.Fatalf("expected surrounding items to succeed: %+v", results)
	}
	if len(results[1].Skills) != 0 || results[1].ProcessingTimeMs != 0 {
		t.Fatalf("expected empty placeholder at failed index, got %+v", results[1])
	}
}

func TestAvailable(t *testing.T) {
	ok := newTestExtractor(func(context.Context, string) ([]byte, error) {
		return []byte(`{"skills": []}`), nil
	})
	if !ok.Available(context.Background()) {
		t.Fatal("expected available")
	}

	down := newTestExtractor(func(context.Context, string) ([]byte, error) {
		return nil, errors.New("spawn failed")
	})
	if down.Available(context.Background()) {
		t.Fatal("expected unavailable")
	}
}
