// Package extraction wraps the out-of-process AI skills extractor. The
// subprocess prints diagnostic noise around a single JSON payload; everything
// that is not the payload is discarded.
package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"strings"
	"time"

	"skillsync/internal/config"

	"github.com/tidwall/gjson"
)

var ErrNoPayload = errors.New("no JSON payload in extractor output")

// availabilityProbe is the fixed sample text used by Available.
const availabilityProbe = "Python programming test"

type Skill struct {
	Name              string   `json:"skill"`
	Level             int      `json:"level"`
	Confidence        float64  `json:"confidence"`
	KnowledgeRequired []string `json:"knowledge_required,omitempty"`
	Tasks             []string `json:"tasks,omitempty"`
}

type Result struct {
	Skills           []Skill `json:"skills"`
	ProcessingTimeMs int64   `json:"processing_time"`
	ModelUsed        string  `json:"model_used"`
}

type Extractor struct {
	cfg config.ExtractorConfig
	log *log.Logger

	// run invokes the subprocess and returns its stdout. Swapped in tests.
	run func(ctx context.Context, inputFile string) ([]byte, error)
}

func New(cfg config.ExtractorConfig, logger *log.Logger) *Extractor {
	if logger == nil {
		logger = log.Default()
	}
	e := &Extractor{cfg: cfg, log: logger}
	e.run = e.runSubprocess
	return e
}

func (e *Extractor) Extract(ctx context.Context, text string) (Result, error) {
	if e == nil {
		return Result{}, errors.New("nil extractor")
	}
	if strings.TrimSpace(text) == "" {
		return Result{}, errors.New("empty extraction input")
	}

	start := time.Now()

	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	inputFile, err := writeTempInput(text)
	if err != nil {
		return Result{}, err
	}
	defer os.Remove(inputFile)

	out, err := e.run(ctx, inputFile)
	if err != nil {
		return Result{}, fmt.Errorf("extractor process: %w (output: %s)", err, truncate(string(out), 200))
	}

	skills, err := parseSkillsPayload(out)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Skills:           skills,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
		ModelUsed:        e.cfg.ModelID,
	}, nil
}

// ExtractBatch processes texts in order. A failed item becomes an empty
// placeholder so output indices stay aligned with the input.
func (e *Extractor) ExtractBatch(ctx context.Context, texts []string) []Result {
	results := make([]Result, 0, len(texts))
	for i, text := range texts {
		res, err := e.Extract(ctx, text)
		if err != nil {
			e.log.Printf("extraction=batch status=error item=%d err=%v", i, err)
			res = Result{Skills: []Skill{}, ProcessingTimeMs: 0, ModelUsed: e.cfg.ModelID}
		}
		results = append(results, res)
	}
	return results
}

// Available runs a self-test extraction over a fixed sample text. Callers use
// it to decide whether the AI path can be attempted at all.
func (e *Extractor) Available(ctx context.Context) bool {
	if e == nil {
		return false
	}
	if _, err := e.Extract(ctx, availabilityProbe); err != nil {
		e.log.Printf("extraction=selftest status=error err=%v", err)
		return false
	}
	return true
}

func (e *Extractor) runSubprocess(ctx context.Context, inputFile string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, e.cfg.PythonPath,
		e.cfg.ScriptPath,
		"--input", inputFile,
		"--model", e.cfg.ModelID,
		"--hf-token", e.cfg.HFToken,
	)
	cmd.Stderr = io.Discard
	cmd.Env = append(os.Environ(),
		"PYTHONUNBUFFERED=1",
		"TF_CPP_MIN_LOG_LEVEL=3",
		"TRANSFORMERS_VERBOSITY=error",
	)
	return cmd.Output()
}

func writeTempInput(text string) (string, error) {
	f, err := os.CreateTemp("", "skills-input-*.txt")
	if err != nil {
		return "", err
	}
	if _, err := f.WriteString(text); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

var noisePrefixes = []string{
	"INFO", "Loading", "Loaded", "Using", "Failed", "Consider", "WARNING", "TIP", "[",
}

// parseSkillsPayload finds the one well-formed JSON object line in the
// subprocess output and pulls its skills array. Bracket-prefixed lines are
// progress markers from the model runtime, not payloads.
func parseSkillsPayload(out []byte) ([]Skill, error) {
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || isNoise(line) {
			continue
		}
		if !strings.HasPrefix(line, "{") || !gjson.Valid(line) {
			continue
		}

		raw := gjson.Get(line, "skills").Raw
		if raw == "" {
			continue
		}

		var skills []Skill
		if err := json.Unmarshal([]byte(raw), &skills); err != nil {
			continue
		}
		if skills == nil {
			skills = []Skill{}
		}
		return skills, nil
	}
	return nil, fmt.Errorf("%w (output: %s)", ErrNoPayload, truncate(string(out), 200))
}

func isNoise(line string) bool {
	for _, p := range noisePrefixes {
		if strings.HasPrefix(line, p) {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
