package whispercpp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

type Adapter struct {
	bin   string
	model string
}

func New(binPath, modelPath string) *Adapter {
	return &Adapter{bin: binPath, model: modelPath}
}

// whisper.cpp -oj output, reduced to what the pipeline consumes.
type whisperOutput struct {
	Transcription []struct {
		Text string `json:"text"`
	} `json:"transcription"`
}

// Transcribe runs whisper.cpp over one segment's wav file and joins the
// recognized text. A context cut short mid-run marks the transcript as
// truncated instead of silently returning a partial result.
func (a *Adapter) Transcribe(ctx context.Context, wavPath string) (string, bool, error) {
	outPrefix := strings.TrimSuffix(wavPath, filepath.Ext(wavPath))
	args := []string{
		"-m", a.model,
		"-f", wavPath,
		"-oj",
		"-of", outPrefix,
	}
	cmd := exec.CommandContext(ctx, a.bin, args...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			// Partial JSON may exist on disk; report what we have, marked.
			if text, ok := readTranscript(outPrefix + ".json"); ok {
				return text, true, nil
			}
		}
		return "", false, fmt.Errorf("whisper.cpp failed: %w\n%s", err, string(b))
	}

	text, ok := readTranscript(outPrefix + ".json")
	if !ok {
		return "", false, fmt.Errorf("whisper.cpp produced no transcript json at %s", outPrefix+".json")
	}
	return text, false, nil
}

func readTranscript(path string) (string, bool) {
	jb, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	var out whisperOutput
	if err := json.Unmarshal(jb, &out); err != nil {
		return "", false
	}
	parts := make([]string, 0, len(out.Transcription))
	for _, t := range out.Transcription {
		if s := strings.TrimSpace(t.Text); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " "), true
}
