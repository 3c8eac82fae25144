package capture

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
)

// Scanner buffer size for large transcript files (10MB)
const scannerBufferSize = 10 * 1024 * 1024

type transcriptLine struct {
	Type    string `json:"type"`
	Message struct {
		Model string `json:"model"`
	} `json:"message"`
}

// transcriptModel returns the model of the most recent message in a
// claude-code JSONL transcript that names one, or UnknownModel.
func transcriptModel(path string) string {
	if path == "" {
		return UnknownModel
	}
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the agent's hook payload
	if err != nil {
		return UnknownModel
	}
	return modelFromTranscript(data)
}

func modelFromTranscript(data []byte) string {
	var raw [][]byte
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), scannerBufferSize)
	for scanner.Scan() {
		raw = append(raw, append([]byte(nil), scanner.Bytes()...))
	}

	for i := len(raw) - 1; i >= 0; i-- {
		var line transcriptLine
		if err := json.Unmarshal(raw[i], &line); err != nil {
			continue // Skip malformed lines
		}
		if line.Message.Model != "" {
			return line.Message.Model
		}
	}
	return UnknownModel
}
