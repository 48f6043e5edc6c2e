package chunkstream

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const FinishStop = "stop"

type Usage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
}

type stepUsage struct {
	Usage
	IsContinued bool `json:"isContinued"`
}

func NewMessageID() string {
	return fmt.Sprintf("msg-%d", time.Now().UnixMilli())
}

func StartLine(messageID string) []byte {
	return metaLine('f', map[string]string{"messageId": messageID})
}

func TextLine(text string) []byte {
	var buf bytes.Buffer
	buf.WriteString("0:")
	buf.Write(quote(text))
	buf.WriteByte('\n')
	return buf.Bytes()
}

func StepFinishLine(reason string, usage Usage) []byte {
	return metaLine('e', struct {
		FinishReason string    `json:"finishReason"`
		Usage        stepUsage `json:"usage"`
	}{reason, stepUsage{Usage: usage}})
}

func DoneLine(reason string, usage Usage) []byte {
	return metaLine('d', struct {
		FinishReason string `json:"finishReason"`
		Usage        Usage  `json:"usage"`
	}{reason, usage})
}

func metaLine(tag byte, payload any) []byte {
	var buf bytes.Buffer
	buf.WriteByte(tag)
	buf.WriteByte(':')
	buf.Write(marshal(payload))
	buf.WriteByte('\n')
	return buf.Bytes()
}

func quote(text string) []byte {
	return marshal(text)
}

func marshal(v any) []byte {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
	return bytes.TrimRight(buf.Bytes(), "\n")
}

// WordChunks splits text into pieces of at most n words. Joining the pieces
// yields the original text.
func WordChunks(text string, n int) []string {
	if n <= 0 {
		n = 1
	}
	words := strings.Split(text, " ")
	chunks := make([]string, 0, len(words)/n+1)
	for start := 0; start < len(words); start += n {
		end := min(start+n, len(words))
		chunk := strings.Join(words[start:end], " ")
		if start > 0 {
			chunk = " " + chunk
		}
		chunks = append(chunks, chunk)
	}
	return chunks
}
