package httpapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"oneai/backend/internal/chunkstream"
	"oneai/backend/internal/llm"
	"oneai/backend/internal/prompt"
	"oneai/backend/internal/providers"
	"oneai/backend/internal/search"
	"oneai/backend/internal/store"
)

func postChat(t *testing.T, h Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	h.Chat(resp, req)
	return resp
}

func streamedText(t *testing.T, resp *httptest.ResponseRecorder) string {
	t.Helper()
	decoder := chunkstream.NewDecoder()
	_, _ = decoder.Write(resp.Body.Bytes())
	_ = decoder.Close()
	if !decoder.Done() {
		t.Fatalf("stream did not finish: %q", resp.Body.String())
	}
	return decoder.Text()
}

func storedMessages(t *testing.T, env testEnv, conversationID string) []store.Message {
	t.Helper()
	messages, err := store.NewSQLStore(env.db).ListMessages(context.Background(), conversationID)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	return messages
}

func TestChatGuestStreamsWithoutPersisting(t *testing.T) {
	env := newTestEnv(t, envOptions{providers: []providers.ID{providers.Groq}})

	resp := postChat(t, env.handler, `{"messages":[{"role":"user","content":"hello"}],"userId":"guest-user-42"}`)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d (%s)", http.StatusOK, resp.Code, resp.Body.String())
	}
	if got := resp.Header().Get("Content-Type"); got != "text/event-stream" {
		t.Fatalf("unexpected content type %q", got)
	}
	if got := resp.Header().Get(conversationIDHeader); got != "" {
		t.Fatalf("guest must not receive a conversation id, got %q", got)
	}
	if text := streamedText(t, resp); text != "Hi there friend" {
		t.Fatalf("unexpected streamed text %q", text)
	}

	var count int
	if err := env.db.QueryRow(`SELECT COUNT(*) FROM conversations;`).Scan(&count); err != nil {
		t.Fatalf("count conversations: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no conversations for guest, got %d", count)
	}

	calls := env.clients[providers.Groq].calls()
	if len(calls) != 1 {
		t.Fatalf("expected one groq call, got %d", len(calls))
	}
	if calls[0].Model != "llama-3.1-8b-instant" {
		t.Fatalf("expected small talk on the fast model, got %q", calls[0].Model)
	}
}

func TestChatSignedInUserPersistsTurns(t *testing.T) {
	env := newTestEnv(t, envOptions{providers: []providers.ID{providers.Groq}})

	first := postChat(t, env.handler, `{"messages":[{"role":"user","content":"hello"}],"userId":"user-1","mode":"creative"}`)
	if first.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, first.Code)
	}
	conversationID := first.Header().Get(conversationIDHeader)
	if conversationID == "" {
		t.Fatal("expected conversation id header for signed-in user")
	}

	messages := storedMessages(t, env, conversationID)
	if len(messages) != 2 {
		t.Fatalf("expected user and assistant messages, got %d", len(messages))
	}
	if messages[0].Role != "user" || messages[0].Content != "hello" {
		t.Fatalf("unexpected user message: %+v", messages[0])
	}
	if messages[1].Role != "assistant" || messages[1].Content != "Hi there friend" {
		t.Fatalf("unexpected assistant message: %+v", messages[1])
	}

	body := fmt.Sprintf(`{"messages":[
		{"role":"user","content":"hello"},
		{"role":"assistant","content":"Hi there friend"},
		{"role":"user","content":"and again","conversation_id":%q}
	],"userId":"user-1"}`, conversationID)
	second := postChat(t, env.handler, body)
	if second.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, second.Code)
	}
	if got := second.Header().Get(conversationIDHeader); got != conversationID {
		t.Fatalf("expected conversation %q to continue, got %q", conversationID, got)
	}
	if got := len(storedMessages(t, env, conversationID)); got != 4 {
		t.Fatalf("expected 4 stored messages, got %d", got)
	}
}

func TestChatCannotAppendToAnotherUsersConversation(t *testing.T) {
	env := newTestEnv(t, envOptions{providers: []providers.ID{providers.Groq}})

	first := postChat(t, env.handler, `{"messages":[{"role":"user","content":"hello"}],"userId":"user-1"}`)
	victim := first.Header().Get(conversationIDHeader)
	if victim == "" {
		t.Fatal("expected conversation id header for signed-in user")
	}

	body := fmt.Sprintf(`{"messages":[{"role":"user","content":"sneaky","conversation_id":%q}],"userId":"user-2"}`, victim)
	second := postChat(t, env.handler, body)
	if second.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, second.Code)
	}
	got := second.Header().Get(conversationIDHeader)
	if got == "" || got == victim {
		t.Fatalf("expected a fresh conversation for user-2, got %q", got)
	}
	if n := len(storedMessages(t, env, victim)); n != 2 {
		t.Fatalf("expected the original conversation untouched with 2 messages, got %d", n)
	}
	if n := len(storedMessages(t, env, got)); n != 2 {
		t.Fatalf("expected the new conversation to hold the turn, got %d messages", n)
	}
}

func TestChatEnrichesUserHistory(t *testing.T) {
	env := newTestEnv(t, envOptions{providers: []providers.ID{providers.Groq}})

	resp := postChat(t, env.handler, `{"messages":[
		{"role":"user","content":"how do I bake bread"},
		{"role":"assistant","content":"how about sourdough"},
		{"role":"user","content":"why does dough rise"}
	]}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.Code)
	}

	calls := env.clients[providers.Groq].calls()
	if len(calls) != 1 {
		t.Fatalf("expected one call, got %d", len(calls))
	}
	msgs := calls[0].Messages
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	if !strings.HasPrefix(msgs[0].Content, "Give step-by-step instructions:") {
		t.Fatalf("first user message not enriched: %q", msgs[0].Content)
	}
	if msgs[1].Role != llm.RoleAssistant || msgs[1].Content != "how about sourdough" {
		t.Fatalf("assistant message must pass through untouched: %+v", msgs[1])
	}
	if !strings.HasPrefix(msgs[2].Content, "Explain the reasoning clearly:") {
		t.Fatalf("last user message not enriched: %q", msgs[2].Content)
	}
	if calls[0].System == "" {
		t.Fatal("expected a system prompt")
	}
}

func TestChatValidation(t *testing.T) {
	env := newTestEnv(t, envOptions{providers: []providers.ID{providers.Groq}})

	cases := []struct {
		name    string
		body    string
		status  int
		message string
	}{
		{name: "malformed", body: `{"messages":`, status: http.StatusBadRequest, message: msgInvalidBody},
		{name: "missing messages", body: `{}`, status: http.StatusBadRequest, message: msgEmptyMessages},
		{name: "empty messages", body: `{"messages":[]}`, status: http.StatusBadRequest, message: msgEmptyMessages},
		{name: "blank last message", body: `{"messages":[{"role":"user","content":"  "}]}`, status: http.StatusBadRequest, message: msgInvalidFormat},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assertErrorMessage(t, postChat(t, env.handler, tc.body), tc.status, tc.message)
		})
	}
}

func TestChatWithoutProviders(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	resp := postChat(t, env.handler, `{"messages":[{"role":"user","content":"hello"}]}`)

	assertErrorMessage(t, resp, http.StatusInternalServerError, msgNoProviders)
}

func TestChatFallsBackToAvailableProvider(t *testing.T) {
	env := newTestEnv(t, envOptions{providers: []providers.ID{providers.Claude}})

	resp := postChat(t, env.handler, `{"messages":[{"role":"user","content":"hello"}],"provider":"openai"}`)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.Code)
	}
	if got := len(env.clients[providers.Claude].calls()); got != 1 {
		t.Fatalf("expected claude to serve the request, got %d calls", got)
	}
}

func TestChatUpstreamFailure(t *testing.T) {
	env := newTestEnv(t, envOptions{providers: []providers.ID{providers.Groq}})
	env.clients[providers.Groq].err = &llm.APIError{Provider: providers.Groq, StatusCode: http.StatusTooManyRequests, Body: "slow down"}

	resp := postChat(t, env.handler, `{"messages":[{"role":"user","content":"hello"}],"userId":"user-1"}`)

	assertErrorMessage(t, resp, http.StatusInternalServerError, msgChatFailed)
}

func TestChatImageRequestStreamsSearchResults(t *testing.T) {
	env := newTestEnv(t, envOptions{
		providers: []providers.ID{providers.Groq},
		search: &search.Options{Images: []search.ImageBackend{stubImages{images: []search.Image{
			{Title: "Red panda", ImageURL: "https://img.example.com/panda.jpg", SourceDomain: "example.com"},
		}}}},
	})

	resp := postChat(t, env.handler, `{"messages":[{"role":"user","content":"show an image of a red panda"}],"userId":"user-1"}`)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.Code)
	}
	text := streamedText(t, resp)
	if !strings.Contains(text, "![Red panda](https://img.example.com/panda.jpg)") {
		t.Fatalf("expected markdown image in reply, got %q", text)
	}
	if !strings.Contains(text, `"a red panda"`) {
		t.Fatalf("expected stripped query in reply, got %q", text)
	}
	if got := len(env.clients[providers.Groq].calls()); got != 0 {
		t.Fatalf("model must not be called for image display, got %d calls", got)
	}

	conversationID := resp.Header().Get(conversationIDHeader)
	if conversationID == "" {
		t.Fatal("expected image reply to be saved for signed-in user")
	}
	if got := len(storedMessages(t, env, conversationID)); got != 2 {
		t.Fatalf("expected 2 stored messages, got %d", got)
	}
}

func TestChatImageRequestSearchFailure(t *testing.T) {
	env := newTestEnv(t, envOptions{
		providers: []providers.ID{providers.Groq},
		search:    &search.Options{Images: []search.ImageBackend{stubImages{err: errors.New("quota exceeded")}}},
	})

	resp := postChat(t, env.handler, `{"messages":[{"role":"user","content":"display an image of a lighthouse"}]}`)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.Code)
	}
	if text := streamedText(t, resp); !strings.Contains(text, "lighthouse") {
		t.Fatalf("expected failure reply naming the query, got %q", text)
	}
}

type upload struct {
	name string
	data []byte
}

func postChatWithFiles(t *testing.T, h Handler, fields map[string]string, files []upload) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if _, ok := fields["fileCount"]; !ok {
		if err := writer.WriteField("fileCount", fmt.Sprint(len(files))); err != nil {
			t.Fatalf("write file count: %v", err)
		}
	}
	for i, f := range files {
		part, err := writer.CreateFormFile(fmt.Sprintf("file_%d", i), f.name)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write(f.data); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/chat-with-files", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp := httptest.NewRecorder()
	h.ChatWithFiles(resp, req)
	return resp
}

func TestChatWithFilesRoutesToGeminiVision(t *testing.T) {
	env := newTestEnv(t, envOptions{providers: []providers.ID{providers.Groq, providers.Gemini}})

	resp := postChatWithFiles(t, env.handler,
		map[string]string{"message": "summarise these", "provider": "groq", "userId": "user-7"},
		[]upload{
			{name: "notes.txt", data: []byte("quarterly numbers look strong")},
			{name: "chart.png", data: []byte("\x89PNG fake image bytes")},
		},
	)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d (%s)", http.StatusOK, resp.Code, resp.Body.String())
	}
	if got := len(env.clients[providers.Groq].calls()); got != 0 {
		t.Fatalf("groq must not be used for attachments, got %d calls", got)
	}
	calls := env.clients[providers.Gemini].calls()
	if len(calls) != 1 {
		t.Fatalf("expected one gemini call, got %d", len(calls))
	}
	call := calls[0]
	if call.Model != "gemini-2.5-pro" {
		t.Fatalf("expected vision model, got %q", call.Model)
	}
	if len(call.Messages) != 1 || !strings.Contains(call.Messages[0].Content, "quarterly numbers look strong") {
		t.Fatalf("expected file text in the user turn, got %+v", call.Messages)
	}
	if !strings.HasPrefix(call.Messages[0].Content, "summarise these") {
		t.Fatalf("expected message first, got %q", call.Messages[0].Content)
	}
	if len(call.Media) != 1 || call.Media[0].MIMEType != "image/png" {
		t.Fatalf("expected inline png media, got %+v", call.Media)
	}

	if resp.Header().Get(conversationIDHeader) == "" {
		t.Fatal("expected a new conversation for signed-in user")
	}
	if got := len(env.objects.paths); got != 2 {
		t.Fatalf("expected both uploads archived, got %d", got)
	}
}

func TestChatWithFilesWithoutFilesStillUsesVision(t *testing.T) {
	env := newTestEnv(t, envOptions{providers: []providers.ID{providers.Groq, providers.Gemini}})

	resp := postChatWithFiles(t, env.handler,
		map[string]string{"message": "show me a picture of a red panda", "provider": "groq", "fileCount": "0"},
		nil,
	)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d (%s)", http.StatusOK, resp.Code, resp.Body.String())
	}
	if got := len(env.clients[providers.Groq].calls()); got != 0 {
		t.Fatalf("groq must not be used by the file endpoint, got %d calls", got)
	}
	calls := env.clients[providers.Gemini].calls()
	if len(calls) != 1 {
		t.Fatalf("expected one gemini call, got %d", len(calls))
	}
	if calls[0].Model != "gemini-2.5-pro" {
		t.Fatalf("expected vision model, got %q", calls[0].Model)
	}
	if calls[0].System != prompt.FileAnalysisPrompt {
		t.Fatalf("expected file analysis system prompt, got %q", calls[0].System)
	}
	if len(calls[0].Messages) != 1 || calls[0].Messages[0].Content != "show me a picture of a red panda" {
		t.Fatalf("expected the raw message as the only turn, got %+v", calls[0].Messages)
	}
}

func TestChatWithFilesGuestSkipsArchive(t *testing.T) {
	env := newTestEnv(t, envOptions{providers: []providers.ID{providers.Gemini}})

	resp := postChatWithFiles(t, env.handler,
		map[string]string{"message": "what is this"},
		[]upload{{name: "data.csv", data: []byte("a,b\n1,2\n")}},
	)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.Code)
	}
	if resp.Header().Get(conversationIDHeader) != "" {
		t.Fatal("guest must not receive a conversation id")
	}
	if len(env.objects.paths) != 0 {
		t.Fatalf("guest uploads must not be archived, got %v", env.objects.paths)
	}
}

func TestChatWithFilesReportsUnsupportedFiles(t *testing.T) {
	env := newTestEnv(t, envOptions{providers: []providers.ID{providers.Gemini}})

	resp := postChatWithFiles(t, env.handler,
		map[string]string{"message": "check this"},
		[]upload{{name: "tool.exe", data: []byte{0x4d, 0x5a, 0x00}}},
	)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.Code)
	}
	calls := env.clients[providers.Gemini].calls()
	if len(calls) != 1 {
		t.Fatalf("expected one gemini call, got %d", len(calls))
	}
	if content := calls[0].Messages[0].Content; !strings.Contains(content, "tool.exe") || !strings.Contains(content, "Error") {
		t.Fatalf("expected error block for unsupported file, got %q", content)
	}
}

func TestChatWithFilesCapsFileCount(t *testing.T) {
	env := newTestEnv(t, envOptions{providers: []providers.ID{providers.Gemini}})

	files := make([]upload, 12)
	for i := range files {
		files[i] = upload{name: fmt.Sprintf("part-%02d.txt", i), data: []byte(fmt.Sprintf("chunk %d", i))}
	}
	resp := postChatWithFiles(t, env.handler, map[string]string{"message": "merge"}, files)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.Code)
	}
	content := env.clients[providers.Gemini].calls()[0].Messages[0].Content
	if !strings.Contains(content, "part-09.txt") {
		t.Fatalf("expected tenth file to be included, got %q", content)
	}
	if strings.Contains(content, "part-10.txt") {
		t.Fatalf("expected files past the limit to be ignored, got %q", content)
	}
}

func TestChatWithFilesRejectsNonMultipart(t *testing.T) {
	env := newTestEnv(t, envOptions{providers: []providers.ID{providers.Gemini}})

	req := httptest.NewRequest(http.MethodPost, "/api/chat-with-files", strings.NewReader(`{"message":"hi"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	env.handler.ChatWithFiles(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, resp.Code)
	}
}
