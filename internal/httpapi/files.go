package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"oneai/backend/internal/ingest"
	"oneai/backend/internal/prompt"
	"oneai/backend/internal/providers"
	"oneai/backend/internal/store"
)

const (
	multipartMemoryBytes = 8 << 20
	defaultFilesMessage  = "Please analyze the attached files."
)

// ChatWithFiles streams a reply to one message plus up to ingest.MaxFiles
// uploads sent as file_0..file_N.
func (h Handler) ChatWithFiles(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, ingest.MaxRequestBytes)
	if err := r.ParseMultipartForm(multipartMemoryBytes); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "Request too large")
			return
		}
		writeError(w, http.StatusBadRequest, "Request must be multipart/form-data")
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	userID := strings.TrimSpace(r.FormValue("userId"))
	message := fallback(r.FormValue("message"), defaultFilesMessage)

	count, _ := strconv.Atoi(strings.TrimSpace(r.FormValue("fileCount")))
	if count > ingest.MaxFiles {
		h.logger.Warn("too many files in request, extra files ignored", "file_count", count, "max", ingest.MaxFiles)
		count = ingest.MaxFiles
	}

	blocks := make([]ingest.Block, 0, count)
	for i := 0; i < count; i++ {
		field := fmt.Sprintf("file_%d", i)
		file, header, err := r.FormFile(field)
		if err != nil {
			h.logger.Warn("file missing from form", "field", field, "err", err)
			continue
		}
		blocks = append(blocks, h.ingestUpload(r.Context(), userID, file, header))
		_ = file.Close()
	}

	h.streamChat(w, r, chatTurn{
		userID:       userID,
		mode:         prompt.ParseMode(fallback(r.FormValue("mode"), string(prompt.ModeGeneral))),
		provider:     providers.Parse(r.FormValue("provider")),
		model:        strings.TrimSpace(r.FormValue("model")),
		userText:     message,
		history:      []chatMessage{{Role: "user", Content: message}},
		attachments:  blocks,
		fileAnalysis: true,
	})
}

func (h Handler) ingestUpload(ctx context.Context, userID string, file multipart.File, header *multipart.FileHeader) ingest.Block {
	name := header.Filename
	data, err := io.ReadAll(io.LimitReader(file, ingest.MaxFileBytes+1))
	if err != nil {
		return ingest.ErrorBlock(name, fmt.Errorf("read upload: %w", err))
	}
	if len(data) > ingest.MaxFileBytes {
		return ingest.ErrorBlock(name, fmt.Errorf("file exceeds %d MB", ingest.MaxFileBytes/(1024*1024)))
	}

	block, err := ingest.Ingest(name, data)
	if err != nil {
		h.logger.Warn("file ingest failed", "file", name, "size", len(data), "err", err)
		block = ingest.ErrorBlock(name, err)
	}

	if !store.IsGuest(userID) {
		if objectPath, err := h.archiver.Archive(ctx, userID, name, data); err != nil {
			h.logger.Warn("archive upload failed", "file", name, "err", err)
		} else if objectPath != "" {
			h.logger.Debug("upload archived", "file", name, "object", objectPath)
		}
	}
	return block
}
