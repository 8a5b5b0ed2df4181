package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/camden-git/labelsysbackend/importer"
	"github.com/camden-git/labelsysbackend/realtime"
	"github.com/camden-git/labelsysbackend/workers"
)

type ImportHandler struct {
	Importer   *importer.Importer
	PreviewGen *workers.PreviewGenerator
	Hub        *realtime.Hub
}

func NewImportHandler(imp *importer.Importer, previewGen *workers.PreviewGenerator, hub *realtime.Hub) *ImportHandler {
	return &ImportHandler{Importer: imp, PreviewGen: previewGen, Hub: hub}
}

type BatchImportPayload struct {
	RootPath string `json:"root_path"`
}

// BatchImport walks a directory tree for dataset folders and imports each one,
// streaming progress to the client as server-sent events
func (bh *ImportHandler) BatchImport(w http.ResponseWriter, r *http.Request) {
	var payload BatchImportPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}
	if payload.RootPath == "" {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "root_path is required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "streaming is not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	events := make(chan importer.ProgressEvent, 16)
	go func() {
		bh.Importer.BatchImport(payload.RootPath, events)
		close(events)
	}()

	clientGone := r.Context().Done()
	clientConnected := true

	// the import keeps running server side even when the client disconnects,
	// so the channel is always drained to completion
	for event := range events {
		if bh.Hub != nil {
			bh.Hub.Broadcast(realtime.Event{
				Type:    realtime.EventImportProgress,
				Status:  event.Status,
				Message: event.Message,
				Extra: map[string]interface{}{
					"total_folders":         event.TotalFolders,
					"processed_folders":     event.ProcessedFolders,
					"datasets_created":      event.DatasetsCreated,
					"total_images_imported": event.TotalImagesImported,
				},
			})
		}

		if !clientConnected {
			continue
		}
		select {
		case <-clientGone:
			clientConnected = false
			continue
		default:
		}

		data, err := json.Marshal(event)
		if err != nil {
			log.Printf("batch import: failed to encode progress event: %v", err)
			continue
		}
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	}

	if bh.PreviewGen != nil {
		bh.PreviewGen.QueuePendingPreviews()
	}
}
