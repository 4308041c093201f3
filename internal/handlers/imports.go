package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/primelio/cee-service/internal/importer"
	"github.com/primelio/cee-service/internal/taskqueue"
	"github.com/primelio/cee-service/internal/types"
)

// importSem limits concurrent synchronous imports to prevent resource exhaustion
var importSem = make(chan struct{}, 2)

// Import dependencies (initialized by the application)
var (
	importService *importer.Importer
	importQueue   *taskqueue.TaskQueue
	maxUploadSize int64 = 50 * 1024 * 1024
)

// InitImports wires the import endpoints to the running importer and queue.
// This should be called during application startup.
func InitImports(imp *importer.Importer, queue *taskqueue.TaskQueue, maxBytes int64) {
	importService = imp
	importQueue = queue
	if maxBytes > 0 {
		maxUploadSize = maxBytes
	}
}

// ImportScheduledResponse represents the 202 response for a URL import
type ImportScheduledResponse struct {
	TaskID  string `json:"taskId" jsonschema:"required"`
	Status  string `json:"status" jsonschema:"required"`
	PollURL string `json:"pollUrl" jsonschema:"required"`
}

// StartImport runs or schedules a referential import
// @Summary Import referential
// @Description Imports a CEE referential file (XLSX, CSV or ZIP bundle). An uploaded file is imported synchronously and the run result returned. With ?url= the download and import run on a background worker and a 202 with the task ID is returned.
// @Tags imports
// @Accept multipart/form-data
// @Produce json
// @Param url query string false "Remote referential URL (schedules a background import)"
// @Param file formData file false "Referential file"
// @Success 200 {object} importer.RunResult
// @Success 202 {object} ImportScheduledResponse
// @Failure 400 {object} map[string]string "Bad request"
// @Failure 503 {object} map[string]string "Importer unavailable"
// @Router /api/v1/imports [post]
func StartImport(c *gin.Context) {
	if importService == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "importer not initialized"})
		return
	}

	if url := c.Query("url"); url != "" {
		scheduleURLImport(c, url)
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "request needs a file upload or a url parameter"})
		return
	}
	defer file.Close()

	if header.Size > maxUploadSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file exceeds the upload size limit"})
		return
	}

	content, err := io.ReadAll(io.LimitReader(file, maxUploadSize+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read upload"})
		return
	}
	if int64(len(content)) > maxUploadSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file exceeds the upload size limit"})
		return
	}

	importSem <- struct{}{}
	defer func() { <-importSem }()

	result, err := importService.Run(c.Request.Context(), importer.RunInput{
		Source:   types.SourceAPI,
		Filename: header.Filename,
		Content:  content,
	})
	if err != nil {
		log.Error().Err(err).Str("filename", header.Filename).Msg("Import run could not be created")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start import run"})
		return
	}

	status := http.StatusOK
	if result.Status == types.StatusFailed {
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, result)
}

// scheduleURLImport hands a remote referential to the worker fleet; the
// download can outlive an HTTP request comfortably.
func scheduleURLImport(c *gin.Context, url string) {
	if importQueue == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "task queue not available"})
		return
	}

	taskID, err := importQueue.ScheduleTask(c.Request.Context(), taskqueue.ScheduleTaskInput{
		TaskType: taskqueue.TaskTypeImport,
		Payload:  taskqueue.ImportPayload{URL: url},
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to schedule import"})
		return
	}

	c.JSON(http.StatusAccepted, ImportScheduledResponse{
		TaskID:  taskID,
		Status:  "scheduled",
		PollURL: "/api/v1/imports",
	})
}
