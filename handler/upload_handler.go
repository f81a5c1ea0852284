package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dokupintar/dokubot-be/service"
	"github.com/dokupintar/dokubot-be/types"
)

const maxUploadSize = 10 << 20

type UploadHandler struct {
	fileService *service.FileService
}

func NewUploadHandler(fileService *service.FileService) *UploadHandler {
	return &UploadHandler{
		fileService: fileService,
	}
}

type uploadResult struct {
	resp *types.UploadResponse
	err  error
}

// UploadDocumentHandler ingests a multipart upload and streams indexing
// progress to the client as server-sent events, finishing with a JSON
// result payload.
func (h *UploadHandler) UploadDocumentHandler(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, types.DataResponse{
			Status:  false,
			Message: "Invalid file",
		})
		return
	}
	defer file.Close()

	var req types.UploadRequest
	if metadata := c.Request.FormValue("metadata"); metadata != "" {
		if err := json.Unmarshal([]byte(metadata), &req); err != nil {
			c.JSON(http.StatusBadRequest, types.DataResponse{
				Status:  false,
				Message: "Invalid metadata",
			})
			return
		}
	}

	if header.Size > maxUploadSize {
		c.JSON(http.StatusBadRequest, types.DataResponse{
			Status:  false,
			Message: "File too large",
		})
		return
	}

	tenant := tenantFrom(c)
	statusChan := make(chan types.ProcessingDocumentStatus)
	resultChan := make(chan uploadResult, 1)
	go func() {
		resp, err := h.fileService.UploadFile(c.Request.Context(), tenant, req, header, statusChan)
		resultChan <- uploadResult{resp: resp, err: err}
	}()

	clientGone := c.Request.Context().Done()
	for {
		select {
		case <-clientGone:
			return
		case status, ok := <-statusChan:
			if !ok {
				statusChan = nil
				continue
			}
			jsonStatus, err := json.Marshal(status)
			if err != nil {
				continue
			}
			c.SSEvent("message", string(jsonStatus))
			c.Writer.Flush()
		case result := <-resultChan:
			if result.err != nil {
				c.JSON(http.StatusInternalServerError, types.DataResponse{
					Status:  false,
					Message: result.err.Error(),
				})
			} else {
				c.JSON(http.StatusOK, types.DataResponse{
					Status: true,
					Data:   result.resp,
				})
			}
			return
		}
	}
}
