package handler

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/dokupintar/dokubot-be/service"
	"github.com/dokupintar/dokubot-be/types"
)

// DocumentHandler manages indexed documents: listing, inspection,
// deletion and serving the stored originals.
type DocumentHandler struct {
	indexer     *service.IndexService
	fileService *service.FileService
}

func NewDocumentHandler(indexer *service.IndexService, fileService *service.FileService) *DocumentHandler {
	return &DocumentHandler{
		indexer:     indexer,
		fileService: fileService,
	}
}

func (h *DocumentHandler) HandleListDocuments(c *gin.Context) {
	docs, err := h.indexer.ListDocuments(c.Request.Context(), tenantFrom(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.DataResponse{
			Status:  false,
			Message: err.Error(),
		})
		return
	}
	infos := make([]types.DocumentInfo, 0, len(docs))
	for _, meta := range docs {
		infos = append(infos, types.DocumentInfo{
			DocumentID: meta.DocumentID,
			Title:      meta.Title,
			Author:     meta.Author,
			Source:     meta.Source,
			CreatedAt:  meta.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, types.DataResponse{
		Status: true,
		Data:   infos,
	})
}

func (h *DocumentHandler) HandleGetChunks(c *gin.Context) {
	documentID := c.Param("id")
	chunks, err := h.indexer.ListChunks(c.Request.Context(), tenantFrom(c), documentID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.DataResponse{
			Status:  false,
			Message: err.Error(),
		})
		return
	}
	if len(chunks) == 0 {
		c.JSON(http.StatusNotFound, types.DataResponse{
			Status:  false,
			Message: fmt.Sprintf("document %s not found", documentID),
		})
		return
	}
	c.JSON(http.StatusOK, types.DataResponse{
		Status: true,
		Data:   chunks,
	})
}

func (h *DocumentHandler) HandleGetMeta(c *gin.Context) {
	documentID := c.Param("id")
	meta, err := h.indexer.ExtractHeuristics(c.Request.Context(), tenantFrom(c), documentID)
	if errors.Is(err, types.ErrNotFound) {
		c.JSON(http.StatusNotFound, types.DataResponse{
			Status:  false,
			Message: fmt.Sprintf("document %s not found", documentID),
		})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.DataResponse{
			Status:  false,
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, types.DataResponse{
		Status: true,
		Data:   meta,
	})
}

func (h *DocumentHandler) HandleDeleteDocument(c *gin.Context) {
	documentID := c.Param("id")
	if err := h.fileService.DeleteDocument(c.Request.Context(), tenantFrom(c), documentID); err != nil {
		c.JSON(http.StatusInternalServerError, types.DataResponse{
			Status:  false,
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, types.DataResponse{
		Status: true,
	})
}

// HandleServeDocument streams the stored original file of a document.
func (h *DocumentHandler) HandleServeDocument(c *gin.Context) {
	documentID := c.Param("id")
	files, err := h.fileService.StoredFiles(documentID)
	if err != nil || len(files) == 0 {
		c.JSON(http.StatusNotFound, types.DataResponse{
			Status:  false,
			Message: "File not found",
		})
		return
	}
	// Newest stored copy wins when the document was re-uploaded.
	path := files[len(files)-1]
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%s", filepath.Base(path)))
	c.File(path)
}
