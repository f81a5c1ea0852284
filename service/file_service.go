package service

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dokupintar/dokubot-be/types"
)

// FileService owns the upload pipeline: save the file, extract its text,
// then hand it to the indexer under the caller's tenant.
type FileService struct {
	uploadDir string
	parser    *ParserService
	indexer   *IndexService
}

func NewFileService(uploadDir string, parser *ParserService, indexer *IndexService) *FileService {
	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		panic(err)
	}
	return &FileService{
		uploadDir: uploadDir,
		parser:    parser,
		indexer:   indexer,
	}
}

// UploadFile stores the uploaded file, parses it and builds its retrieval
// index. Progress updates are pushed on c, which is closed before return.
// The document id is the sanitized stored filename without extension, so
// re-uploading the same title replaces the previous index.
func (s *FileService) UploadFile(ctx context.Context, tenant string, req types.UploadRequest, file *multipart.FileHeader, c chan<- types.ProcessingDocumentStatus) (*types.UploadResponse, error) {
	defer close(c)

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if ext != ".pdf" && ext != ".txt" && ext != ".md" {
		return nil, fmt.Errorf("%w: unsupported file type %s", types.ErrParseFailure, ext)
	}

	src, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	title := req.Title
	if title == "" {
		title = strings.TrimSuffix(file.Filename, ext)
	}
	documentID := sanitizeFilename(strings.TrimSuffix(title, ext))
	filename := fmt.Sprintf("%s_%d%s", documentID, time.Now().Unix(), ext)

	storedPath := filepath.Join(s.uploadDir, filename)
	dst, err := os.Create(storedPath)
	if err != nil {
		return nil, err
	}
	if _, err = io.Copy(dst, src); err != nil {
		dst.Close()
		return nil, err
	}
	dst.Close()

	c <- types.ProcessingDocumentStatus{
		Status:  "parsing",
		Message: "Extracting document text",
	}
	text, parsedMeta, err := s.parser.ParseFile(storedPath)
	if err != nil {
		return nil, err
	}

	meta := &types.DocumentMeta{
		Title:     title,
		Source:    req.Source,
		CreatedAt: time.Now().Unix(),
	}
	if parsedMeta != nil {
		if meta.Title == "" {
			meta.Title = parsedMeta.Title
		}
		meta.Author = parsedMeta.Author
	}

	stats, err := s.indexer.BuildIndex(ctx, tenant, documentID, text, meta, func(done, total int) {
		progress := 1.0
		if total > 0 {
			progress = float64(done) / float64(total)
		}
		c <- types.ProcessingDocumentStatus{
			Status:   "indexing",
			Message:  "Embedding document chunks",
			Progress: progress,
			Total:    total,
			Done:     done,
		}
	})
	if err != nil {
		return nil, err
	}

	c <- types.ProcessingDocumentStatus{
		Status:   "completed",
		Message:  "Document indexed",
		Progress: 1.0,
		Total:    stats.Chunks,
		Done:     stats.Indexed,
	}
	return &types.UploadResponse{
		DocumentID:   documentID,
		OriginalName: file.Filename,
		Chunks:       stats.Chunks,
		Indexed:      stats.Indexed,
	}, nil
}

// DeleteDocument removes both the index records and any stored files of
// the document.
func (s *FileService) DeleteDocument(ctx context.Context, tenant, documentID string) error {
	if err := s.indexer.DeleteIndex(ctx, tenant, documentID); err != nil {
		return err
	}
	matches, err := filepath.Glob(filepath.Join(s.uploadDir, documentID+"_*"))
	if err != nil {
		return err
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil {
			return err
		}
	}
	return nil
}

// StoredFiles lists the saved upload paths of a document, newest last.
func (s *FileService) StoredFiles(documentID string) ([]string, error) {
	return filepath.Glob(filepath.Join(s.uploadDir, documentID+"_*"))
}

func sanitizeFilename(name string) string {
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' || r == '.' {
			return r
		}
		return '_'
	}, name)
}
