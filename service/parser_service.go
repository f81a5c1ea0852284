package service

import (
	"bufio"
	"bytes"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/dokupintar/dokubot-be/types"
)

var (
	pdfPagesPattern  = regexp.MustCompile(`^Pages:\s+(\d+)`)
	pdfTitlePattern  = regexp.MustCompile(`^Title:\s+(.*)`)
	pdfAuthorPattern = regexp.MustCompile(`^Author:\s+(.*)`)
)

// ParserService extracts plain text and metadata from uploaded files.
// PDF pages go through pdftotext first and fall back to tesseract OCR
// for scanned pages; plain text files are read as-is.
type ParserService struct {
	tempDir string
}

func NewParserService(tempDir string) *ParserService {
	if tempDir == "" {
		tempDir = "temp"
	}
	return &ParserService{tempDir: tempDir}
}

// ParseFile returns the full extracted text of the file and whatever
// metadata the file format carries. Unsupported or unreadable files
// return types.ErrParseFailure.
func (s *ParserService) ParseFile(path string) (string, *types.DocumentMeta, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md":
		raw, err := os.ReadFile(path)
		if err != nil {
			return "", nil, fmt.Errorf("%w: %v", types.ErrParseFailure, err)
		}
		return cleanText(string(raw)), &types.DocumentMeta{}, nil
	case ".pdf":
		return s.parsePDF(path)
	default:
		return "", nil, fmt.Errorf("%w: unsupported file type %s", types.ErrParseFailure, filepath.Ext(path))
	}
}

func (s *ParserService) parsePDF(path string) (string, *types.DocumentMeta, error) {
	totalPages, meta, err := pdfInfo(path)
	if err != nil {
		return "", nil, err
	}

	var b strings.Builder
	extracted := 0
	for pageNum := 1; pageNum <= totalPages; pageNum++ {
		text, err := s.extractPage(path, pageNum)
		if err != nil {
			log.Printf("failed to extract text from page %d of %s: %v", pageNum, filepath.Base(path), err)
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(text)
		extracted++
	}
	if extracted == 0 {
		return "", nil, fmt.Errorf("%w: no readable pages in %s", types.ErrParseFailure, filepath.Base(path))
	}
	return cleanText(b.String()), meta, nil
}

func (s *ParserService) extractPage(path string, pageNum int) (string, error) {
	text, err := extractWithPdftotext(path, pageNum)
	if err != nil || text == "" {
		text, err = s.extractWithTesseract(path, pageNum)
		if err != nil {
			return "", fmt.Errorf("failed to extract text: %w", err)
		}
	}
	return text, nil
}

func extractWithPdftotext(path string, pageNum int) (string, error) {
	cmd := exec.Command("pdftotext",
		"-f", strconv.Itoa(pageNum),
		"-l", strconv.Itoa(pageNum),
		"-enc", "UTF-8", "-nopgbrk",
		path, "-")
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("pdftotext page %d: %w", pageNum, err)
	}
	trimmed := strings.TrimSpace(out.String())
	if trimmed == "" {
		return "", fmt.Errorf("got nothing at page %d", pageNum)
	}
	return trimmed, nil
}

// extractWithTesseract rasterizes the page with pdftoppm and OCRs it.
// Used for scanned documents where the text layer is missing.
func (s *ParserService) extractWithTesseract(pdfPath string, pageNum int) (string, error) {
	if _, err := os.Stat(s.tempDir); os.IsNotExist(err) {
		os.MkdirAll(s.tempDir, os.ModePerm)
	}
	pageFolder := filepath.Join(s.tempDir, fileNameWithoutExt(pdfPath))
	if _, err := os.Stat(pageFolder); err == nil {
		os.RemoveAll(pageFolder)
	}
	if err := os.Mkdir(pageFolder, os.ModePerm); err != nil {
		return "", fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer os.RemoveAll(pageFolder)

	convertCmd := exec.Command("pdftoppm",
		"-f", strconv.Itoa(pageNum),
		"-l", strconv.Itoa(pageNum),
		"-png", pdfPath, filepath.Join(pageFolder, "page"))
	if err := convertCmd.Run(); err != nil {
		return "", fmt.Errorf("failed to rasterize page %d: %w", pageNum, err)
	}

	images, err := filepath.Glob(filepath.Join(pageFolder, "page-*.png"))
	if err != nil || len(images) == 0 {
		return "", fmt.Errorf("failed to read image files: %w", err)
	}
	ocrCmd := exec.Command("tesseract",
		images[0],
		"stdout",
		"-l", "ind+eng",
		"--oem", "3",
		"--psm", "3",
	)
	var out bytes.Buffer
	ocrCmd.Stdout = &out
	if err := ocrCmd.Run(); err != nil {
		return "", fmt.Errorf("failed to run tesseract: %w", err)
	}
	trimmed := strings.TrimSpace(out.String())
	if trimmed == "" {
		return "", fmt.Errorf("got nothing at page %d", pageNum)
	}
	return trimmed, nil
}

// pdfInfo reads page count, title and author from pdfinfo output.
func pdfInfo(pdfPath string) (int, *types.DocumentMeta, error) {
	cmd := exec.Command("pdfinfo", pdfPath)
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return 0, nil, fmt.Errorf("%w: pdfinfo: %v", types.ErrParseFailure, err)
	}

	pages := 0
	meta := &types.DocumentMeta{}
	scanner := bufio.NewScanner(&out)
	for scanner.Scan() {
		line := scanner.Text()
		if m := pdfPagesPattern.FindStringSubmatch(line); len(m) == 2 {
			pages, _ = strconv.Atoi(m[1])
		} else if m := pdfTitlePattern.FindStringSubmatch(line); len(m) == 2 {
			meta.Title = strings.TrimSpace(m[1])
		} else if m := pdfAuthorPattern.FindStringSubmatch(line); len(m) == 2 {
			meta.Author = strings.TrimSpace(m[1])
		}
	}
	if pages == 0 {
		return 0, nil, fmt.Errorf("%w: unable to determine page count", types.ErrParseFailure)
	}
	return pages, meta, nil
}

func fileNameWithoutExt(path string) string {
	base := filepath.Base(path)
	if idx := strings.LastIndex(base, "."); idx != -1 {
		base = base[:idx]
	}
	return base
}

func cleanText(text string) string {
	replacements := map[string]string{
		"\u0000": "",
		"\ufffd": "",
		"\u001b": "",
		"\r":     "",
		"\f":     "\n",
	}
	cleaned := text
	for old, repl := range replacements {
		cleaned = strings.ReplaceAll(cleaned, old, repl)
	}
	return strings.TrimSpace(cleaned)
}
