// Package service 包含了应用的业务逻辑层。
package service

import (
	"errors"

	"pdf-qa-go/internal/repository"
)

var (
	ErrFileNotFound     = errors.New("file not found")
	ErrEmptyQuestion    = errors.New("question cannot be empty")
	ErrNoDocuments      = errors.New("no documents found, please upload and process PDFs first")
	ErrNoTextExtracted  = errors.New("no text could be extracted from the PDF")
	ErrNotPDF           = errors.New("only PDF files are allowed")
	ErrFileTooLarge     = errors.New("file exceeds the maximum upload size")
	ErrArchiveDisabled  = errors.New("qa archive is not enabled")
	ErrDocumentNotFound = repository.ErrDocumentNotFound
)
