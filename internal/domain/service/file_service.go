package service

import (
	"context"
	"io"
)

type UploadedFile struct {
	URL        string
	ObjectName string
	Size       int64
}

type FileUploadService interface {
	UploadFile(ctx context.Context, file io.Reader, fileType, fileName, folder string) (*UploadedFile, error)
	DeleteFile(ctx context.Context, objectName string) error
	Close() error
}
