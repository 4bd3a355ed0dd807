package services

import (
	"bytes"
	"context"
	"fmt"
	"log"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

const uploadFolder = "linebot_images"

// UploadService hosts generated images on Cloudinary so LINE can render
// them from a public HTTPS URL.
type UploadService struct {
	cld *cloudinary.Cloudinary
}

// NewUploadService connects using the single CLOUDINARY_URL credential.
func NewUploadService(cloudinaryURL string) (*UploadService, error) {
	if cloudinaryURL == "" {
		return nil, fmt.Errorf("CLOUDINARY_URL is not set")
	}
	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("create cloudinary client: %w", err)
	}
	log.Println("✅ Cloudinary client initialized")
	return &UploadService{cld: cld}, nil
}

// UploadImage stores the image bytes and returns the public HTTPS URL.
func (s *UploadService) UploadImage(ctx context.Context, data []byte) (string, error) {
	resp, err := s.cld.Upload.Upload(ctx, bytes.NewReader(data), uploader.UploadParams{Folder: uploadFolder})
	if err != nil {
		return "", fmt.Errorf("upload image: %w", err)
	}
	if resp.Error.Message != "" {
		return "", fmt.Errorf("upload image: %s", resp.Error.Message)
	}
	if resp.SecureURL == "" {
		return "", fmt.Errorf("upload image: empty url in response")
	}
	return resp.SecureURL, nil
}
