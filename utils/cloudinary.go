package utils

import (
	"context"
	"fmt"
	"mime/multipart"
	"os"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

func getCloudinaryInstance() (*cloudinary.Cloudinary, error) {
	return cloudinary.NewFromParams(
		os.Getenv("CLOUDINARY_CLOUD_NAME"),
		os.Getenv("CLOUDINARY_API_KEY"),
		os.Getenv("CLOUDINARY_API_SECRET"),
	)
}

func uploadToFolder(file multipart.File, folder string) (string, error) {
	cld, err := getCloudinaryInstance()
	if err != nil {
		return "", fmt.Errorf("cloudinary config error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	uploadResp, err := cld.Upload.Upload(ctx, file, uploader.UploadParams{
		Folder: folder,
	})
	if err != nil {
		return "", fmt.Errorf("upload error: %v", err)
	}

	return uploadResp.SecureURL, nil
}

// UploadEvidence stores a receipt photo and returns the opaque secure URL
// kept on the DutyReceipt. The content is never interpreted server-side.
func UploadEvidence(file multipart.File) (string, error) {
	return uploadToFolder(file, "receipts")
}

// UploadPaymentProof stores the proof image backing a contribution claim.
func UploadPaymentProof(file multipart.File) (string, error) {
	return uploadToFolder(file, "contributions")
}

// UploadEventImage stores an event cover image.
func UploadEventImage(file multipart.File) (string, error) {
	return uploadToFolder(file, "events")
}
