package browser

import (
	"errors"
	"fmt"
	"strings"

	"github.com/slmtnm/s4admin/internal/mediaapi"
)

const dropRejectedMessage = "Only image files can be dropped here (JPEG, PNG, GIF, WebP)."

// DatabaseErrorMessage is shown when the server fails to record an upload.
const DatabaseErrorMessage = "Upload failed: the server could not save the media record (database error). " +
	"The file may be too large or the media table unavailable. " +
	"Try uploading from the media library root, or set the image by URL on the product form instead."

// UploadMessage maps an upload error to the text shown to the user.
func UploadMessage(err error) string {
	switch mediaapi.CategoryOf(err) {
	case mediaapi.CategoryNone:
		return ""
	case mediaapi.CategoryServer:
		return DatabaseErrorMessage
	case mediaapi.CategoryStatus:
		var se *mediaapi.StatusError
		if errors.As(err, &se) && se.Message != "" {
			return fmt.Sprintf("Upload failed: %s", se.Message)
		}
		return fmt.Sprintf("Upload failed: %v", err)
	}
	return fmt.Sprintf("Upload failed: could not reach the server (%v)", unwrapTransport(err))
}

func listingMessage(folderErr, fileErr error) string {
	var parts []string
	if folderErr != nil {
		parts = append(parts, fmt.Sprintf("Failed to load folders: %v", unwrapTransport(folderErr)))
	}
	if fileErr != nil {
		parts = append(parts, fmt.Sprintf("Failed to load files: %v", unwrapTransport(fileErr)))
	}
	return strings.Join(parts, "; ")
}

func unwrapTransport(err error) error {
	var te *mediaapi.TransportError
	if errors.As(err, &te) {
		return te.Err
	}
	return err
}
