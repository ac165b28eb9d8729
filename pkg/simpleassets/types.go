package simpleassets

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
	"time"
)

// Asset represents one named custom image owned by a tenant. Name is unique
// within the tenant; ContentRef addresses the blob backing it.
type Asset struct {
	TenantID   int64     `json:"tenant_id"`
	Name       string    `json:"name"`
	UploaderID int64     `json:"uploader_id"`
	ContentRef string    `json:"content_ref"`
	CreatedAt  time.Time `json:"created_at"`
}

// UsageCount is the per-user use counter for one asset in a tenant. Counters
// are created lazily on first use and survive deletion of the asset.
type UsageCount struct {
	TenantID  int64  `json:"tenant_id"`
	UserID    int64  `json:"user_id"`
	AssetName string `json:"asset_name"`
	UseCount  int64  `json:"use_count"`
}

// ListEntry is one row of a tenant's asset listing: asset fields joined with
// the requesting user's own use count and the tenant-wide total.
type ListEntry struct {
	Name          string    `json:"name"`
	UploaderID    int64     `json:"uploader_id"`
	CreatedAt     time.Time `json:"created_at"`
	UserUseCount  int64     `json:"user_use_count"`
	TotalUseCount int64     `json:"total_use_count"`
}

// MIME types accepted for asset content.
var allowedMIMETypes = map[string]string{
	"image/jpeg": "jpeg",
	"image/png":  "png",
	"image/gif":  "gif",
	"image/webp": "webp",
	"image/bmp":  "bmp",
}

// ExtensionForMIME returns the file extension for an allowed image MIME type.
// The second return is false for any type outside the allow-list.
func ExtensionForMIME(mimeType string) (string, bool) {
	ext, ok := allowedMIMETypes[strings.ToLower(strings.TrimSpace(mimeType))]
	return ext, ok
}

// ComputeRef returns the content-addressed ref for a payload: the hex MD5
// digest of the bytes joined with the extension. The persisted blob layout
// (<digest>.<ext>) depends on this exact form.
func ComputeRef(data []byte, extension string) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:]) + "." + extension
}

// FoldName returns the comparison form of an asset name when the tenant's
// ignore-spaces option is on: the name with every space removed. Stored names
// keep their original spacing.
func FoldName(name string) string {
	return strings.ReplaceAll(name, " ", "")
}
