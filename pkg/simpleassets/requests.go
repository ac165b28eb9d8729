package simpleassets

// Request DTOs

// UploadRequest carries the payload for Add and Replace. Data is the full
// file content, already downloaded by the caller; MIMEType is the declared
// content type and must be on the image allow-list.
type UploadRequest struct {
	TenantID   int64
	Name       string
	UploaderID int64
	Data       []byte
	MIMEType   string
}
