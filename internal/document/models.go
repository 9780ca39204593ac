package document

import (
	"time"

	id "verigate/pkg/domain"
)

// Document is the metadata record for one uploaded evidence file. The bytes
// live in object storage behind Locator; SHA256 is the digest of the exact
// persisted bytes for later tamper detection.
type Document struct {
	ID          id.DocumentID
	CaseID      id.CaseID
	UserID      id.UserID
	Type        id.DocumentType
	Status      id.DocumentStatus
	FileName    string
	ContentType string
	SizeBytes   int64
	SHA256      string
	Locator     string
	UploadedAt  time.Time
}

// Upload carries one intake request into the pipeline.
type Upload struct {
	Type        id.DocumentType
	FileName    string
	ContentType string
	Data        []byte
}
