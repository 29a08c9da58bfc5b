package document

import (
	"io"
	"time"
)

// Document is the metadata record of an uploaded file. ID and CreatedAt are
// assigned by the metadata collection on insert.
type Document struct {
	ID          string    `json:"id" bson:"_id,omitempty"`
	OwnerID     string    `json:"ownerId" bson:"ownerId"`
	Name        string    `json:"name" bson:"name"`
	MimeType    string    `json:"mimeType" bson:"mimeType"`
	SizeBytes   int64     `json:"sizeBytes" bson:"sizeBytes"`
	URL         string    `json:"url" bson:"url"`
	StoragePath string    `json:"storagePath" bson:"storagePath"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
}

// File is a candidate upload. Content must yield exactly SizeBytes bytes.
type File struct {
	Name      string
	MimeType  string `validate:"required,oneof=application/pdf text/plain application/msword application/vnd.openxmlformats-officedocument.wordprocessingml.document"`
	SizeBytes int64  `validate:"max=5242880"`
	Content   io.Reader
}
