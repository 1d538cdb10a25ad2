// Package relay implements a file relay over the dispatch engine: a
// publisher streams chunks to subscribers through per-transfer rooms,
// with chunk-level confirmation.
package relay

import "github.com/google/uuid"

// Status is the lifecycle state of a transfer.
type Status string

const (
	// StatusOpen means the transfer was announced and awaits a subscriber.
	StatusOpen Status = "open"

	// StatusFull means a subscriber joined and chunks may flow.
	StatusFull Status = "full"

	// StatusSent means a chunk is in flight, awaiting confirmation.
	StatusSent Status = "sent"

	// StatusConfirmed means the last chunk was confirmed.
	StatusConfirmed Status = "confirmed"

	// StatusFinished means the publisher completed the transfer.
	StatusFinished Status = "finished"
)

// Transfer is one announced file transfer.
type Transfer struct {
	FileID   string `json:"file_id"`
	FileName string `json:"file_name" validate:"required"`
	Status   Status `json:"status"`
}

// NewTransfer announces a transfer in the open state.
func NewTransfer(fileName string) *Transfer {
	return &Transfer{
		FileID:   uuid.NewString(),
		FileName: fileName,
		Status:   StatusOpen,
	}
}

// PublishersRoom names the room holding the transfer's publisher.
func PublishersRoom(fileID string) string {
	return fileID + "-publishers"
}

// SubscribersRoom names the room holding the transfer's subscribers.
func SubscribersRoom(fileID string) string {
	return fileID + "-subscribers"
}
