package models

import "time"

type HandshakeStatus string

const (
	HandshakePending   HandshakeStatus = "pending"
	HandshakeCompleted HandshakeStatus = "completed"
)

// Handshake is the short-lived record of an OAuth connect flow, keyed by the
// state nonce, that a client polls while the provider popup is open.
type Handshake struct {
	Nonce       string          `json:"nonce"`
	Status      HandshakeStatus `json:"status"`
	Platform    Platform        `json:"platform"`
	WorkspaceID int64           `json:"workspaceId"`
	Success     bool            `json:"success"`
	AccountID   int64           `json:"accountId,omitempty"`
	PageIDs     []int64         `json:"pageIds,omitempty"`
	Error       string          `json:"error,omitempty"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}
