package amqp

import (
	"encoding/json"
	"time"
)

// TransactionSyncMessage asks the worker to mirror one committed
// transaction to the export target. It carries only the keys; the worker
// fetches the full row from the ledger store.
type TransactionSyncMessage struct {
	UserID        string    `json:"user_id"`
	TransactionID int64     `json:"transaction_id"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewTransactionSyncMessage(userID string, transactionID int64) *TransactionSyncMessage {
	return &TransactionSyncMessage{
		UserID:        userID,
		TransactionID: transactionID,
		Timestamp:     time.Now(),
	}
}

func (m *TransactionSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func TransactionSyncMessageFromJSON(data []byte) (*TransactionSyncMessage, error) {
	var msg TransactionSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// LimitAlertMessage mirrors a newly-surfaced spending-limit alert for
// out-of-process notification consumers.
type LimitAlertMessage struct {
	UserID    string    `json:"user_id"`
	Severity  string    `json:"severity"`
	Types     []string  `json:"types"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLimitAlertMessage(userID, severity string, types []string) *LimitAlertMessage {
	return &LimitAlertMessage{
		UserID:    userID,
		Severity:  severity,
		Types:     types,
		Timestamp: time.Now(),
	}
}

func (m *LimitAlertMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func LimitAlertMessageFromJSON(data []byte) (*LimitAlertMessage, error) {
	var msg LimitAlertMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
