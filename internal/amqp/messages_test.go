package amqp

import "testing"

func TestTransactionSyncMessageRoundTrip(t *testing.T) {
	msg := NewTransactionSyncMessage("u1", 42)
	if msg.Timestamp.IsZero() {
		t.Fatal("timestamp not set")
	}

	body, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	decoded, err := TransactionSyncMessageFromJSON(body)
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	if decoded.UserID != "u1" || decoded.TransactionID != 42 {
		t.Errorf("decoded = %+v", decoded)
	}

	if _, err := TransactionSyncMessageFromJSON([]byte("{broken")); err == nil {
		t.Error("garbage body decoded without error")
	}
}

func TestLimitAlertMessage(t *testing.T) {
	msg := NewLimitAlertMessage("u1", "exceeded", []string{"Food", "Bills"})
	body, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	decoded, err := LimitAlertMessageFromJSON(body)
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	if decoded.Severity != "exceeded" || len(decoded.Types) != 2 {
		t.Errorf("decoded = %+v", decoded)
	}
}
