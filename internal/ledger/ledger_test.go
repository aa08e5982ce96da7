package ledger

import (
	"errors"
	"testing"
	"time"

	"github.com/lucassmelendez/ct-fastapi/internal/webpay"
)

// makeTransaction creates a Transaction with sensible defaults.
func makeTransaction(buyOrder, token string) *Transaction {
	return &Transaction{
		BuyOrder:  buyOrder,
		SessionID: "session_" + buyOrder,
		Amount:    50000,
		Token:     token,
		Status:    StatusCreated,
		CreatedAt: time.Now(),
	}
}

func mustInsert(t *testing.T, l *Ledger, tx *Transaction) {
	t.Helper()
	if err := l.Insert(tx); err != nil {
		t.Fatalf("Insert(%s) failed: %v", tx.BuyOrder, err)
	}
}

func TestInsert(t *testing.T) {
	t.Run("Given an empty ledger When inserting Then the transaction is retrievable by both keys", func(t *testing.T) {
		l := New()
		mustInsert(t, l, makeTransaction("order_1", "tok_1"))

		byOrder, err := l.Get("order_1")
		if err != nil {
			t.Fatalf("Get by buy order failed: %v", err)
		}
		byToken, err := l.Get("tok_1")
		if err != nil {
			t.Fatalf("Get by token failed: %v", err)
		}
		if byOrder.Token != byToken.Token || byOrder.BuyOrder != byToken.BuyOrder {
			t.Errorf("indexes disagree: %+v vs %+v", byOrder, byToken)
		}
		if len(byOrder.History) != 1 || byOrder.History[0].Status != StatusCreated {
			t.Errorf("expected initial history entry, got %+v", byOrder.History)
		}
	})

	t.Run("Given an existing buy order When inserting again Then DuplicateBuyOrder and no overwrite", func(t *testing.T) {
		l := New()
		mustInsert(t, l, makeTransaction("order_1", "tok_1"))

		dup := makeTransaction("order_1", "tok_2")
		dup.Amount = 999
		if err := l.Insert(dup); !errors.Is(err, ErrDuplicateBuyOrder) {
			t.Fatalf("error = %v, want ErrDuplicateBuyOrder", err)
		}

		kept, _ := l.Get("order_1")
		if kept.Amount != 50000 {
			t.Errorf("original transaction was overwritten: amount = %d", kept.Amount)
		}
	})

	t.Run("Given an existing token When inserting again Then DuplicateToken", func(t *testing.T) {
		l := New()
		mustInsert(t, l, makeTransaction("order_1", "tok_1"))

		if err := l.Insert(makeTransaction("order_2", "tok_1")); !errors.Is(err, ErrDuplicateToken) {
			t.Fatalf("error = %v, want ErrDuplicateToken", err)
		}
	})

	t.Run("Given missing identifiers When inserting Then rejected", func(t *testing.T) {
		l := New()
		if err := l.Insert(makeTransaction("", "tok_1")); err == nil {
			t.Error("expected error for empty buy order")
		}
		if err := l.Insert(makeTransaction("order_1", "")); err == nil {
			t.Error("expected error for empty token")
		}
	})
}

func TestGet(t *testing.T) {
	t.Run("Given an unknown key When getting Then TransactionNotFound", func(t *testing.T) {
		l := New()
		if _, err := l.Get("nope"); !errors.Is(err, ErrTransactionNotFound) {
			t.Fatalf("error = %v, want ErrTransactionNotFound", err)
		}
	})

	t.Run("Given a stored transaction When mutating the returned copy Then the ledger is unaffected", func(t *testing.T) {
		l := New()
		mustInsert(t, l, makeTransaction("order_1", "tok_1"))

		got, _ := l.Get("order_1")
		got.Status = StatusRefunded
		got.History = append(got.History, StatusChange{Status: StatusRefunded, At: time.Now()})

		fresh, _ := l.Get("order_1")
		if fresh.Status != StatusCreated {
			t.Errorf("ledger state leaked: status = %s", fresh.Status)
		}
		if len(fresh.History) != 1 {
			t.Errorf("ledger history leaked: %d entries", len(fresh.History))
		}
	})
}

func TestUpdateStatus(t *testing.T) {
	result := &webpay.TransactionResult{
		Status:       "AUTHORIZED",
		BuyOrder:     "order_1",
		ResponseCode: 0,
	}

	t.Run("Given a status change When updating Then history grows and ConfirmedAt is set once", func(t *testing.T) {
		l := New()
		mustInsert(t, l, makeTransaction("order_1", "tok_1"))

		if err := l.UpdateStatus("tok_1", StatusAuthorized, result); err != nil {
			t.Fatalf("UpdateStatus failed: %v", err)
		}
		tx, _ := l.Get("tok_1")
		if tx.Status != StatusAuthorized {
			t.Errorf("status = %s, want %s", tx.Status, StatusAuthorized)
		}
		if len(tx.History) != 2 {
			t.Errorf("history length = %d, want 2", len(tx.History))
		}
		if tx.ConfirmedAt == nil {
			t.Fatal("ConfirmedAt not set")
		}

		confirmedAt := *tx.ConfirmedAt
		if err := l.UpdateStatus("tok_1", StatusAuthorized, result); err != nil {
			t.Fatalf("second UpdateStatus failed: %v", err)
		}
		tx, _ = l.Get("tok_1")
		if len(tx.History) != 2 {
			t.Errorf("same-status update must not grow history, got %d entries", len(tx.History))
		}
		if !tx.ConfirmedAt.Equal(confirmedAt) {
			t.Error("ConfirmedAt changed on repeated update")
		}
	})

	t.Run("Given an unknown token When updating Then TransactionNotFound", func(t *testing.T) {
		l := New()
		if err := l.UpdateStatus("nope", StatusAuthorized, result); !errors.Is(err, ErrTransactionNotFound) {
			t.Fatalf("error = %v, want ErrTransactionNotFound", err)
		}
	})
}

func TestRecordRefund(t *testing.T) {
	l := New()
	mustInsert(t, l, makeTransaction("order_1", "tok_1"))

	refund := &webpay.RefundResult{Type: "REVERSED", Balance: 0}
	if err := l.RecordRefund("tok_1", refund); err != nil {
		t.Fatalf("RecordRefund failed: %v", err)
	}

	tx, _ := l.Get("tok_1")
	if tx.Status != StatusRefunded {
		t.Errorf("status = %s, want %s", tx.Status, StatusRefunded)
	}
	if tx.RefundResponse == nil || tx.RefundResponse.Type != "REVERSED" {
		t.Errorf("refund response not stored: %+v", tx.RefundResponse)
	}
}

func TestList(t *testing.T) {
	l := New()
	base := time.Now()
	for i, name := range []string{"order_c", "order_a", "order_b"} {
		tx := makeTransaction(name, "tok_"+name)
		tx.CreatedAt = base.Add(time.Duration(i) * time.Second)
		mustInsert(t, l, tx)
	}

	entries := l.List()
	if len(entries) != 3 {
		t.Fatalf("List returned %d entries, want 3", len(entries))
	}
	want := []string{"order_c", "order_a", "order_b"} // creation order
	for i, entry := range entries {
		if entry.BuyOrder != want[i] {
			t.Errorf("entries[%d] = %s, want %s", i, entry.BuyOrder, want[i])
		}
	}
}
