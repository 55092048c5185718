package amqp

import (
	"encoding/json"
	"time"

	"gastos/internal/core"
	"gastos/internal/persistence"
)

// Change operations carried by RecordChangedMessage.
const (
	OpPut    = "put"
	OpDelete = "delete"
)

// RecordChangedMessage announces one committed write to a user's ledger.
// Puts carry a flattened copy of the record so consumers need no database
// access; deletes only carry the key.
type RecordChangedMessage struct {
	Kind      string         `json:"kind"`
	Op        string         `json:"op"`
	UserID    string         `json:"user_id"`
	Month     string         `json:"month,omitempty"`
	ID        string         `json:"id"`
	Record    *RecordPayload `json:"record,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// RecordPayload is the flat shape of any record kind.
type RecordPayload struct {
	Date        string              `json:"date,omitempty"`
	Description string              `json:"description,omitempty"`
	Category    string              `json:"category,omitempty"`
	AccountID   string              `json:"account_id,omitempty"`
	AmountCents int64               `json:"amount_cents,omitempty"`
	Installment *InstallmentPayload `json:"installment,omitempty"`
	Name        string              `json:"name,omitempty"`
	Color       string              `json:"color,omitempty"`
	Icon        string              `json:"icon,omitempty"`
	Default     bool                `json:"default,omitempty"`
}

type InstallmentPayload struct {
	Total         int   `json:"total"`
	Current       int   `json:"current"`
	OriginalCents int64 `json:"original_cents"`
}

// NewExpensePut builds the message for a stored expense.
func NewExpensePut(userID string, e core.Expense) *RecordChangedMessage {
	p := &RecordPayload{
		Date:        e.Date.String(),
		Description: e.Description,
		Category:    e.Category,
		AccountID:   e.AccountID,
		AmountCents: e.Amount.Cents,
	}
	if in, ok := e.InstallmentInfo(); ok {
		p.Installment = &InstallmentPayload{Total: in.Total, Current: in.Current, OriginalCents: in.OriginalAmount.Cents}
	}
	return newMessage(persistence.KindExpense, OpPut, userID, e.Date.MonthKey(), e.ID, p)
}

func NewIncomePut(userID string, in core.Income) *RecordChangedMessage {
	return newMessage(persistence.KindIncome, OpPut, userID, in.Date.MonthKey(), in.ID, &RecordPayload{
		Date:        in.Date.String(),
		Description: in.Description,
		AccountID:   in.AccountID,
		AmountCents: in.Amount.Cents,
	})
}

func NewCategoryPut(userID string, c core.Category) *RecordChangedMessage {
	return newMessage(persistence.KindCategory, OpPut, userID, "", c.ID, &RecordPayload{Name: c.Name, Color: c.Color, Icon: c.Icon})
}

func NewAccountPut(userID string, a core.Account) *RecordChangedMessage {
	return newMessage(persistence.KindAccount, OpPut, userID, "", a.ID, &RecordPayload{Name: a.Name, Color: a.Color, Default: a.Default})
}

// NewDelete builds a delete message. month is empty for categories and accounts.
func NewDelete(kind, userID, month, id string) *RecordChangedMessage {
	return newMessage(kind, OpDelete, userID, month, id, nil)
}

func newMessage(kind, op, userID, month, id string, p *RecordPayload) *RecordChangedMessage {
	return &RecordChangedMessage{
		Kind:      kind,
		Op:        op,
		UserID:    userID,
		Month:     month,
		ID:        id,
		Record:    p,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *RecordChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RecordChangedMessageFromJSON parses a message body. Messages missing a
// kind, op or id are rejected.
func RecordChangedMessageFromJSON(data []byte) (*RecordChangedMessage, error) {
	var msg RecordChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Kind == "" || msg.ID == "" || (msg.Op != OpPut && msg.Op != OpDelete) {
		return nil, errMalformed
	}
	return &msg, nil
}
