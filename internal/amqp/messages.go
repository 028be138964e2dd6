package amqp

import (
	"encoding/json"
	"time"
)

// Message types carried in the AMQP Type property.
const (
	TypeRecurringModified = "recurring.modified"
	TypeExpenseCreated    = "expense.created"
)

// ModificationMessage announces a new amount for a recurring expense.
// Only ids and the effective date travel; the worker reloads the expense from the database.
type ModificationMessage struct {
	RecurringID   int64     `json:"recurring_id"`
	EffectiveDate int64     `json:"effective_date"`
	AmountCents   int64     `json:"amount_cents"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewModificationMessage creates a message for an effective date in epoch millis.
func NewModificationMessage(recurringID, effectiveDate, amountCents int64) *ModificationMessage {
	return &ModificationMessage{
		RecurringID:   recurringID,
		EffectiveDate: effectiveDate,
		AmountCents:   amountCents,
		Timestamp:     time.Now(),
	}
}

// ExpenseMessage announces a newly stored expense.
type ExpenseMessage struct {
	ExpenseID   int64     `json:"expense_id"`
	Date        int64     `json:"date"`
	AmountCents int64     `json:"amount_cents"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewExpenseMessage creates a message for an expense dated in epoch millis.
func NewExpenseMessage(expenseID, date, amountCents int64) *ExpenseMessage {
	return &ExpenseMessage{
		ExpenseID:   expenseID,
		Date:        date,
		AmountCents: amountCents,
		Timestamp:   time.Now(),
	}
}

func (m *ModificationMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func (m *ExpenseMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ModificationMessageFromJSON(data []byte) (*ModificationMessage, error) {
	var msg ModificationMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func ExpenseMessageFromJSON(data []byte) (*ExpenseMessage, error) {
	var msg ExpenseMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
