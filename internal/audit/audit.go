package audit

import (
	"encoding/json"
	"io"
	"log"
	"time"
)

type Event struct {
	Timestamp time.Time `json:"timestamp"`
	EventType string    `json:"event_type"`
	OrderID   string    `json:"order_id,omitempty"`
	UID       string    `json:"uid,omitempty"`
	Amount    string    `json:"amount,omitempty"`
	Status    string    `json:"status"`
	Actor     string    `json:"actor,omitempty"`
	Details   any       `json:"details,omitempty"`
}

// Logger writes one JSON line per money- or inventory-affecting event.
type Logger struct {
	out *log.Logger
}

func NewLogger() *Logger {
	return &Logger{out: log.Default()}
}

// NewLoggerTo writes audit lines to w instead of the standard logger.
func NewLoggerTo(w io.Writer) *Logger {
	return &Logger{out: log.New(w, "", 0)}
}

func (a *Logger) LogLedger(uid, orderID, reason, delta, balanceAfter string) {
	a.log(Event{
		EventType: "LEDGER",
		OrderID:   orderID,
		UID:       uid,
		Amount:    delta,
		Status:    "SUCCESS",
		Details: map[string]string{
			"reason":        reason,
			"balance_after": balanceAfter,
		},
	})
}

func (a *Logger) LogTransition(orderID, uid, from, to, actor string) {
	a.log(Event{
		EventType: "ORDER_TRANSITION",
		OrderID:   orderID,
		UID:       uid,
		Status:    "SUCCESS",
		Actor:     actor,
		Details:   map[string]string{"from": from, "to": to},
	})
}

func (a *Logger) LogReprice(orderID, actor, oldPrice, newPrice, reason string) {
	a.log(Event{
		EventType: "ORDER_REPRICE",
		OrderID:   orderID,
		Amount:    newPrice,
		Status:    "SUCCESS",
		Actor:     actor,
		Details:   map[string]string{"old_price": oldPrice, "reason": reason},
	})
}

// LogIgnored records a rejected integrity violation that was turned into a no-op
// (second refund, second release, consume by a foreign order).
func (a *Logger) LogIgnored(operation, subject, reason string) {
	a.log(Event{
		EventType: "IGNORED_" + operation,
		OrderID:   subject,
		Status:    "NOOP",
		Details:   map[string]string{"reason": reason},
	})
}

func (a *Logger) LogPricing(key, actor string, superseded, version int64, checked bool) {
	a.log(Event{
		EventType: "PRICING_OVERRIDE",
		Status:    "SUCCESS",
		Actor:     actor,
		Details: map[string]any{
			"key":                key,
			"superseded_version": superseded,
			"version":            version,
			"version_checked":    checked,
		},
	})
}

func (a *Logger) LogInventory(poolKey, operation string, count int) {
	a.log(Event{
		EventType: "CODE_POOL",
		Status:    "SUCCESS",
		Details: map[string]any{
			"pool_key":  poolKey,
			"operation": operation,
			"count":     count,
		},
	})
}

func (a *Logger) LogError(subject, operation string, err error) {
	a.log(Event{
		EventType: "ERROR",
		OrderID:   subject,
		Status:    "FAILED",
		Details:   map[string]string{"operation": operation, "error": err.Error()},
	})
}

func (a *Logger) log(event Event) {
	if a == nil {
		return
	}
	event.Timestamp = time.Now()
	data, _ := json.Marshal(event)
	a.out.Printf("AUDIT: %s", string(data))
}
