package services

import (
	"bytes"
	"errors"
	"io"
	"strings"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/smmwallet/backend/internal/audit"
)

var userCols = []string{"uid", "balance", "banned", "version"}

func quietAudit() *audit.Logger {
	return audit.NewLoggerTo(io.Discard)
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func expectLockUser(mock sqlmock.Sqlmock, uid, balance string, version int64) {
	mock.ExpectQuery("SELECT uid, balance, banned, version FROM users WHERE uid = \\$1 FOR UPDATE").
		WithArgs(uid).
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(uid, balance, false, version))
}

// expectLedgerWrite scripts the txn insert and balance update of one ledger entry.
func expectLedgerWrite(mock sqlmock.Sqlmock, uid, delta, reason string, orderID any, balanceAfter string, version int64) {
	mock.ExpectExec("INSERT INTO wallet_txns").
		WithArgs(sqlmock.AnyArg(), uid, d(delta), reason, orderID, sqlmock.AnyArg(), d(balanceAfter), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE users SET balance = \\$1, version = version \\+ 1, updated_at = \\$2 WHERE uid = \\$3 AND version = \\$4").
		WithArgs(d(balanceAfter), sqlmock.AnyArg(), uid, version).
		WillReturnResult(sqlmock.NewResult(0, 1))
}

func expectRefundCheck(mock sqlmock.Sqlmock, orderID string, exists bool) {
	mock.ExpectQuery("SELECT EXISTS \\(SELECT 1 FROM wallet_txns WHERE order_id = \\$1 AND reason = \\$2\\)").
		WithArgs(orderID, "order_refund").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(exists))
}

type fakeSealer struct{}

func (fakeSealer) Seal(p []byte) ([]byte, error) {
	return append([]byte("sealed:"), p...), nil
}

func (fakeSealer) Open(s []byte) ([]byte, error) {
	if !bytes.HasPrefix(s, []byte("sealed:")) {
		return nil, errors.New("not sealed")
	}
	return s[len("sealed:"):], nil
}

func (fakeSealer) Fingerprint(code string) string {
	return "fp:" + strings.TrimSpace(code)
}
