package services

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"sync"
	"testing"
)

// txStubDB returns a *sql.DB whose connections only know how to open and
// commit transactions. The in-memory repository fakes ignore the executor
// they are handed, so this is enough to drive a service's full write path
// end to end without a database.
func txStubDB(t *testing.T) *sql.DB {
	t.Helper()
	registerTxStub.Do(func() { sql.Register("txstub", txStubDriver{}) })
	db, err := sql.Open("txstub", "")
	if err != nil {
		t.Fatalf("failed to open tx stub: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

var registerTxStub sync.Once

type txStubDriver struct{}

func (txStubDriver) Open(string) (driver.Conn, error) { return txStubConn{}, nil }

type txStubConn struct{}

func (txStubConn) Prepare(string) (driver.Stmt, error) {
	return nil, errors.New("tx stub supports transactions only")
}
func (txStubConn) Close() error              { return nil }
func (txStubConn) Begin() (driver.Tx, error) { return txStubTx{}, nil }

type txStubTx struct{}

func (txStubTx) Commit() error   { return nil }
func (txStubTx) Rollback() error { return nil }
