package storage

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by all store implementations. Services surface them
// with errors.Is rather than matching on text.
var (
	// ErrNotFound reports a missing record.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate reports a unique-constraint violation (email, wallet id,
	// ledger reference).
	ErrDuplicate = errors.New("duplicate record")
	// ErrWalletIDInUse reports specifically the wallet-id unique constraint,
	// so account creation can regenerate and retry. It matches ErrDuplicate
	// under errors.Is.
	ErrWalletIDInUse = fmt.Errorf("wallet id in use: %w", ErrDuplicate)
	// ErrVersionConflict reports a lost optimistic-concurrency race; the
	// caller should re-read and retry.
	ErrVersionConflict = errors.New("version conflict")
	// ErrInsufficientBalance reports that a debit would take a balance
	// negative. The store enforces this inside the atomic unit so no
	// interleaving can bypass it.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrAlreadyProcessed reports an attempt to decide a ledger entry whose
	// status has already left pending.
	ErrAlreadyProcessed = errors.New("entry already processed")
	// ErrAlreadySettled reports an attempt to settle an investment that is
	// already completed. Callers treat it as benign: the credit happened
	// exactly once.
	ErrAlreadySettled = errors.New("investment already settled")
)
