package models

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrSnapshotMissing    = errors.New("audit snapshot missing")
	ErrNoRecipientAddress = errors.New("no address for recipient")
)
