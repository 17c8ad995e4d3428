package client

import "errors"

var (
	ErrClosed   = errors.New("client is closed")
	ErrRejected = errors.New("server rejected command")
)
