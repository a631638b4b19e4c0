package api

import (
	"fmt"
	"net/http"
)

// Error codes in the 40001-49999 range are the client's fault and return
// HTTP Status 400, 404 or 409. Codes 50001-59999 are the server's fault.
//
// NEVER change an existing error code, only append new ones after the
// current last 4XXX or 5XXX.
var (
	ErrResourceNotFound    = Error{Code: 40001, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("resource not found")}
	ErrMalformedBody       = Error{Code: 40002, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed JSON body")}
	ErrTransactionNotFound = Error{Code: 40003, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("transaction not found")}
	ErrMalformedTxHash     = Error{Code: 40004, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed transaction hash")}
	ErrMalformedSignals    = Error{Code: 40005, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed public signals")}
	ErrMalformedRoot       = Error{Code: 40006, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed root")}
	ErrMalformedDeposit    = Error{Code: 40007, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed deposit")}

	ErrMarshalingServerJSONFailed = Error{Code: 50001, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("marshaling (server-side) JSON failed")}
	ErrGenericInternalServerError = Error{Code: 50002, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("internal server error")}
)
