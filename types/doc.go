/*
Package types holds the error taxonomy shared by every submind package.

It depends on no internal package so the orchestrator, the HTTP layer and
the completion transport can all agree on one structured error shape:

  - ErrorCode:  stable machine readable code
  - Error:      code + message + HTTP status + retryable flag + cause
  - AsError / GetErrorCode / IsRetryable: inspection helpers that follow
    wrapped chains
*/
package types
