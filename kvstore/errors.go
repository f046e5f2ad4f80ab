package kvstore

import "errors"

// ErrQuotaExceeded is returned when a write would take a store over quota.
var ErrQuotaExceeded = errors.New("kvstore: quota exceeded")

func isQuota(err error) bool {
	return errors.Is(err, ErrQuotaExceeded)
}
