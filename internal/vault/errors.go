package vault

import "fmt"

// IntegrityError reports a decryption or manifest-decode failure. This class
// signals possible data loss or tampering and must never be swallowed.
type IntegrityError struct {
	Op   string
	Path string
	Err  error
}

func (e *IntegrityError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("vault integrity: %s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("vault integrity: %s: %v", e.Op, e.Err)
}

func (e *IntegrityError) Unwrap() error { return e.Err }
