// Package vault encrypts finalized recordings at rest and maintains the
// encrypted manifest that maps opaque artifact names to recording metadata.
package vault
