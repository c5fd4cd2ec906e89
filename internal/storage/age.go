package storage

import (
	"context"
	"fmt"
	"io"

	"filippo.io/age"
)

// AgeStore encrypts every blob to an X25519 recipient before handing it to
// the wrapped store. Stored keys gain an ".age" suffix.
type AgeStore struct {
	next      BlobStore
	recipient age.Recipient
}

func NewAgeStore(next BlobStore, recipient string) (*AgeStore, error) {
	r, err := age.ParseX25519Recipient(recipient)
	if err != nil {
		return nil, fmt.Errorf("parsing age recipient: %w", err)
	}
	return &AgeStore{next: next, recipient: r}, nil
}

func (s *AgeStore) Put(ctx context.Context, key string, r io.Reader, _ string) (string, error) {
	pr, pw := io.Pipe()

	go func() {
		encWriter, err := age.Encrypt(pw, s.recipient)
		if err != nil {
			pw.CloseWithError(fmt.Errorf("creating encrypted writer: %w", err))
			return
		}
		if _, err := io.Copy(encWriter, r); err != nil {
			pw.CloseWithError(fmt.Errorf("encrypting data: %w", err))
			return
		}
		pw.CloseWithError(encWriter.Close())
	}()

	url, err := s.next.Put(ctx, key+".age", pr, "application/octet-stream")
	// unblock the encrypting goroutine if the inner store stopped reading early
	pr.CloseWithError(io.ErrClosedPipe)
	return url, err
}
