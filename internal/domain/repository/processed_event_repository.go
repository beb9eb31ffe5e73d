package repository

import "context"

// ProcessedEventRepository registra eventos ya consumidos para idempotencia.
type ProcessedEventRepository interface {
	// Claim marca key como procesado; false si ya estaba registrado.
	Claim(ctx context.Context, key string) (bool, error)
	// Release elimina la marca para permitir un reintento.
	Release(ctx context.Context, key string) error
}
