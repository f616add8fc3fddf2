package repository

import (
	"fmt"

	"github.com/set-night/omegachat/internal/domain"
)

// StorageError tags a driver failure with domain.ErrStorage.
func StorageError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStorage, err)
}
