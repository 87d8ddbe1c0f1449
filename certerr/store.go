package certerr

import (
	"github.com/pkg/errors"

	"github.com/certledger/certledger/storage/model"
)

// FromStore translates the typed errors of the storage layer into errors of
// this package; other errors are returned unchanged
func FromStore(err error) error {
	if err == nil {
		return nil
	}
	var notFound model.NotFoundError
	if errors.As(err, &notFound) {
		return NotFoundErrorf("%s", notFound.Error())
	}
	var exists model.AlreadyExistsError
	if errors.As(err, &exists) {
		return ConflictErrorf("%s", exists.Error())
	}
	return err
}
