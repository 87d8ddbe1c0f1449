package httperr

import (
	"context"
	"testing"

	"github.com/pkg/errors"

	"github.com/certledger/certledger/certerr"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{
			name:   "forged",
			err:    certerr.ForgeryError(errors.New("bad signature")),
			status: 400,
		},
		{
			name:   "ledger timeout",
			err:    certerr.WithStep(certerr.TransientError("ledger", true, context.DeadlineExceeded), "externally_submitted"),
			status: 504,
		},
		{
			name:   "extraction timeout",
			err:    certerr.TransientError("extraction", true, context.DeadlineExceeded),
			status: 408,
		},
		{
			name:   "extraction unavailable",
			err:    certerr.TransientError("extraction", false, errors.New("connection refused")),
			status: 503,
		},
		{
			name:   "partial",
			err:    certerr.PartialIssuanceError("persisted", errors.New("db")),
			status: 502,
		},
		{
			name:   "plain",
			err:    errors.New("boom"),
			status: 500,
		},
	}
	for _, test := range tests {
		t.Run(
			test.name, func(t *testing.T) {
				if got := Status(test.err); got != test.status {
					t.Errorf("Status() = %d, want %d", got, test.status)
				}
			},
		)
	}
}

func TestBody(t *testing.T) {
	err := certerr.WithAddress(certerr.PartialIssuanceError("persisted", errors.New("db")), "addr")
	body := Body(err)
	if body.Error != "partial_issuance" || body.Step != "persisted" || body.Address != "addr" {
		t.Errorf("unexpected body %+v", body)
	}
}
