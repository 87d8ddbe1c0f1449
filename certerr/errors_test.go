package certerr

import (
	"testing"

	"github.com/pkg/errors"

	"github.com/certledger/certledger/storage/model"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind Kind
	}{
		{
			name: "forgery",
			err:  ForgeryError(errors.New("bad signature")),
			kind: KindForgery,
		},
		{
			name: "wrapped conflict",
			err:  errors.Wrap(ConflictErrorf("address %s taken", "abc"), "issue"),
			kind: KindConflict,
		},
		{
			name: "plain error",
			err:  errors.New("boom"),
			kind: KindInternal,
		},
		{
			name: "partial",
			err:  PartialIssuanceError("persisted", errors.New("db down")),
			kind: KindPartialIssuance,
		},
	}
	for _, test := range tests {
		t.Run(
			test.name, func(t *testing.T) {
				if k := KindOf(test.err); k != test.kind {
					t.Errorf("expected kind %s, got %s", test.kind, k)
				}
			},
		)
	}
}

func TestSentinels(t *testing.T) {
	err := errors.Wrap(NameMismatchErrorf("name differs"), "cross check")
	if !errors.Is(err, NameMismatch) {
		t.Error("expected name mismatch sentinel to match")
	}
	if errors.Is(err, Forgery) {
		t.Error("name mismatch must not match forgery")
	}
}

func TestWithStep(t *testing.T) {
	err := WithStep(TransientError("ledger", true, errors.New("deadline")), "externally_submitted")
	e, ok := As(err)
	if !ok {
		t.Fatal("expected *Error")
	}
	if e.Step != "externally_submitted" || !e.Timeout || e.Kind != KindTransient {
		t.Errorf("unexpected error: %+v", e)
	}
	if KindOf(WithStep(errors.New("x"), "persisted")) != KindInternal {
		t.Error("plain errors must become internal errors")
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := map[Kind]int{
		KindForgery:              400,
		KindValidation:           400,
		KindNameMismatch:         409,
		KindConflict:             409,
		KindIncompleteExtraction: 422,
		KindTransient:            503,
		KindPartialIssuance:      502,
		KindUnauthorized:         401,
		KindForbidden:            403,
		KindConfiguration:        500,
		KindInternal:             500,
	}
	for kind, status := range tests {
		if got := HTTPStatus(kind); got != status {
			t.Errorf("HTTPStatus(%s) = %d, want %d", kind, got, status)
		}
	}
}

func TestFromStore(t *testing.T) {
	if KindOf(FromStore(model.NotFoundError("institution not found"))) != KindNotFound {
		t.Error("NotFoundError must translate to KindNotFound")
	}
	if KindOf(FromStore(errors.Wrap(model.AlreadyExistsError("taken"), "create"))) != KindConflict {
		t.Error("AlreadyExistsError must translate to KindConflict")
	}
	if FromStore(nil) != nil {
		t.Error("nil must stay nil")
	}
	err := WithAddress(FromStore(model.AlreadyExistsError("taken")), "addr")
	e, ok := As(err)
	if !ok || e.Address != "addr" || e.Kind != KindConflict {
		t.Errorf("unexpected annotated error %+v", e)
	}
}
