package render

import (
	"bytes"
	"testing"

	"github.com/certledger/certledger/storage/model"
)

func TestQR(t *testing.T) {
	r := Renderer{LookupURL: "https://certs.example.org/t/"}
	if got := r.QRContent("abc"); got != "https://certs.example.org/t/abc" {
		t.Errorf("unexpected qr content %q", got)
	}
	png, err := r.QR("a.b.c")
	if err != nil {
		t.Fatalf("QR failed: %v", err)
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG")) {
		t.Error("QR did not return a png")
	}
	if _, err = r.QR(""); err == nil {
		t.Error("expected error for empty token")
	}
}

func TestPDF(t *testing.T) {
	cert := &model.Certificate{
		CandidateID:   "cand1",
		CandidateName: "Alice",
		Description:   "BSc Computer Science",
		IssuedAt:      1700000000,
		NFTHash:       "5VERv8NMvzbJMEkV8xnrLkEaWRtSz9CosKDYjCJjBRnb",
		LedgerAddress: "addr",
		Token:         "a.b.c",
	}
	data, err := Renderer{Issuer: "certledger"}.PDF(cert, "Test University")
	if err != nil {
		t.Fatalf("PDF failed: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Error("PDF did not return a pdf document")
	}
}
