package render

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/pkg/errors"
	"github.com/skip2/go-qrcode"

	"github.com/certledger/certledger/storage/model"
)

const qrSize = 256

// Renderer renders certificates as QR codes and PDF documents
type Renderer struct {
	// LookupURL is prefixed to the token in QR codes, e.g.
	// https://certs.example.org/verify?token=; empty encodes the bare token
	LookupURL string
	// Issuer is printed in the footer of generated PDFs
	Issuer string
}

// QRContent returns the data encoded in a certificate's QR code
func (r Renderer) QRContent(token string) string {
	return r.LookupURL + token
}

// QR returns a PNG QR code for the token
func (r Renderer) QR(token string) ([]byte, error) {
	if token == "" {
		return nil, errors.New("render: empty token")
	}
	png, err := qrcode.Encode(r.QRContent(token), qrcode.Medium, qrSize)
	return png, errors.Wrap(err, "render: could not encode qr code")
}

// PDF returns an A4 landscape certificate document
func (r Renderer) PDF(cert *model.Certificate, institutionName string) ([]byte, error) {
	qr, err := r.QR(cert.Token)
	if err != nil {
		return nil, err
	}

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetTitle(fmt.Sprintf("Certificate %s", cert.CandidateName), true)
	pdf.SetAuthor(institutionName, true)
	pdf.AddPage()
	// core fonts are cp1252 encoded
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	w, h := pdf.GetPageSize()
	pdf.SetDrawColor(68, 114, 196)
	pdf.SetLineWidth(1.5)
	pdf.Rect(10, 10, w-20, h-20, "D")

	pdf.SetY(30)
	pdf.SetFont("Helvetica", "B", 28)
	pdf.CellFormat(0, 14, "Certificate", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 14)
	pdf.CellFormat(0, 10, tr("issued by "+institutionName), "", 1, "C", false, 0, "")

	pdf.Ln(10)
	pdf.SetFont("Helvetica", "", 12)
	pdf.CellFormat(0, 8, "This certifies that", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "B", 22)
	pdf.CellFormat(0, 12, tr(cert.CandidateName), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 7, tr("Candidate ID: "+cert.CandidateID), "", 1, "C", false, 0, "")

	if cert.Description != "" {
		pdf.Ln(6)
		pdf.SetFont("Helvetica", "", 14)
		pdf.MultiCell(0, 8, tr(cert.Description), "", "C", false)
	}

	pdf.SetY(h - 60)
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(
		0, 6, "Issued on "+time.Unix(cert.IssuedAt, 0).UTC().Format("2 January 2006"), "", 1, "L", false, 0, "",
	)
	pdf.CellFormat(0, 6, "Ledger address: "+cert.LedgerAddress, "", 1, "L", false, 0, "")
	pdf.SetFont("Courier", "", 7)
	pdf.MultiCell(w-90, 4, "Proof: "+cert.NFTHash, "", "L", false)
	if r.Issuer != "" {
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(w-90, 6, tr(r.Issuer), "", 1, "L", false, 0, "")
	}

	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("qr", opts, bytes.NewReader(qr))
	pdf.ImageOptions("qr", w-65, h-65, 45, 45, false, opts, 0, "")

	var buf bytes.Buffer
	if err = pdf.Output(&buf); err != nil {
		return nil, errors.Wrap(err, "render: could not create pdf")
	}
	return buf.Bytes(), nil
}
