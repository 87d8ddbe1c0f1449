package certledger

import (
	"io"
	"slices"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"

	"github.com/certledger/certledger/certerr"
	"github.com/certledger/certledger/extraction"
	"github.com/certledger/certledger/internal/httperr"
	"github.com/certledger/certledger/token"
	"github.com/certledger/certledger/verification"
)

// verifyResponse is sent for verification outcomes that are errors, e.g. a
// forged token; it carries what was extracted next to the error
type verifyResponse struct {
	httperr.Response
	*verification.Result
}

type tokenVerifyRequest struct {
	Token string `json:"token"`
	Name  string `json:"name"`
}

type tokenVerifyResponse struct {
	Outcome token.Outcome `json:"outcome"`
	Claims  *token.Claims `json:"claims,omitempty"`
}

type tokenVerifyErrorResponse struct {
	httperr.Response
	tokenVerifyResponse
}

// formFile reads the first of the named multipart files present
func formFile(c *fiber.Ctx, names ...string) (*extraction.File, error) {
	for _, name := range names {
		fh, err := c.FormFile(name)
		if err != nil {
			continue
		}
		f, err := fh.Open()
		if err != nil {
			return nil, errors.Wrap(err, "could not open uploaded file")
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			return nil, errors.Wrap(err, "could not read uploaded file")
		}
		return &extraction.File{
			Name:        fh.Filename,
			ContentType: fh.Header.Get(fiber.HeaderContentType),
			Data:        data,
		}, nil
	}
	return nil, certerr.ValidationErrorf("no file uploaded in form field '%s'", names[0])
}

func writeVerification(c *fiber.Ctx, res *verification.Result, err error) error {
	if err == nil {
		return c.JSON(res)
	}
	if res == nil {
		return httperr.Write(c, err)
	}
	return c.Status(httperr.Status(err)).JSON(
		verifyResponse{
			Response: httperr.Body(err),
			Result:   res,
		},
	)
}

func (cl *CertLedger) registerVerify(r fiber.Router) {
	r.Post(
		"/verify", func(c *fiber.Ctx) error {
			file, err := formFile(c, "file", "certificate")
			if err != nil {
				return httperr.Write(c, err)
			}
			res, err := cl.Verification.Verify(
				c.UserContext(), verification.Upload{
					Filename:    file.Name,
					ContentType: file.ContentType,
					Data:        file.Data,
					ClientIP:    c.IP(),
				},
			)
			return writeVerification(c, res, err)
		},
	)
	r.Post(
		"/verify/analyze", func(c *fiber.Ctx) error {
			if cl.Analyzer == nil {
				return httperr.Write(c, certerr.ConfigurationErrorf("no analysis service configured"))
			}
			test, err := formFile(c, "test_file")
			if err != nil {
				return httperr.Write(c, err)
			}
			reference, err := formFile(c, "reference_file")
			if err != nil {
				return httperr.Write(c, err)
			}
			for _, f := range []*extraction.File{test, reference} {
				f.ContentType = verification.NormalizeContentType(f.ContentType)
				if !slices.Contains(verification.AllowedContentTypes, f.ContentType) {
					return httperr.InvalidRequest(c, "invalid file type '"+f.ContentType+"'")
				}
			}
			analysis, err := cl.Analyzer.Analyze(c.UserContext(), *test, *reference)
			if err != nil {
				return httperr.Write(c, err)
			}
			return c.JSON(analysis)
		},
	)
	r.Post(
		"/tokens/verify", func(c *fiber.Ctx) error {
			var req tokenVerifyRequest
			if err := c.BodyParser(&req); err != nil {
				return httperr.InvalidRequest(c, "could not parse request body: "+err.Error())
			}
			if req.Token == "" {
				return httperr.InvalidRequest(c, "token is required")
			}
			var (
				tok     *token.Token
				outcome = token.OutcomeVerified
				err     error
			)
			if req.Name != "" {
				tok, outcome, err = cl.Verifier.CrossCheck(req.Name, req.Token)
			} else if tok, err = cl.Verifier.Verify(req.Token); certerr.Is(err, certerr.KindForgery) {
				outcome = token.OutcomeForged
			}
			res := tokenVerifyResponse{Outcome: outcome}
			if tok != nil {
				res.Claims = &tok.Claims
			}
			if err == nil {
				return c.JSON(res)
			}
			if !certerr.Is(err, certerr.KindForgery) && !certerr.Is(err, certerr.KindNameMismatch) {
				return httperr.Write(c, err)
			}
			return c.Status(httperr.Status(err)).JSON(
				tokenVerifyErrorResponse{
					Response:            httperr.Body(err),
					tokenVerifyResponse: res,
				},
			)
		},
	)
}
