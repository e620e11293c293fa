package httpserver

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid/v5"

	"github.com/and161185/signator/internal/convert"
	"github.com/and161185/signator/internal/errs"
	"github.com/and161185/signator/internal/service"
)

const pdfContentType = "application/pdf"

// multipart overhead allowed on top of the file limit
const formSlack = 1 << 20

func pathID(c *gin.Context) (uuid.UUID, error) {
	return convert.ParseID(c.Param("id"))
}

func (s *Server) listDocuments(c *gin.Context) {
	docs, err := s.d.Documents.List(c.Request.Context(), caller(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, convert.ToDocuments(docs))
}

func (s *Server) uploadDocument(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUpload+formSlack)

	fh, err := c.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			s.fail(c, errs.Invalid("file exceeds %d bytes", s.maxUpload))
			return
		}
		s.fail(c, errs.Invalid("file is required"))
		return
	}
	if fh.Size > s.maxUpload {
		s.fail(c, errs.Invalid("file exceeds %d bytes", s.maxUpload))
		return
	}
	f, err := fh.Open()
	if err != nil {
		s.fail(c, errs.Invalid("cannot read file"))
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, s.maxUpload+1))
	if err != nil {
		s.fail(c, errs.Invalid("cannot read file"))
		return
	}

	d, err := s.d.Documents.Upload(c.Request.Context(), caller(c), service.UploadInput{
		Title:    c.PostForm("title"),
		Filename: fh.Filename,
		Data:     data,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, convert.ToDocument(*d))
}

func (s *Server) deleteDocument(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	if err := s.d.Documents.Delete(c.Request.Context(), caller(c), id); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) markReady(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	if err := s.d.Documents.MarkReady(c.Request.Context(), caller(c), id); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Document marked ready"})
}

func (s *Server) documentFile(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	d, data, err := s.d.Documents.Open(c.Request.Context(), caller(c), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Header("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": d.Filename}))
	c.Data(http.StatusOK, pdfContentType, data)
}

func (s *Server) documentMetadata(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	md, err := s.d.Documents.Metadata(c.Request.Context(), caller(c), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, convert.ToMetadata(md.Info, md.Positions))
}

func (s *Server) documentPage(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	page, err := strconv.Atoi(c.Query("page"))
	if err != nil {
		s.fail(c, errs.ErrInvalidPageNumber)
		return
	}
	data, err := s.d.Documents.Page(c.Request.Context(), caller(c), id, page)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Data(http.StatusOK, pdfContentType, data)
}

func (s *Server) saveFields(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	var req convert.PositionsRequest
	if err := bind(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	payload, err := convert.FromPositionsRequest(req)
	if err != nil {
		s.fail(c, err)
		return
	}
	n, err := s.d.Fields.ReplaceAll(c.Request.Context(), caller(c), id, payload)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Field positions saved successfully", "count": n})
}

func (s *Server) documentSummary(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	sum, err := s.d.Summaries.Get(c.Request.Context(), caller(c), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": sum})
}

func (s *Server) regenerateSummary(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	var req convert.SummaryRequest
	// an empty body regenerates with defaults
	if c.Request.ContentLength != 0 {
		if err := bind(c, &req); err != nil {
			s.fail(c, err)
			return
		}
	}
	sum, err := s.d.Summaries.Regenerate(c.Request.Context(), caller(c), id, service.SummaryOptions{
		Model:              req.Model,
		MaxTokens:          req.MaxTokens,
		OutputType:         req.OutputType,
		BulletPoints:       req.BulletPoints,
		HighlightKeyPoints: req.HighlightKeyPoints,
		CustomPrompt:       req.CustomPrompt,
		PromptText:         req.PromptText,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": sum})
}

func (s *Server) sign(c *gin.Context) {
	var req convert.SignRequest
	if err := bind(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	reqID, err := convert.ParseID(req.RequestID)
	if err != nil {
		s.fail(c, err)
		return
	}
	docID, err := convert.ParseID(req.DocID)
	if err != nil {
		s.fail(c, err)
		return
	}
	out, err := s.d.Signer.Sign(c.Request.Context(), caller(c), service.SignInput{
		RequestID:  reqID,
		DocumentID: docID,
		SignerName: req.UserName,
		Signature:  req.Signature,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, convert.ToSignResponse(out))
}
