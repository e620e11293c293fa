package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid/v5"

	"github.com/and161185/signator/internal/convert"
	"github.com/and161185/signator/internal/service"
)

func (s *Server) listRequests(c *gin.Context) {
	var docID *uuid.UUID
	if q := c.Query("documentId"); q != "" {
		id, err := convert.ParseID(q)
		if err != nil {
			s.fail(c, err)
			return
		}
		docID = &id
	}
	reqs, err := s.d.Requests.List(c.Request.Context(), caller(c), docID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, convert.ToSigningRequests(reqs))
}

func (s *Server) createRequests(c *gin.Context) {
	var req convert.CreateRequests
	if err := bind(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	ids, userID, email, err := convert.FromCreateRequests(req)
	if err != nil {
		s.fail(c, err)
		return
	}
	reqs, err := s.d.Requests.Create(c.Request.Context(), caller(c), service.CreateRequestsInput{
		DocumentIDs: ids,
		UserID:      userID,
		Email:       email,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, convert.ToSigningRequests(reqs))
}

func (s *Server) myRequests(c *gin.Context) {
	reqs, err := s.d.Requests.ListMine(c.Request.Context(), caller(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, convert.ToSigningRequests(reqs))
}

func (s *Server) getRequest(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	r, err := s.d.Requests.Get(c.Request.Context(), caller(c), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, convert.ToSigningRequest(*r))
}

func (s *Server) forceSign(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	if err := s.d.Requests.ForceSign(c.Request.Context(), caller(c), id); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Signing request marked as signed"})
}

func (s *Server) deleteRequest(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	if err := s.d.Requests.Delete(c.Request.Context(), caller(c), id); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
