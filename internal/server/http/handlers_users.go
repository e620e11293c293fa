package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/and161185/signator/internal/convert"
)

type roleRequest struct {
	Role string `json:"role"`
}

func (s *Server) listUsers(c *gin.Context) {
	users, err := s.d.Users.List(c.Request.Context(), caller(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, convert.ToUsers(users))
}

func (s *Server) setRole(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	var req roleRequest
	if err := bind(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	if err := s.d.Users.SetRole(c.Request.Context(), caller(c), id, req.Role); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Role updated"})
}
