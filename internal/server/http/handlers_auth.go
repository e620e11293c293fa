package httpserver

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/and161185/signator/internal/convert"
	"github.com/and161185/signator/internal/errs"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string       `json:"accessToken"`
	ExpiresAt   time.Time    `json:"expiresAt"`
	User        convert.User `json:"user"`
}

// bind decodes a JSON body; malformed input becomes InvalidInput.
func bind(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return errs.Invalid("malformed request body")
	}
	return nil
}

func (s *Server) register(c *gin.Context) {
	var req registerRequest
	if err := bind(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	id, err := s.d.Auth.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id.String()})
}

func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if err := bind(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	tok, u, err := s.d.Auth.LoginWithIP(c.Request.Context(), req.Email, req.Password, c.ClientIP())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, loginResponse{
		AccessToken: tok.AccessToken,
		ExpiresAt:   tok.ExpiresAt.UTC(),
		User:        convert.ToUser(u),
	})
}
