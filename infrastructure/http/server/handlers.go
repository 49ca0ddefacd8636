package server

import (
	"chat-relay/auth"
	"chat-relay/errors"
	"chat-relay/services"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

type signRequest struct {
	ParamsToSign map[string]string `json:"paramsToSign"`
}

func (s *Server) register(c *gin.Context) {
	var req auth.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, s.log, fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err))
		return
	}
	session, err := s.deps.Auth.Register(req)
	if err != nil {
		writeError(c, s.log, err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

func (s *Server) login(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, s.log, fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err))
		return
	}
	session, err := s.deps.Auth.Login(req)
	if err != nil {
		writeError(c, s.log, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func (s *Server) me(c *gin.Context) {
	userID, ok := auth.UserID(c.Request.Context())
	if !ok {
		writeError(c, s.log, errors.ErrUnauthenticated)
		return
	}
	user, err := s.deps.Auth.Me(userID)
	if err != nil {
		writeError(c, s.log, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (s *Server) contacts(c *gin.Context) {
	userID, _ := auth.UserID(c.Request.Context())
	users, err := s.deps.Chat.ListContacts(c.Request.Context(), userID)
	if err != nil {
		writeError(c, s.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

func (s *Server) messages(c *gin.Context) {
	userID, _ := auth.UserID(c.Request.Context())
	var cursor *string
	if value, ok := c.GetQuery("cursor"); ok && value != "" {
		cursor = &value
	}
	page, err := s.deps.Chat.GetMessages(c.Request.Context(), userID, c.Param("partnerId"), cursor)
	if err != nil {
		writeError(c, s.log, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (s *Server) search(c *gin.Context) {
	userID, _ := auth.UserID(c.Request.Context())
	limit := 0
	if value := c.Query("limit"); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			writeError(c, s.log, fmt.Errorf("%w: limit %q", errors.ErrInvalidPayload, value))
			return
		}
		limit = parsed
	}
	messages, err := s.deps.Chat.SearchMessages(c.Request.Context(), userID, c.Param("partnerId"), c.Query("q"), limit)
	if err != nil {
		writeError(c, s.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// send is the send action: the stored message is returned to the sender
// and published on the conversation channel.
func (s *Server) send(c *gin.Context) {
	userID, _ := auth.UserID(c.Request.Context())
	var req services.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, s.log, fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err))
		return
	}
	message, err := s.deps.Chat.SendMessage(c.Request.Context(), userID, req)
	if err != nil {
		writeError(c, s.log, err)
		return
	}
	c.JSON(http.StatusCreated, message)
}

func (s *Server) signUploadParams(c *gin.Context) {
	var req signRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, s.log, fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err))
		return
	}
	signed, err := s.deps.Uploads.SignParams(req.ParamsToSign)
	if err != nil {
		writeError(c, s.log, err)
		return
	}
	c.JSON(http.StatusOK, signed)
}

func (s *Server) upload(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		writeError(c, s.log, fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err))
		return
	}
	file, err := header.Open()
	if err != nil {
		writeError(c, s.log, err)
		return
	}
	defer file.Close()

	url, err := s.deps.Uploads.Store(c.Request.Context(), file)
	if err != nil {
		writeError(c, s.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"url": url})
}
