package rest

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rbroggi/racketbuddy/internal/core/model"
	log "github.com/sirupsen/logrus"
)

const (
	maxAvatarSize = 5 << 20
	avatarField   = "profile_image"
)

type signUpRequest struct {
	Email      string `json:"email" binding:"required"`
	Password   string `json:"password" binding:"required"`
	FirstName  string `json:"first_name" binding:"required"`
	LastName   string `json:"last_name" binding:"required"`
	BirthDate  string `json:"birth_date" binding:"required"`
	Sex        string `json:"sex" binding:"required"`
	SkillLevel string `json:"skill_level" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginResponse struct {
	Token string     `json:"token"`
	User  model.User `json:"user"`
}

type updateProfileRequest struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	BirthDate  string `json:"birth_date"`
	Sex        string `json:"sex"`
	SkillLevel string `json:"skill_level"`
}

// POST /api/auth/signup
func (s *Server) signUp(c *gin.Context) {
	var req signUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortInvalid(c, "could not parse request data")
		return
	}
	birthDate, err := parseDate(req.BirthDate)
	if err != nil {
		abortInvalid(c, err.Error())
		return
	}

	resp, err := s.users.SignUp(c.Request.Context(), model.SignUpArgs{
		Email:      req.Email,
		Password:   req.Password,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		BirthDate:  birthDate,
		Sex:        model.Sex(req.Sex),
		SkillLevel: model.SkillLevel(req.SkillLevel),
	})
	if err != nil {
		abortWithError(c, "SignUp", err)
		return
	}
	c.JSON(http.StatusCreated, resp.User)
}

// POST /api/auth/login
func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortInvalid(c, "could not parse request data")
		return
	}
	resp, err := s.users.Login(c.Request.Context(), model.LoginArgs{Email: req.Email, Password: req.Password})
	if err != nil {
		abortWithError(c, "Login", err)
		return
	}
	c.JSON(http.StatusOK, loginResponse{Token: resp.Token, User: resp.User})
}

// GET /api/users/me
func (s *Server) getProfile(c *gin.Context) {
	resp, err := s.users.GetProfile(c.Request.Context(), caller(c))
	if err != nil {
		abortWithError(c, "GetProfile", err)
		return
	}
	c.JSON(http.StatusOK, resp.User)
}

// PUT /api/users/me
func (s *Server) updateProfile(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortInvalid(c, "could not parse request data")
		return
	}
	var birthDate time.Time
	if req.BirthDate != "" {
		var err error
		if birthDate, err = parseDate(req.BirthDate); err != nil {
			abortInvalid(c, err.Error())
			return
		}
	}

	resp, err := s.users.UpdateProfile(c.Request.Context(), model.UpdateProfileArgs{
		UserID:     caller(c),
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		BirthDate:  birthDate,
		Sex:        model.Sex(req.Sex),
		SkillLevel: model.SkillLevel(req.SkillLevel),
	})
	if err != nil {
		abortWithError(c, "UpdateProfile", err)
		return
	}
	c.JSON(http.StatusOK, resp.User)
}

// PUT /api/users/me/avatar
func (s *Server) setAvatar(c *gin.Context) {
	header, err := c.FormFile(avatarField)
	if err != nil {
		abortInvalid(c, fmt.Sprintf("multipart field %q is required", avatarField))
		return
	}
	if header.Size > maxAvatarSize {
		abortInvalid(c, "profile image is too large")
		return
	}
	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		abortInvalid(c, "profile image must be an image")
		return
	}
	file, err := header.Open()
	if err != nil {
		abortWithError(c, "SetAvatar", err)
		return
	}
	defer file.Close()

	resp, err := s.users.SetAvatar(c.Request.Context(), model.SetAvatarArgs{
		UserID:      caller(c),
		Filename:    header.Filename,
		ContentType: contentType,
		Content:     file,
	})
	if err != nil {
		abortWithError(c, "SetAvatar", err)
		return
	}
	c.JSON(http.StatusOK, resp.User)
}

// GET /api/users/:id/avatar
func (s *Server) getAvatar(c *gin.Context) {
	userID, ok := pathID(c)
	if !ok {
		return
	}
	avatar, err := s.users.GetAvatar(c.Request.Context(), userID)
	if err != nil {
		abortWithError(c, "GetAvatar", err)
		return
	}
	defer func() {
		if err := avatar.Content.Close(); err != nil {
			log.WithError(err).Warn("error closing profile image")
		}
	}()
	c.DataFromReader(http.StatusOK, avatar.Size, avatar.ContentType, avatar.Content, nil)
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q must be formatted as YYYY-MM-DD", s)
	}
	return t, nil
}

// pathID parses the :id path parameter. It aborts with 400 when it is not a uuid.
func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		abortInvalid(c, "id must be a uuid")
		return uuid.Nil, false
	}
	return id, true
}
