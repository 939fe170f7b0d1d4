package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	referencedomain "github.com/smallbiznis/procura/internal/reference/domain"
)

func (s *Server) ListCities(c *gin.Context) {
	cities, err := s.referenceSvc.ListCities(c.Request.Context(), actorFromContext(c), strings.TrimSpace(c.Query("name")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": cities})
}

func (s *Server) CreateCity(c *gin.Context) {
	var req referencedomain.CityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.referenceSvc.CreateCity(c.Request.Context(), actorFromContext(c), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) GetCityByID(c *gin.Context) {
	resp, err := s.referenceSvc.GetCity(c.Request.Context(), actorFromContext(c), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateCity(c *gin.Context) {
	var req referencedomain.CityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.referenceSvc.UpdateCity(c.Request.Context(), actorFromContext(c), strings.TrimSpace(c.Param("id")), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteCity(c *gin.Context) {
	if err := s.referenceSvc.DeleteCity(c.Request.Context(), actorFromContext(c), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func isReferenceValidationError(err error) bool {
	switch err {
	case referencedomain.ErrInvalidCity,
		referencedomain.ErrInvalidName:
		return true
	default:
		return false
	}
}
