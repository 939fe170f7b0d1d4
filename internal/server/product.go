package server

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	comparisondomain "github.com/smallbiznis/procura/internal/comparison/domain"
	productdomain "github.com/smallbiznis/procura/internal/product/domain"
)

func (s *Server) CreateItem(kind productdomain.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req productdomain.CreateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}

		resp, err := s.productSvc.Create(c.Request.Context(), actorFromContext(c), kind, req)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{"data": resp})
	}
}

func (s *Server) ListItems(kind productdomain.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req productdomain.ListRequest
		if err := c.ShouldBindQuery(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}

		resp, err := s.productSvc.List(c.Request.Context(), actorFromContext(c), kind, req)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"data": resp.Items, "page_info": resp.PageInfo})
	}
}

func (s *Server) GetItemByID(kind productdomain.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp, err := s.productSvc.Get(c.Request.Context(), actorFromContext(c), kind, strings.TrimSpace(c.Param("id")))
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"data": resp})
	}
}

func (s *Server) UpdateItem(kind productdomain.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req productdomain.UpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}

		resp, err := s.productSvc.Update(c.Request.Context(), actorFromContext(c), kind, strings.TrimSpace(c.Param("id")), req)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"data": resp})
	}
}

func (s *Server) DeleteItem(kind productdomain.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.productSvc.Delete(c.Request.Context(), actorFromContext(c), kind, strings.TrimSpace(c.Param("id"))); err != nil {
			AbortWithError(c, err)
			return
		}

		c.Status(http.StatusNoContent)
	}
}

func (s *Server) ListItemPrices(kind productdomain.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp, err := s.priceSvc.ListForItem(c.Request.Context(), actorFromContext(c), kind, strings.TrimSpace(c.Param("id")))
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"data": resp})
	}
}

func (s *Server) ListItemsWithPrices(kind productdomain.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req comparisondomain.ListRequest
		if err := c.ShouldBindQuery(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}

		resp, err := s.comparisonSvc.List(c.Request.Context(), actorFromContext(c), string(kind), req)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"data": resp.Items, "page_info": resp.PageInfo})
	}
}

func (s *Server) ExportItemsWithPrices(kind productdomain.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		doc, err := s.comparisonSvc.ExportPDF(c.Request.Context(), actorFromContext(c), string(kind))
		if err != nil {
			AbortWithError(c, err)
			return
		}
		if doc == nil {
			AbortWithError(c, ErrServiceUnavailable)
			return
		}

		raw, err := io.ReadAll(doc)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.Header("Content-Disposition", `attachment; filename="`+string(kind)+`-comparison.pdf"`)
		c.Data(http.StatusOK, "application/pdf", raw)
	}
}

func isProductValidationError(err error) bool {
	switch err {
	case productdomain.ErrInvalidOrganization,
		productdomain.ErrInvalidID:
		return true
	default:
		return false
	}
}
