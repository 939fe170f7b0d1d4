package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	pricedomain "github.com/smallbiznis/procura/internal/price/domain"
	productdomain "github.com/smallbiznis/procura/internal/product/domain"
)

// kindFromQuery reads ?kind=, defaulting to grocery products.
func kindFromQuery(c *gin.Context) (productdomain.Kind, error) {
	raw := strings.TrimSpace(c.Query("kind"))
	if raw == "" {
		return productdomain.KindProduct, nil
	}
	return productdomain.ParseKind(raw)
}

func (s *Server) CreatePrice(c *gin.Context) {
	kind, err := kindFromQuery(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req pricedomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.priceSvc.Create(c.Request.Context(), actorFromContext(c), kind, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListPrices(c *gin.Context) {
	kind, err := kindFromQuery(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req pricedomain.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.priceSvc.List(c.Request.Context(), actorFromContext(c), kind, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Prices, "page_info": resp.PageInfo})
}

func (s *Server) GetPriceByID(c *gin.Context) {
	kind, err := productdomain.ParseKind(c.Param("kind"))
	if err != nil {
		AbortWithError(c, ErrNotFound)
		return
	}

	resp, err := s.priceSvc.Get(c.Request.Context(), actorFromContext(c), kind, strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdatePrice(c *gin.Context) {
	kind, err := productdomain.ParseKind(c.Param("kind"))
	if err != nil {
		AbortWithError(c, ErrNotFound)
		return
	}

	var req pricedomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.priceSvc.Update(c.Request.Context(), actorFromContext(c), kind, strings.TrimSpace(c.Param("id")), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func isPriceValidationError(err error) bool {
	switch err {
	case pricedomain.ErrInvalidItem,
		pricedomain.ErrInvalidSupplier,
		pricedomain.ErrInvalidID,
		pricedomain.ErrSupplierKindMismatch:
		return true
	default:
		return false
	}
}
