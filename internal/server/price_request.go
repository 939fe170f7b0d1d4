package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	pricerequestdomain "github.com/smallbiznis/procura/internal/pricerequest/domain"
)

func (s *Server) CreatePriceRequest(c *gin.Context) {
	var req pricerequestdomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.priceRequestSvc.Create(c.Request.Context(), actorFromContext(c), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListPriceRequests(c *gin.Context) {
	var req pricerequestdomain.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.priceRequestSvc.List(c.Request.Context(), actorFromContext(c), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.PriceRequests, "page_info": resp.PageInfo})
}

func (s *Server) GetPriceRequestByID(c *gin.Context) {
	resp, err := s.priceRequestSvc.Get(c.Request.Context(), actorFromContext(c), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdatePriceRequest(c *gin.Context) {
	var req pricerequestdomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.priceRequestSvc.Update(c.Request.Context(), actorFromContext(c), strings.TrimSpace(c.Param("id")), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CancelPriceRequest(c *gin.Context) {
	resp, err := s.priceRequestSvc.Cancel(c.Request.Context(), actorFromContext(c), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) BulkCancelPriceRequests(c *gin.Context) {
	var req pricerequestdomain.BulkCancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.priceRequestSvc.BulkCancel(c.Request.Context(), actorFromContext(c), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func isPriceRequestValidationError(err error) bool {
	switch err {
	case pricerequestdomain.ErrItemChoice,
		pricerequestdomain.ErrInvalidProduct,
		pricerequestdomain.ErrInvalidAlcohol,
		pricerequestdomain.ErrInvalidSupplier,
		pricerequestdomain.ErrInvalidPurchaser,
		pricerequestdomain.ErrInvalidStatus,
		pricerequestdomain.ErrInvalidID,
		pricerequestdomain.ErrEmptyBulkFilter:
		return true
	default:
		return false
	}
}
