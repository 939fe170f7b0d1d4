package server

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/procura/internal/authorization"
	obscontext "github.com/smallbiznis/procura/internal/observability/context"
	supplierdomain "github.com/smallbiznis/procura/internal/supplier/domain"
	"go.uber.org/zap"
)

const (
	headerSupplierToken = "X-Supplier-Token"
	contextActorKey     = "actor"
	contextSupplierKey  = "supplier"
)

// AuthRequired resolves the bearer token into an actor for the handlers.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c.GetHeader("Authorization"))
		if raw == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		actor, err := s.authsvc.Authenticate(c.Request.Context(), raw)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		ctx := obscontext.WithActor(c.Request.Context(), string(actor.Role), actor.UserID.String())
		c.Request = c.Request.WithContext(ctx)
		c.Set(contextActorKey, actor)
		c.Next()
	}
}

// SupplierTokenRequired authenticates the supplier portal by X-Supplier-Token.
func (s *Server) SupplierTokenRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(headerSupplierToken))
		if raw == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		supplier, err := s.tokenSvc.Authenticate(c.Request.Context(), raw)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		ctx := obscontext.WithActor(c.Request.Context(), "supplier", supplier.ID.String())
		c.Request = c.Request.WithContext(ctx)
		c.Set(contextSupplierKey, supplier)
		c.Next()
	}
}

// SupplierTokenRateLimit throttles the public token endpoint per client IP.
func (s *Server) SupplierTokenRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.tokenLimiter == nil {
			c.Next()
			return
		}

		res, err := s.tokenLimiter.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			// a broken limiter must not lock suppliers out
			s.log.Warn("supplier token rate limit unavailable", zap.Error(err))
			c.Next()
			return
		}
		if !res.Allowed {
			s.obsMetrics.RecordRateLimitDenied(c.Request.Context(), "supplier_token")
			if res.RetryAfter > 0 {
				c.Header("Retry-After", strconv.Itoa(int(res.RetryAfter.Seconds())+1))
			}
			AbortWithError(c, ErrRateLimited)
			return
		}
		c.Next()
	}
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

func actorFromContext(c *gin.Context) authorization.Actor {
	if value, ok := c.Get(contextActorKey); ok {
		if actor, ok := value.(authorization.Actor); ok {
			return actor
		}
	}
	return authorization.Actor{}
}

func supplierFromContext(c *gin.Context) *supplierdomain.Supplier {
	if value, ok := c.Get(contextSupplierKey); ok {
		if supplier, ok := value.(*supplierdomain.Supplier); ok {
			return supplier
		}
	}
	return nil
}
