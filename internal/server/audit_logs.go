package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/procura/internal/audit/domain"
	"github.com/smallbiznis/procura/internal/authorization"
	"github.com/smallbiznis/procura/pkg/db/pagination"
)

type listAuditLogsQuery struct {
	PageToken      string `form:"page_token"`
	PageSize       int    `form:"page_size"`
	OrganizationID string `form:"organization_id"`
	ActorID        string `form:"actor_id"`
	ActorType      string `form:"actor_type"`
	Action         string `form:"action"`
	TargetType     string `form:"target_type"`
	TargetID       string `form:"target_id"`
	StartAt        string `form:"start_at"`
	EndAt          string `form:"end_at"`
	From           string `form:"from"`
	To             string `form:"to"`
}

// ListAuditLogs exposes the mutation trail to admins.
func (s *Server) ListAuditLogs(c *gin.Context) {
	err := s.authzSvc.Authorize(c.Request.Context(), actorFromContext(c), authorization.Resource{Object: authorization.ObjectAuditLog}, authorization.ActionRead)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var query listAuditLogsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	orgID, err := parseOptionalID("organization_id", query.OrganizationID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	startAt, err := parseOptionalTime("start_at", firstNonEmpty(query.StartAt, query.From))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	endAt, err := parseOptionalTime("end_at", firstNonEmpty(query.EndAt, query.To))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.auditSvc.List(c.Request.Context(), auditdomain.ListAuditLogRequest{
		Pagination: pagination.Pagination{
			PageToken: strings.TrimSpace(query.PageToken),
			PageSize:  query.PageSize,
		},
		OrganizationID: orgID,
		ActorID:        query.ActorID,
		ActorType:      strings.TrimSpace(query.ActorType),
		Action:         strings.TrimSpace(query.Action),
		TargetType:     strings.TrimSpace(query.TargetType),
		TargetID:       strings.TrimSpace(query.TargetID),
		StartAt:        startAt,
		EndAt:          endAt,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.AuditLogs, "page_info": resp.PageInfo})
}
