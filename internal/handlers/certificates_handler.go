package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/imrishuroy/go-certificate-orders/internal/aws"
	"github.com/imrishuroy/go-certificate-orders/internal/registry"
	"github.com/imrishuroy/go-certificate-orders/internal/validation"
)

const (
	maxIDsPerRequest = 500
	defaultPageSize  = 20
)

type lookupResponse struct {
	ID          string                `json:"id"`
	Status      string                `json:"status"`
	Certificate *registry.Certificate `json:"certificate,omitempty"`
	Error       string                `json:"error,omitempty"`
}

func toLookupResponse(l registry.Lookup) lookupResponse {
	out := lookupResponse{ID: l.ID, Status: l.Status.String(), Certificate: l.Certificate}
	if l.Err != nil {
		out.Error = l.Err.Error()
	}
	return out
}

// RegisterCertificateRoutes registers lookup and search routes. rg must carry
// the WithResolver middleware.
func RegisterCertificateRoutes(rg *gin.RouterGroup, reg *registry.Registry, metrics MetricsRecorder, log logrus.FieldLogger) {
	v := validation.New()

	rg.GET("/certificates/:id", func(c *gin.Context) {
		ctx := c.Request.Context()

		l := ResolverFor(ctx).Resolve(ctx, c.Param("id"))
		switch l.Status {
		case registry.LookupFound:
			c.JSON(http.StatusOK, l.Certificate)
		case registry.LookupNotFound:
			c.JSON(http.StatusNotFound, gin.H{"error": "certificate_not_found", "id": l.ID})
		default:
			count(ctx, metrics, log, aws.MetricLookupGroupFailed, nil)
			writeStoreError(c, "certificate_lookup_failed", l.Err)
		}
	})

	rg.GET("/certificates", func(c *gin.Context) {
		ctx := c.Request.Context()

		ids := splitIDs(c.Query("ids"))
		if len(ids) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing_ids"})
			return
		}
		if len(ids) > maxIDsPerRequest {
			c.JSON(http.StatusBadRequest, gin.H{"error": "too_many_ids", "max": maxIDsPerRequest})
			return
		}

		lookups := ResolverFor(ctx).ResolveMany(ctx, ids)
		results := make([]lookupResponse, 0, len(lookups))
		failed := false
		for _, l := range lookups {
			failed = failed || l.Status == registry.LookupFailed
			results = append(results, toLookupResponse(l))
		}
		if failed {
			count(ctx, metrics, log, aws.MetricLookupGroupFailed, nil)
		}

		// partial failures are reported per id
		c.JSON(http.StatusOK, gin.H{"results": results})
	})

	rg.GET("/search", func(c *gin.Context) {
		ctx := c.Request.Context()

		var req validation.SearchRequest
		if err := validation.BindQueryAndValidate(c, &req, v); err != nil {
			return
		}
		if req.Page == 0 {
			req.Page = 1
		}
		if req.PageSize == 0 {
			req.PageSize = defaultPageSize
		}

		page, err := reg.Search(ctx, registry.SearchQuery{
			Query:     req.Query,
			Page:      req.Page,
			PageSize:  req.PageSize,
			StartYear: req.StartYear,
			EndYear:   req.EndYear,
		})
		if err != nil {
			log.WithFields(logrus.Fields{"module": "handlers", "query": req.Query}).WithError(err).Error("search failed")
			writeStoreError(c, "search_failed", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"results":      page.Results,
			"result_count": page.ResultCount,
			"page":         page.Page,
			"page_size":    page.PageSize,
			"page_count":   page.PageCount,
			"start":        page.Start(),
			"end":          page.End(),
		})
	})
}

func splitIDs(raw string) []string {
	var out []string
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out
}
