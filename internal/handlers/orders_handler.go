package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/imrishuroy/go-certificate-orders/internal/aws"
	"github.com/imrishuroy/go-certificate-orders/internal/config"
	"github.com/imrishuroy/go-certificate-orders/internal/idempotency"
	"github.com/imrishuroy/go-certificate-orders/internal/locks"
	"github.com/imrishuroy/go-certificate-orders/internal/orders"
	"github.com/imrishuroy/go-certificate-orders/internal/registry"
	"github.com/imrishuroy/go-certificate-orders/internal/validation"
)

// OrderSubmitter records an order. *orders.Submitter implements it.
type OrderSubmitter interface {
	Submit(ctx context.Context, order orders.Order) (orders.OrderKey, error)
}

// Ledger tracks submission attempts per idempotency key. *idempotency.Store implements it.
type Ledger interface {
	Begin(ctx context.Context, key, referenceID string) (bool, error)
	Get(ctx context.Context, key string) (*idempotency.Record, error)
	MarkDone(ctx context.Context, key string, orderKey int64) error
	MarkFailed(ctx context.Context, key string, f idempotency.Failure) error
}

// SubmissionLocker serializes requests sharing an idempotency key. Lock
// returns locks.ErrHeld if another request holds the key.
type SubmissionLocker interface {
	Lock(ctx context.Context, key string) (func(context.Context), error)
}

// ReconciliationPublisher alerts operators about partial orders. *aws.Publisher implements it.
type ReconciliationPublisher interface {
	PublishJSON(ctx context.Context, v any, attributes map[string]string) error
}

// OrdersConfig groups dependencies for the orders handler. Only Submitter is
// required.
type OrdersConfig struct {
	Submitter OrderSubmitter
	Ledger    Ledger
	Locker    SubmissionLocker
	Publisher ReconciliationPublisher
	Metrics   MetricsRecorder
	Logger    logrus.FieldLogger
	Now       func() time.Time
}

type ordersHandler struct {
	OrdersConfig
}

// RegisterOrdersRoutes registers routes for order API. rg must carry the
// WithResolver middleware.
func RegisterOrdersRoutes(rg *gin.RouterGroup, cfg OrdersConfig) {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	v := validation.New()
	h := &ordersHandler{OrdersConfig: cfg}

	rg.POST("/orders", func(c *gin.Context) {
		ctx := c.Request.Context()

		// Bind + validate request
		var req validation.CreateOrderRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			// BindAndValidate already wrote a 400
			return
		}

		// Require idempotency key header
		idempKey := c.GetHeader("Idempotency-Key")
		if idempKey == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing_idempotency_key"})
			return
		}

		log := h.Logger.WithFields(logrus.Fields{
			"module":          "handlers",
			"idempotency_key": idempKey,
			"request_id":      c.GetHeader(RequestIDHeader),
		})

		if h.Locker != nil {
			release, err := h.Locker.Lock(ctx, idempKey)
			switch {
			case errors.Is(err, locks.ErrHeld):
				c.JSON(http.StatusConflict, gin.H{"error": "submission_in_progress"})
				return
			case err != nil:
				log.WithError(err).Warn("submission lock unavailable; relying on ledger")
			default:
				defer release(context.WithoutCancel(ctx))
			}
		}

		if !h.checkCertificates(c, req.Items) {
			return
		}

		referenceID := uuid.NewString()
		if h.Ledger != nil && h.replayOrClaim(c, idempKey, referenceID) {
			return
		}

		order := buildOrder(req, idempKey, referenceID, h.Now())
		key, err := h.Submitter.Submit(ctx, order)

		// bookkeeping must finish even if the client went away
		bg := context.WithoutCancel(ctx)
		if err != nil {
			h.fail(bg, c, log, order, err)
			return
		}

		if h.Ledger != nil {
			if err := h.Ledger.MarkDone(bg, idempKey, int64(key)); err != nil {
				config.LogError(log, "handlers", "createOrder", "mark ledger done", key, err)
			}
		}
		count(bg, h.Metrics, log, aws.MetricOrderSubmitted, nil)

		c.JSON(http.StatusCreated, gin.H{
			"order_key":    key,
			"reference_id": referenceID,
			"service_fee":  orders.FormatAmount(order.ServiceFee),
			"total":        orders.FormatAmount(order.Total),
		})
	})
}

// checkCertificates confirms every cart item is a known, fully recorded
// certificate. It writes the response and returns false otherwise.
func (h *ordersHandler) checkCertificates(c *gin.Context, items []validation.Item) bool {
	ctx := c.Request.Context()

	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = strconv.Itoa(it.ID)
	}

	var missing, pending []int
	var lookupErr error
	for i, l := range ResolverFor(ctx).ResolveMany(ctx, ids) {
		switch l.Status {
		case registry.LookupFound:
			if l.Certificate.IsPending() {
				pending = append(pending, items[i].ID)
			}
		case registry.LookupNotFound:
			missing = append(missing, items[i].ID)
		default:
			lookupErr = l.Err
		}
	}

	switch {
	case lookupErr != nil:
		count(ctx, h.Metrics, h.Logger, aws.MetricLookupGroupFailed, nil)
		writeStoreError(c, "certificate_lookup_failed", lookupErr)
		return false
	case len(missing) > 0:
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "unknown_certificates", "ids": missing})
		return false
	case len(pending) > 0:
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "certificates_pending", "ids": pending})
		return false
	}
	return true
}

// replayOrClaim answers requests whose key the ledger already knows and
// otherwise claims the key. It returns true if it wrote a response.
func (h *ordersHandler) replayOrClaim(c *gin.Context, key, referenceID string) bool {
	ctx := c.Request.Context()

	rec, err := h.Ledger.Get(ctx, key)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "idempotency_check_failed", "detail": err.Error()})
		return true
	}
	if rec != nil {
		switch {
		case rec.Status == idempotency.StatusDone:
			count(ctx, h.Metrics, h.Logger, aws.MetricOrderReplayed, nil)
			c.JSON(http.StatusOK, gin.H{"order_key": rec.OrderKey, "reference_id": rec.ReferenceID, "replayed": true})
			return true
		case rec.Status == idempotency.StatusInProgress:
			c.JSON(http.StatusConflict, gin.H{"error": "submission_in_progress"})
			return true
		case !rec.Reusable():
			c.JSON(http.StatusConflict, gin.H{
				"error":       "order_needs_reconciliation",
				"order_key":   rec.OrderKey,
				"failed_step": rec.FailedStep,
			})
			return true
		}
	}

	claimed, err := h.Ledger.Begin(ctx, key, referenceID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "idempotency_begin_failed", "detail": err.Error()})
		return true
	}
	if !claimed {
		c.JSON(http.StatusConflict, gin.H{"error": "submission_in_progress"})
		return true
	}
	return false
}

func (h *ordersHandler) fail(ctx context.Context, c *gin.Context, log logrus.FieldLogger, order orders.Order, err error) {
	step, _ := orders.FailedStep(err)
	notice, partial := orders.NewReconciliationNotice(order, err, h.Now())
	log = log.WithField("failed_step", step)

	if h.Ledger != nil {
		ferr := h.Ledger.MarkFailed(ctx, order.IdempotencyKey, idempotency.Failure{
			Step:      string(step),
			OrderKey:  int64(notice.OrderKey),
			Retriable: !partial && isRetriable(err),
			Note:      err.Error(),
		})
		if ferr != nil {
			config.LogError(log, "handlers", "createOrder", "mark ledger failed", order.IdempotencyKey, ferr)
		}
	}
	count(ctx, h.Metrics, log, aws.MetricOrderFailed, map[string]string{"step": string(step)})

	if !partial {
		writeStoreError(c, "order_creation_failed", err)
		return
	}

	log = log.WithField("order_key", notice.OrderKey)
	if h.Publisher == nil {
		log.WithError(err).Error("partial order recorded and no reconciliation queue configured")
	} else {
		attrs := map[string]string{
			"idempotency_key": order.IdempotencyKey,
			"order_key":       strconv.FormatInt(int64(notice.OrderKey), 10),
			"correlation_id":  c.GetHeader(RequestIDHeader),
		}
		if perr := h.Publisher.PublishJSON(ctx, notice, attrs); perr != nil {
			config.LogError(log, "handlers", "createOrder", "reconciliation alert not sent", notice, perr)
		}
	}

	c.JSON(http.StatusInternalServerError, gin.H{
		"error":        "order_incomplete",
		"order_key":    notice.OrderKey,
		"reference_id": order.ReferenceID,
		"failed_step":  step,
		"detail":       err.Error(),
		"retriable":    false,
	})
}

func buildOrder(req validation.CreateOrderRequest, idempKey, referenceID string, now time.Time) orders.Order {
	items := make([]orders.LineItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, orders.LineItem{CertificateID: it.ID, Quantity: it.Quantity, Name: it.Name})
	}
	cost := orders.CalculateCost(orders.TotalQuantity(items))

	order := orders.Order{
		ReferenceID:           referenceID,
		OrderDate:             now,
		ContactName:           req.ContactName,
		ContactEmail:          req.ContactEmail,
		ContactPhone:          req.ContactPhone,
		Shipping:              toAddress(req.ShippingAddress),
		BillingSameAsShipping: req.BillingSameAsShipping,
		CardholderName:        req.CardholderName,
		PaymentToken:          req.CardToken,
		CardLast4:             req.CardLast4,
		Items:                 items,
		UnitCost:              orders.CertificateCost,
		ServiceFee:            cost.ServiceFee,
		Total:                 cost.Total,
		IdempotencyKey:        idempKey,
	}
	if req.BillingAddress != nil {
		order.Billing = toAddress(*req.BillingAddress)
	}
	return order
}

func toAddress(a validation.Address) orders.Address {
	return orders.Address{
		Name:    a.Name,
		Company: a.Company,
		Line1:   a.Address1,
		Line2:   a.Address2,
		City:    a.City,
		State:   a.State,
		ZIP:     a.ZIP,
	}
}
