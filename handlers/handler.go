package handlers

import (
	"context"
	"errors"
	"strconv"

	"food-order-service/apperrors"
	"food-order-service/service"
	"food-order-service/statemachine"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler groups the HTTP endpoints around the application services.
type Handler struct {
	auth    *service.AuthService
	orders  *service.OrderService
	catalog *service.CatalogService
	users   *service.UserService
	db      Pinger
	log     *logrus.Logger
}

func New(auth *service.AuthService, orders *service.OrderService, catalog *service.CatalogService, users *service.UserService, db Pinger, log *logrus.Logger) *Handler {
	return &Handler{
		auth:    auth,
		orders:  orders,
		catalog: catalog,
		users:   users,
		db:      db,
		log:     log,
	}
}

// respondError maps err onto the error taxonomy and writes
// {"error": ..., "code": ...}.
func (h *Handler) respondError(c *gin.Context, err error) {
	status := apperrors.HTTPStatus(err)
	body := gin.H{
		"error": apperrors.Message(err),
		"code":  apperrors.Code(err),
	}

	var te *statemachine.TransitionError
	if errors.As(err, &te) {
		body["current_status"] = te.From
		body["requested"] = te.To
		body["valid_next_states"] = te.Allowed
	}

	entry := h.log.WithFields(logrus.Fields{
		"method": c.Request.Method,
		"path":   c.FullPath(),
		"status": status,
	}).WithError(err)
	if status >= 500 {
		entry.Error("request failed")
	} else {
		entry.Debug("request rejected")
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, body)
}

func bindError(err error) error {
	return apperrors.Validation("%s", err.Error())
}

func parseID(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperrors.Validation("invalid %s", name)
	}
	return uint(id), nil
}

func queryID(c *gin.Context, name string) (uint, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, apperrors.Validation("invalid %s", name)
	}
	return uint(id), nil
}
