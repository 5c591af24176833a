package wrapper

import (
	"context"
	"fmt"
	"time"

	"github.com/code19m/errx"
	"github.com/rise-and-shine/persist/alert"
	"github.com/rise-and-shine/persist/logger"
	"github.com/rise-and-shine/persist/meta"
	"github.com/rise-and-shine/persist/query"
)

const alertTimeout = 3 * time.Second

type AlertWrapper[R, C any] struct {
	logger        logger.Logger
	alertProvider alert.Provider
	next          query.Query[R, C]
	queryName     string
}

// NewAlertWrapper reports failed executions to alertProvider.
//
// Alerts are sent in the background with their own deadline, so a slow provider never delays
// the caller. The result and the error are returned unchanged.
func NewAlertWrapper[R, C any](l logger.Logger, alertProvider alert.Provider, queryName string) query.WrapFunc[R, C] {
	return func(next query.Query[R, C]) query.Query[R, C] {
		return &AlertWrapper[R, C]{
			logger:        l.Named("query.alerting"),
			alertProvider: alertProvider,
			next:          next,
			queryName:     queryName,
		}
	}
}

func (w *AlertWrapper[R, C]) Execute(ctx context.Context, c C) (R, error) {
	result, err := w.next.Execute(ctx, c)
	if err == nil {
		return result, nil
	}

	operation := fmt.Sprintf("query: %s", w.queryName)
	details := make(map[string]string)
	for k, v := range meta.ExtractMetaFromContext(ctx) {
		details[string(k)] = v
	}

	alertCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), alertTimeout)

	go func() {
		defer cancel()

		sendErr := w.alertProvider.SendError(alertCtx, errx.AsErrorX(err).Code(), err.Error(), operation, details)
		if sendErr != nil {
			w.logger.WithContext(ctx).With("alert_send_error", sendErr.Error()).Warn("failed to send error alert")
		}
	}()

	return result, err
}
