package service

import (
	"context"
	"time"

	"connectrpc.com/connect"
	"github.com/rs/zerolog"

	"github.com/castlemilk/demobank/internal/logger"
)

// LoggingInterceptor attaches a request-scoped logger to the context and logs
// each unary call's outcome and latency.
func LoggingInterceptor(log zerolog.Logger) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			reqLog := log.With().Str("procedure", req.Spec().Procedure).Logger()
			ctx = logger.WithContext(ctx, reqLog)

			res, err := next(ctx, req)

			event := reqLog.Info()
			if err != nil {
				event = reqLog.Warn().Err(err).Str("code", connect.CodeOf(err).String())
			}
			event.Dur("duration", time.Since(start)).Msg("rpc")
			return res, err
		}
	}
}
