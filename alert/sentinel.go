package alert

import (
	"context"
	"fmt"
	"maps"

	"github.com/code19m/errx"
	sentinelpb "github.com/code19m/sentinel/pb"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// SentinelProvider sends alerts to the Sentinel service over gRPC.
type SentinelProvider struct {
	cfg            Config
	serviceName    string
	serviceVersion string
	client         sentinelpb.SentinelServiceClient
	conn           *grpc.ClientConn
}

// NewSentinelProvider creates a client for the Sentinel service at cfg.SentinelHost:cfg.SentinelPort.
//
// The connection is established lazily on the first alert. With cfg.Disable set the returned
// provider never dials and SendError always succeeds.
func NewSentinelProvider(cfg Config, serviceName, serviceVersion string) (*SentinelProvider, error) {
	if cfg.Disable {
		return &SentinelProvider{cfg: cfg}, nil
	}

	conn, err := grpc.NewClient(
		fmt.Sprintf("%s:%d", cfg.SentinelHost, cfg.SentinelPort),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
	)
	if err != nil {
		return nil, errx.Wrap(err, errx.WithDetails(errx.D{
			"sentinel_host": cfg.SentinelHost,
			"sentinel_port": cfg.SentinelPort,
		}))
	}

	return &SentinelProvider{
		cfg:            cfg,
		serviceName:    serviceName,
		serviceVersion: serviceVersion,
		client:         sentinelpb.NewSentinelServiceClient(conn),
		conn:           conn,
	}, nil
}

// SendError implements Provider.
//
// The call is detached from ctx cancellation and bounded by cfg.SendTimeout.
// details is copied, the caller's map is never modified.
func (sp *SentinelProvider) SendError(
	ctx context.Context,
	errCode, msg, operation string,
	details map[string]string,
) error {
	if sp.cfg.Disable {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sp.cfg.SendTimeout)
	defer cancel()

	sent := make(map[string]string, len(details)+1)
	maps.Copy(sent, details)
	sent["service_version"] = sp.serviceVersion

	_, err := sp.client.SendError(ctx, &sentinelpb.ErrorInfo{
		Code:      errCode,
		Message:   msg,
		Service:   sp.serviceName,
		Operation: operation,
		Details:   sent,
	})
	if err != nil {
		return errx.Wrap(err, errx.WithDetails(errx.D{"operation": operation}))
	}
	return nil
}

// Close releases the gRPC connection.
func (sp *SentinelProvider) Close() error {
	if sp.conn != nil {
		return sp.conn.Close()
	}
	return nil
}
