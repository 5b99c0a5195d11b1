package tracing

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	gxolog "github.com/gxo-labs/trialkit/pkg/trialkit/v1/log"
	gxotracing "github.com/gxo-labs/trialkit/pkg/trialkit/v1/tracing"

	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/encoding/gzip"
)

const (
	defaultGRPCEndpoint = "localhost:4317"
	defaultHTTPEndpoint = "localhost:4318"
	defaultServiceName  = "trialkit"
)

// OtelTracerProvider implements gxotracing.TracerProvider with either the
// OpenTelemetry SDK or a no-op provider when tracing is disabled or
// misconfigured.
type OtelTracerProvider struct {
	provider trace.TracerProvider
	// sdkProvider is nil for the no-op provider.
	sdkProvider *sdktrace.TracerProvider
	log         gxolog.Logger
}

// NewNoOpProvider creates a TracerProvider that records nothing.
func NewNoOpProvider() *OtelTracerProvider {
	return &OtelTracerProvider{provider: noop.NewTracerProvider()}
}

// NewSDKProvider wraps an already configured SDK provider. Tests use it with
// an in-memory span recorder.
func NewSDKProvider(tp *sdktrace.TracerProvider) *OtelTracerProvider {
	return &OtelTracerProvider{provider: tp, sdkProvider: tp}
}

// NewProviderFromEnv creates a provider configured from the standard OTEL_*
// environment variables. It falls back to the no-op provider when
// OTEL_SDK_DISABLED=true or the exporter cannot be built. It never sets the
// global OTel provider.
func NewProviderFromEnv(ctx context.Context, log gxolog.Logger) (*OtelTracerProvider, error) {
	if log == nil {
		return nil, fmt.Errorf("tracing provider requires a non-nil logger")
	}
	log = log.With("component", "TracerProvider")

	if strings.EqualFold(strings.TrimSpace(os.Getenv("OTEL_SDK_DISABLED")), "true") {
		log.Infof("OpenTelemetry tracing disabled via OTEL_SDK_DISABLED.")
		return NewNoOpProvider(), nil
	}

	res, err := resource.New(ctx,
		resource.WithSchemaURL(semconv.SchemaURL),
		resource.WithAttributes(semconv.ServiceNameKey.String(otelServiceName())),
		resource.WithProcess(), resource.WithOS(), resource.WithHost(),
	)
	if err != nil {
		log.Warnf("Failed to create OTel resource: %v. Using default.", err)
		res = resource.Default()
	}

	exporter, err := createExporter(ctx, log)
	if err != nil {
		log.Warnf("Failed to create OTLP exporter from environment: %v. Using NoOp tracer.", err)
		return NewNoOpProvider(), nil
	}
	if exporter == nil {
		log.Infof("OTLP protocol not exportable. Using NoOp tracer.")
		return NewNoOpProvider(), nil
	}

	sdkTP := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter),
	)
	log.Infof("OpenTelemetry SDK provider configured from environment.")
	return &OtelTracerProvider{provider: sdkTP, sdkProvider: sdkTP, log: log}, nil
}

// createExporter picks the OTLP protocol and endpoint from the environment.
// It returns nil, nil for protocols that have no exporter.
func createExporter(ctx context.Context, log gxolog.Logger) (sdktrace.SpanExporter, error) {
	protocol := strings.ToLower(os.Getenv("OTEL_EXPORTER_OTLP_PROTOCOL"))
	if protocol == "" {
		protocol = "grpc"
	}

	endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if endpoint == "" {
		switch protocol {
		case "grpc":
			endpoint = defaultGRPCEndpoint
		case "http", "http/protobuf":
			endpoint = defaultHTTPEndpoint
		default:
			return nil, nil
		}
		log.Debugf("OTEL_EXPORTER_OTLP_ENDPOINT not set, using %s endpoint %s", protocol, endpoint)
	}

	headers := parseHeaders(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"))
	timeout := parseTimeout(os.Getenv("OTEL_EXPORTER_OTLP_TIMEOUT"), 10*time.Second)
	gzipped := strings.EqualFold(os.Getenv("OTEL_EXPORTER_OTLP_COMPRESSION"), "gzip")
	insecure := isInsecure(os.Getenv("OTEL_EXPORTER_OTLP_INSECURE"), os.Getenv("OTEL_EXPORTER_OTLP_TRACES_INSECURE"))

	switch protocol {
	case "grpc":
		opts := []otlptracegrpc.Option{
			otlptracegrpc.WithEndpoint(endpoint),
			otlptracegrpc.WithHeaders(headers),
			otlptracegrpc.WithTimeout(timeout),
		}
		if insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		} else {
			opts = append(opts, otlptracegrpc.WithTLSCredentials(credentials.NewClientTLSFromCert(nil, "")))
		}
		if gzipped {
			opts = append(opts, otlptracegrpc.WithCompressor(gzip.Name))
		}
		log.Debugf("Configuring OTLP gRPC exporter (endpoint: %s, insecure: %t, gzip: %t)", endpoint, insecure, gzipped)
		return otlptracegrpc.New(ctx, opts...)

	case "http", "http/protobuf":
		path := os.Getenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT")
		if path == "" {
			path = "/v1/traces"
		}
		opts := []otlptracehttp.Option{
			otlptracehttp.WithEndpoint(endpoint),
			otlptracehttp.WithURLPath(path),
			otlptracehttp.WithHeaders(headers),
			otlptracehttp.WithTimeout(timeout),
		}
		if insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		if gzipped {
			opts = append(opts, otlptracehttp.WithCompression(otlptracehttp.GzipCompression))
		}
		log.Debugf("Configuring OTLP HTTP exporter (endpoint: %s%s, insecure: %t, gzip: %t)", endpoint, path, insecure, gzipped)
		return otlptracehttp.New(ctx, opts...)

	default:
		return nil, fmt.Errorf("unsupported OTLP protocol: %s", protocol)
	}
}

// GetTracer returns a named tracer from the wrapped provider.
func (p *OtelTracerProvider) GetTracer(name string, opts ...trace.TracerOption) trace.Tracer {
	if p.provider == nil {
		return noop.NewTracerProvider().Tracer(name, opts...)
	}
	return p.provider.Tracer(name, opts...)
}

// Shutdown flushes and stops the SDK provider, which also shuts down its
// exporter. It is a no-op for the no-op provider.
func (p *OtelTracerProvider) Shutdown(ctx context.Context) error {
	if p.sdkProvider == nil {
		return nil
	}
	if err := p.sdkProvider.Shutdown(ctx); err != nil {
		if p.log != nil {
			p.log.Errorf("Error shutting down OTel tracer provider: %v", err)
		}
		return err
	}
	return nil
}

// IsEffectivelyNoOp reports whether spans are discarded.
func (p *OtelTracerProvider) IsEffectivelyNoOp() bool {
	return p.sdkProvider == nil
}

func otelServiceName() string {
	if name := os.Getenv("OTEL_SERVICE_NAME"); name != "" {
		return name
	}
	return defaultServiceName
}

// parseHeaders converts a comma-separated key=value list into a map.
func parseHeaders(headerStr string) map[string]string {
	headers := make(map[string]string)
	if headerStr == "" {
		return headers
	}
	for _, pair := range strings.Split(headerStr, ",") {
		kv := strings.SplitN(strings.TrimSpace(pair), "=", 2)
		if len(kv) != 2 {
			continue
		}
		if key := strings.TrimSpace(kv[0]); key != "" {
			headers[key] = strings.TrimSpace(kv[1])
		}
	}
	return headers
}

// parseTimeout accepts integer milliseconds or a Go duration string.
func parseTimeout(timeoutStr string, defaultTimeout time.Duration) time.Duration {
	if timeoutStr == "" {
		return defaultTimeout
	}
	if ms, err := strconv.ParseInt(timeoutStr, 10, 64); err == nil {
		if ms < 0 {
			return defaultTimeout
		}
		return time.Duration(ms) * time.Millisecond
	}
	if d, err := time.ParseDuration(timeoutStr); err == nil && d >= 0 {
		return d
	}
	return defaultTimeout
}

func isInsecure(flags ...string) bool {
	for _, flag := range flags {
		if strings.EqualFold(strings.TrimSpace(flag), "true") {
			return true
		}
	}
	return false
}

var _ gxotracing.TracerProvider = (*OtelTracerProvider)(nil)
