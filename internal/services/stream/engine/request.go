package engine

import (
	"context"

	"github.com/strandhttp/strand/internal/models"

	"github.com/valyala/fasthttp"
)

type requestKey struct{}

// WithRequest returns a context carrying the exchange's request metadata.
func WithRequest(ctx context.Context, req *models.RequestMetadata) context.Context {
	return context.WithValue(ctx, requestKey{}, req)
}

// RequestFrom returns the request metadata carried by ctx, nil when absent.
func RequestFrom(ctx context.Context) *models.RequestMetadata {
	req, _ := ctx.Value(requestKey{}).(*models.RequestMetadata)
	return req
}

// requestMetadata snapshots the parsed request line and headers. The
// transport owns the underlying bytes, so everything is copied out.
func requestMetadata(ctx *fasthttp.RequestCtx) *models.RequestMetadata {
	headers := make(map[string]string, ctx.Request.Header.Len())
	ctx.Request.Header.VisitAll(func(k, v []byte) {
		headers[string(k)] = string(v)
	})
	return &models.RequestMetadata{
		Method:  string(ctx.Method()),
		Target:  string(ctx.RequestURI()),
		Headers: headers,
	}
}
