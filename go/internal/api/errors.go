package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"connectrpc.com/connect"
	"github.com/padelhub/gamenight/go/internal/apperr"
	"github.com/padelhub/gamenight/go/internal/auth"
	"github.com/rs/zerolog/log"
)

const (
	headerErrorKind   = "X-Error-Kind"
	headerFieldPrefix = "X-Error-"
)

// connectError converts a domain error to a Connect error. The message is the
// error kind only; identifiers travel in the response metadata.
func connectError(procedure string, err error) error {
	var ce *connect.Error
	if errors.As(err, &ce) {
		return ce
	}

	kind := apperr.KindOf(err)
	out := connect.NewError(kind.ConnectCode(), errors.New(string(kind)))
	out.Meta().Set(headerErrorKind, string(kind))
	for k, v := range apperr.FieldsOf(err) {
		out.Meta().Set(headerFieldPrefix+strings.ReplaceAll(k, "_", "-"), v)
	}

	switch kind {
	case apperr.KindUnknown, apperr.KindStoreUnavailable:
		log.Error().Err(err).Str("procedure", procedure).Msg("request failed")
	default:
		log.Debug().Err(err).Str("procedure", procedure).Msg("request rejected")
	}
	return out
}

// KindOf recovers the domain error kind from an error returned by a Client.
func KindOf(err error) apperr.Kind {
	var ce *connect.Error
	if !errors.As(err, &ce) {
		return apperr.KindUnknown
	}
	if k := ce.Meta().Get(headerErrorKind); k != "" {
		return apperr.Kind(k)
	}
	return apperr.KindUnknown
}

// ErrorField returns an identifier field carried by a Client error.
func ErrorField(err error, key string) string {
	var ce *connect.Error
	if !errors.As(err, &ce) {
		return ""
	}
	return ce.Meta().Get(headerFieldPrefix + strings.ReplaceAll(key, "_", "-"))
}

// NewAuthInterceptor resolves the caller from request headers and stores it
// in the context for the handlers.
func NewAuthInterceptor(resolver auth.Resolver) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if req.Spec().IsClient {
				return next(ctx, req)
			}
			actor, err := resolver.Resolve(ctx, req.Header())
			if err != nil {
				return nil, connectError(req.Spec().Procedure, err)
			}
			return next(auth.WithActor(ctx, actor), req)
		}
	}
}

// NewHeaderInterceptor copies fixed headers onto every client request.
func NewHeaderInterceptor(header http.Header) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if req.Spec().IsClient {
				for k, vs := range header {
					for _, v := range vs {
						req.Header().Add(k, v)
					}
				}
			}
			return next(ctx, req)
		}
	}
}
